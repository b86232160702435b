package manifest

import (
	"errors"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"go.trai.ch/zerr"
)

// Lockfile format version this pipeline understands.
const SupportedLockVersion = 1

// Mirrors the subset of uv.lock the pipeline consumes.
//
// Lock entries carry more detail (sources, wheel URLs, content hashes); the
// pipeline only needs the package set, the pinned versions, and the
// dependency edges for the closure check. The installer consumes the rest.
type lockDocument struct {
	Version        int           `toml:"version"`
	RequiresPython string        `toml:"requires-python"`
	Packages       []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string           `toml:"name"`
	Version      string           `toml:"version"`
	Dependencies []lockDependency `toml:"dependencies"`
}

type lockDependency struct {
	Name string `toml:"name"`
}

// One pinned package from the lockfile.
type LockedPackage struct {
	Name         string   // Name as written in the lockfile.
	Version      string   // Pinned version.
	Dependencies []string // Normalized names of direct dependencies.
}

// Holds the parsed lockfile: the sole source of truth for installed
// versions.
type Lockfile struct {
	Version        int
	RequiresPython string
	Packages       map[string]LockedPackage // Keyed by normalized name.
}

// Reads and parses the lockfile at path.
//
// A missing file reports [ErrLockfileMissing]; an unparsable file reports
// [ErrLockfileMalformed]. Version support is checked by [Verify].
func LoadLockfile(path string) (*Lockfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(ErrLockfileMissing, "path", path)
		}
		return nil, zerr.Wrap(err, "failed to read lockfile")
	}
	return parseLockfile(raw)
}

// Parses raw uv.lock content.
func parseLockfile(raw []byte) (*Lockfile, error) {
	var doc lockDocument
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrLockfileMalformed, err)
	}

	l := &Lockfile{
		Version:        doc.Version,
		RequiresPython: doc.RequiresPython,
		Packages:       make(map[string]LockedPackage, len(doc.Packages)),
	}

	for _, pkg := range doc.Packages {
		if pkg.Name == "" {
			return nil, zerr.With(ErrLockfileMalformed, "reason", "package without a name")
		}

		locked := LockedPackage{
			Name:    pkg.Name,
			Version: pkg.Version,
		}
		for _, dep := range pkg.Dependencies {
			locked.Dependencies = append(locked.Dependencies, NormalizeName(dep.Name))
		}

		// A name can appear once per disjoint resolution marker. The entries
		// agree on coverage, which is all the pipeline reads from them.
		l.Packages[NormalizeName(pkg.Name)] = locked
	}

	return l, nil
}

// Returns the locked package for a name in any accepted spelling.
func (l *Lockfile) Package(name string) (LockedPackage, bool) {
	pkg, ok := l.Packages[NormalizeName(name)]
	return pkg, ok
}

// Returns true if name resolves to a locked package.
func (l *Lockfile) Covers(name string) bool {
	_, ok := l.Packages[NormalizeName(name)]
	return ok
}
