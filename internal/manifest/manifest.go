package manifest

import (
	"errors"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"go.trai.ch/zerr"
)

// Mirrors the subset of pyproject.toml the pipeline consumes.
type pyprojectDocument struct {
	Project struct {
		Name           string   `toml:"name"`
		Version        string   `toml:"version"`
		RequiresPython string   `toml:"requires-python"`
		Dependencies   []string `toml:"dependencies"`
	} `toml:"project"`
}

// Holds the parsed dependency manifest of a project.
//
// Only the [project] table is consumed: the project identity and its runtime
// dependency declarations. Optional extras and development dependency groups
// never reach the runtime image and are not modeled.
type Manifest struct {
	Name           string        // Project name as declared.
	Version        string        // Project version, if declared.
	RequiresPython string        // Interpreter constraint, if declared.
	Requirements   []Requirement // Direct runtime dependencies.
}

// Reads and parses the dependency manifest at path.
//
// A missing file reports [ErrManifestMissing]; an unparsable file or an
// unparsable dependency declaration reports [ErrManifestMalformed].
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(ErrManifestMissing, "path", path)
		}
		return nil, zerr.Wrap(err, "failed to read manifest")
	}
	return parseManifest(raw)
}

// Parses raw pyproject.toml content.
func parseManifest(raw []byte) (*Manifest, error) {
	var doc pyprojectDocument
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrManifestMalformed, err)
	}

	if doc.Project.Name == "" {
		return nil, zerr.With(ErrManifestMalformed, "reason", "missing project name")
	}

	m := &Manifest{
		Name:           doc.Project.Name,
		Version:        doc.Project.Version,
		RequiresPython: doc.Project.RequiresPython,
	}

	for _, decl := range doc.Project.Dependencies {
		req, err := ParseRequirement(decl)
		if err != nil {
			return nil, errors.Join(ErrManifestMalformed, err)
		}
		m.Requirements = append(m.Requirements, req)
	}

	return m, nil
}
