package manifest

import (
	"sort"

	"go.trai.ch/zerr"
)

// Confirms that the lockfile fully covers the manifest.
//
// Three checks, all fail-closed:
//
//  1. The lockfile format version is supported.
//  2. Every manifest requirement has a pinned package.
//  3. Every pinned package's own dependencies are pinned too, so no install
//     can fall back to resolution for a transitive package.
//
// The first violation is reported; callers abort the build before any
// container exists.
func Verify(m *Manifest, l *Lockfile) error {
	if l.Version != SupportedLockVersion {
		return zerr.With(ErrLockfileVersion, "version", l.Version)
	}

	for _, req := range m.Requirements {
		if !l.Covers(req.Name) {
			return zerr.With(ErrNotLocked, "requirement", req.Name)
		}
	}

	names := make([]string, 0, len(l.Packages))
	for name := range l.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, dep := range l.Packages[name].Dependencies {
			if !l.Covers(dep) {
				err := zerr.With(ErrNotLocked, "requirement", dep)
				return zerr.With(err, "required_by", name)
			}
		}
	}

	return nil
}
