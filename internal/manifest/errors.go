package manifest

import "errors"

// Sentinels are plain stdlib errors so metadata attached at return sites
// leaves them intact in the unwrap chain for errors.Is.
var (

	// The dependency manifest does not exist.
	ErrManifestMissing = errors.New("dependency manifest not found")

	// The dependency manifest could not be parsed.
	ErrManifestMalformed = errors.New("dependency manifest is malformed")

	// The lockfile does not exist.
	ErrLockfileMissing = errors.New("lockfile not found")

	// The lockfile could not be parsed.
	ErrLockfileMalformed = errors.New("lockfile is malformed")

	// The lockfile format version is not supported.
	ErrLockfileVersion = errors.New("unsupported lockfile version")

	// A dependency declaration could not be parsed.
	ErrRequirement = errors.New("malformed requirement")

	// A requirement has no pinned package in the lockfile.
	ErrNotLocked = errors.New("requirement not covered by lockfile")
)
