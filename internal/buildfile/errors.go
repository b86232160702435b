package buildfile

import "errors"

// Sentinels are plain stdlib errors so metadata attached at return sites
// leaves them intact in the unwrap chain for errors.Is.
var (

	// No slipway.yaml exists at the project root.
	ErrBuildfileMissing = errors.New("buildfile not found")

	// The buildfile could not be parsed.
	ErrBuildfileMalformed = errors.New("buildfile is malformed")

	// The buildfile parsed but fails validation.
	ErrBuildfileInvalid = errors.New("buildfile is invalid")
)
