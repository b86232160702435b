package runtime

import "errors"

// Sentinels are plain stdlib errors so metadata attached at return sites
// leaves them intact in the unwrap chain for errors.Is.
var (

	// A containerd operation failed.
	ErrRuntime = errors.New("runtime error")

	// An imported archive contained no image.
	ErrEmptyArchive = errors.New("archive contains no image")

	// An imported archive contained more than one unrelated image.
	ErrMultipleImages = errors.New("archive contains multiple images")

	// An image index contained no manifests.
	ErrEmptyIndex = errors.New("empty image index")

	// A file requested from a container was not in the copied stream.
	ErrFileNotFound = errors.New("file not found in container")
)
