package build

import "errors"

// Sentinels are plain stdlib errors so metadata attached at return sites
// leaves them intact in the unwrap chain for errors.Is.
var (

	// A stage of the pipeline failed.
	ErrBuild = errors.New("build failed")

	// A host filesystem operation failed.
	ErrFileSystemOperation = errors.New("file system operation failed")

	// The installer exited non-zero while materializing the environment.
	ErrInstall = errors.New("dependency installation failed")

	// The runtime account could not be created or confirmed.
	ErrProvision = errors.New("identity provisioning failed")

	// A copy between stage containers failed.
	ErrArtifactCopy = errors.New("artifact copy failed")

	// A file in the final application tree is not owned by the runtime
	// identity.
	ErrOwnershipLeak = errors.New("application tree not owned by runtime identity")

	// A privileged account was offered as the launch identity.
	ErrPrivilegedIdentity = errors.New("launch identity must be unprivileged")

	// The launch identity was assigned twice.
	ErrIdentityFixed = errors.New("launch identity already assigned")

	// An image config was requested before privileges were dropped.
	ErrIdentityUnset = errors.New("launch identity not assigned")
)
