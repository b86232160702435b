package build

import (
	"fmt"

	"github.com/slipwayhq/slipwayd/internal/buildfile"
	"github.com/slipwayhq/slipwayd/internal/runtime"
	"go.trai.ch/zerr"
)

// The account the service process runs as inside the final image.
//
// Identity is an explicit value threaded through the runtime stage rather
// than ambient state: every operation that needs the account receives it as
// an argument, and the exported image carries it in its config.
type Identity struct {
	Name string // Account name.
	UID  int    // Numeric user ID.
	GID  int    // Numeric group ID.
	Home string // Home directory inside the image.
}

// Whether the identity is safe to run the service as.
func (id Identity) Unprivileged() bool {
	return id.UID > 0 && id.GID > 0 && id.Name != "" && id.Name != "root"
}

// The numeric "uid:gid" form recorded in the image config. Numeric IDs keep
// the image's runtime identity independent of its /etc/passwd contents.
func (id Identity) String() string {
	return fmt.Sprintf("%d:%d", id.UID, id.GID)
}

// Accumulates the execution environment of the final image: identity,
// search path, working directory, exposed port, and default command.
//
// The identity assignment is one-way. [LaunchSpec.RunAs] accepts only an
// unprivileged identity and only once; nothing can re-elevate the spec
// afterwards, and [LaunchSpec.ImageConfig] refuses to produce a config
// until privileges have been dropped.
type LaunchSpec struct {
	identity    *Identity
	pathPrepend string
	workdir     string
	ports       []string
	cmd         []string
}

// Builds the launch spec declared by a build configuration.
//
// The identity is not part of the configuration-derived state; it is
// assigned separately via [LaunchSpec.RunAs] once the account exists in the
// runtime container.
func newLaunchSpec(f *buildfile.File) *LaunchSpec {
	return &LaunchSpec{
		pathPrepend: f.EnvBinDir(),
		workdir:     f.Build.Workdir,
		ports:       []string{f.Service.PortSpec()},
		cmd:         f.Service.LaunchCommand(),
	}
}

// Drops privileges: fixes the spec's execution identity to id.
//
// Fails if id is privileged or if an identity has already been assigned.
func (s *LaunchSpec) RunAs(id Identity) error {
	if s.identity != nil {
		return zerr.With(ErrIdentityFixed, "identity", s.identity.String())
	}
	if !id.Unprivileged() {
		return zerr.With(ErrPrivilegedIdentity, "identity", id.String())
	}

	s.identity = &id
	return nil
}

// Produces the image configuration for export.
//
// Fails until [LaunchSpec.RunAs] has assigned an identity, so an image can
// never be exported running as the privileged default account.
func (s *LaunchSpec) ImageConfig() (*runtime.ImageConfig, error) {
	if s.identity == nil {
		return nil, ErrIdentityUnset
	}

	return &runtime.ImageConfig{
		User:         s.identity.String(),
		PathPrepend:  s.pathPrepend,
		WorkingDir:   s.workdir,
		ExposedPorts: append([]string(nil), s.ports...),
		Cmd:          append([]string(nil), s.cmd...),
	}, nil
}
