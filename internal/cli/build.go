package cli

import (
	"context"
	"log/slog"

	"github.com/slipwayhq/slipwayd/internal/build"
	"github.com/slipwayhq/slipwayd/internal/buildfile"
	"github.com/slipwayhq/slipwayd/internal/runtime"
	"github.com/slipwayhq/slipwayd/internal/server"
)

// Represents the 'slipwayd build' command.
type BuildCmd struct {
	Root                string   `arg:"" optional:"" default:"." help:"Project root containing slipway.yaml."`
	Output              string   `short:"o" help:"Directory for the exported image. Defaults to <root>/dist." placeholder:"DIR"`
	Platform            []string `help:"Target platform, repeatable. Defaults to the host platform." placeholder:"OS/ARCH"`
	NoCache             bool     `help:"Skip the dependency environment cache."`
	NoVerify            bool     `help:"Skip ownership verification of the final application tree."`
	ContainerdAddress   string   `help:"Containerd socket address." placeholder:"PATH"`
	ContainerdNamespace string   `help:"Containerd namespace." placeholder:"NAME"`
}

// Executes the build command.
//
// Runs the two-stage pipeline directly, without going through a running
// daemon.
func (c *BuildCmd) Run(ctx context.Context) error {
	file, err := buildfile.Load(c.Root)
	if err != nil {
		return err
	}

	address := c.ContainerdAddress
	if address == "" {
		address = server.DefaultContainerdAddress
	}
	namespace := c.ContainerdNamespace
	if namespace == "" {
		namespace = server.DefaultContainerdNamespace
	}

	rt, err := runtime.New(address, namespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := build.Run(ctx, rt, build.Options{
		File:      file,
		Output:    c.Output,
		Platforms: c.Platform,
		Verify:    !c.NoVerify,
		NoCache:   c.NoCache,
	})
	if err != nil {
		return err
	}

	slog.Info("build complete",
		"build_id", result.BuildID,
		"output", result.Output,
		"platforms", result.Platforms,
	)
	return nil
}
