package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/slipwayhq/slipwayd/internal/buildfile"
	"github.com/slipwayhq/slipwayd/internal/manifest"
	"github.com/slipwayhq/slipwayd/internal/paths"
	"github.com/slipwayhq/slipwayd/internal/runtime"
)

// Subdirectory of the project root that receives the image when no output
// directory is given.
const defaultOutputDir = "dist"

// Controls a pipeline run.
type Options struct {
	File      *buildfile.File // Validated build configuration.
	Output    string          // Directory for the exported image. Defaults to <root>/dist.
	Platforms []string        // Target platforms (e.g., ["linux/amd64"]). Defaults to host.
	Verify    bool            // Re-read the final application tree and check its ownership.
	NoCache   bool            // Skip the environment cache for this run.
}

// Returned after a successful pipeline run.
type Result struct {
	BuildID   string   // Identifier of this build.
	Output    string   // Directory containing the exported image.
	Platforms []string // Platforms that were built.
}

// Runs the two-stage pipeline against the container runtime.
//
// The dependency inputs are loaded and verified first: a missing, malformed,
// or incomplete lockfile aborts the build before any container is created.
// Platforms are then built in sequence, each producing one OCI archive in
// the output directory.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{runtime.DefaultPlatform()}
	}
	if opts.Output == "" {
		opts.Output = filepath.Join(opts.File.Root, defaultOutputDir)
	}

	m, l, err := verifyInputs(opts.File)
	if err != nil {
		return nil, err
	}

	p := newPipeline(rt, opts, m, l)

	slog.Info("building image",
		"service", opts.File.Service.Name,
		"build_id", p.buildID,
		"output", opts.Output,
		"platforms", opts.Platforms,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, errors.Join(ErrFileSystemOperation, err)
	}

	if err := p.run(ctx); err != nil {
		return nil, err
	}

	return &Result{
		BuildID:   p.buildID,
		Output:    opts.Output,
		Platforms: opts.Platforms,
	}, nil
}

// Loads the dependency manifest and lockfile and confirms their
// consistency.
//
// Verification is fail-closed and happens before any stage container
// exists, so a build with a stale lockfile never writes a byte to the
// dependency environment.
func verifyInputs(f *buildfile.File) (*manifest.Manifest, *manifest.Lockfile, error) {
	m, err := manifest.LoadManifest(f.Build.Manifest)
	if err != nil {
		return nil, nil, err
	}

	l, err := manifest.LoadLockfile(f.Build.Lockfile)
	if err != nil {
		return nil, nil, err
	}

	if err := manifest.Verify(m, l); err != nil {
		return nil, nil, err
	}

	slog.Debug("dependency inputs verified",
		"project", m.Name,
		"requirements", len(m.Requirements),
		"locked", len(l.Packages),
	)

	return m, l, nil
}

// Returns a fresh build identifier.
func newBuildID() string {
	return uuid.NewString()
}
