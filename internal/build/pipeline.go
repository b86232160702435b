package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/slipwayhq/slipwayd/internal/buildfile"
	"github.com/slipwayhq/slipwayd/internal/envcache"
	"github.com/slipwayhq/slipwayd/internal/manifest"
	"github.com/slipwayhq/slipwayd/internal/paths"
	"github.com/slipwayhq/slipwayd/internal/runtime"
	"go.trai.ch/zerr"
)

// Holds shared state for one pipeline run across all platforms.
type pipeline struct {
	rt         *runtime.Runtime     // Container runtime for image and container operations.
	file       *buildfile.File      // Validated build configuration.
	manifest   *manifest.Manifest   // Verified dependency manifest.
	lockfile   *manifest.Lockfile   // Verified lockfile.
	buildID    string               // Identifier of this build.
	cache      *envcache.Store      // Dependency environment cache.
	output     string               // Output directory for the final images.
	platforms  []string             // Target platforms to build for.
	verify     bool                 // Whether to check ownership of the final tree.
	noCache    bool                 // Whether to bypass the environment cache.
	containers []*runtime.Container // All stage containers, destroyed after the run.
}

// Creates a new [pipeline] from the given options and verified inputs.
func newPipeline(rt *runtime.Runtime, opts Options, m *manifest.Manifest, l *manifest.Lockfile) *pipeline {
	return &pipeline{
		rt:        rt,
		file:      opts.File,
		manifest:  m,
		lockfile:  l,
		buildID:   newBuildID(),
		cache:     envcache.New(paths.EnvCache()),
		output:    opts.Output,
		platforms: opts.Platforms,
		verify:    opts.Verify,
		noCache:   opts.NoCache,
	}
}

// Runs the pipeline for every target platform.
//
// Platforms are built independently and in sequence; dependency
// environments are platform-specific, so nothing is shared between them
// except the cache. All stage containers are destroyed when the run
// completes, successful or not.
func (p *pipeline) run(ctx context.Context) error {
	defer p.destroyContainers(ctx)

	for _, platform := range p.platforms {
		if err := p.buildPlatform(ctx, platform); err != nil {
			wrapped := zerr.Wrap(err, ErrBuild.Error())
			return zerr.With(wrapped, "platform", platform)
		}
	}

	return nil
}

// Builds the image for a single platform: builder stage, then runtime
// stage, then export.
//
// The runtime stage does not begin until the builder stage's filesystem
// state is final; its output is consumed only as a copied tar stream.
func (p *pipeline) buildPlatform(ctx context.Context, platform string) error {
	slog.Info("building platform", "platform", platform)

	output := p.platformOutput(platform)
	if err := os.MkdirAll(output, paths.DefaultDirMode); err != nil {
		return errors.Join(ErrFileSystemOperation, err)
	}

	builder, err := p.startStage(ctx, "builder", p.file.Build.From, platform)
	if err != nil {
		return err
	}

	if err := p.materialize(ctx, builder, platform); err != nil {
		return err
	}
	if err := p.overlaySource(ctx, builder); err != nil {
		return err
	}

	rtCtr, err := p.startStage(ctx, "runtime", p.file.Runtime.From, platform)
	if err != nil {
		return err
	}

	identity, err := p.provisionIdentity(ctx, rtCtr)
	if err != nil {
		return err
	}

	if err := p.importArtifact(ctx, builder, rtCtr, identity); err != nil {
		return err
	}

	if p.verify {
		if err := p.verifyOwnership(ctx, rtCtr, identity); err != nil {
			return err
		}
	}

	launch := newLaunchSpec(p.file)
	if err := launch.RunAs(identity); err != nil {
		return err
	}

	cfg, err := launch.ImageConfig()
	if err != nil {
		return err
	}

	if err := rtCtr.Stop(ctx); err != nil {
		return err
	}

	return rtCtr.Export(ctx, output, cfg)
}

// Starts a stage container from a base OCI archive.
func (p *pipeline) startStage(ctx context.Context, stage, from, platform string) (*runtime.Container, error) {
	slog.Info(fmt.Sprintf("starting %s stage", stage), "from", filepath.Base(from), "platform", platform)

	ctr, err := p.rt.StartContainer(ctx, from, p.containerID(stage, platform), platform)
	if err != nil {
		return nil, err
	}

	p.containers = append(p.containers, ctr)
	return ctr, nil
}

// Destroys all stage containers.
func (p *pipeline) destroyContainers(ctx context.Context) {
	for _, ctr := range p.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for a stage, scoped to this service and
// platform.
func (p *pipeline) containerID(stage, platform string) string {
	return fmt.Sprintf("%s-%s-%s", p.file.Service.Name, platformSlug(platform), stage)
}

// Returns the output directory for a specific platform.
//
// When building for a single platform, the output directory is left as-is
// to preserve the {output}/image.tar convention. For multi-platform builds,
// each platform gets a subdirectory (e.g., {output}/linux-amd64).
func (p *pipeline) platformOutput(platform string) string {
	if len(p.platforms) == 1 {
		return p.output
	}
	return filepath.Join(p.output, platformSlug(platform))
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func platformSlug(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
