package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/slipwayhq/slipwayd/internal/envcache"
	"github.com/slipwayhq/slipwayd/internal/runtime"
	"go.trai.ch/zerr"
)

// Shell used for commands executed inside stage containers.
const stageShell = "/bin/sh"

// Materializes the dependency environment in the builder container.
//
// The cache is consulted first: when a previous build used the same
// manifest, lockfile, base image, platform, and installer, the archived
// environment is restored and the installer never runs. On a miss, the
// manifest and lockfile are copied into the work directory before anything
// else, the installer command runs against them, and the resulting
// environment directory is archived into the cache for the next build.
func (p *pipeline) materialize(ctx context.Context, ctr *runtime.Container, platform string) error {
	workdir := p.file.Build.Workdir

	if err := ctr.MkdirAll(ctx, workdir); err != nil {
		return err
	}

	key, err := p.cacheKey(platform)
	if err != nil {
		return err
	}

	if !p.noCache {
		restored, err := p.restoreEnvironment(ctx, ctr, key)
		switch {
		case err != nil:
			slog.Warn("environment cache unavailable", "error", err)
			// A failed restore may have extracted part of the archive;
			// the installer must start from a clean directory.
			if err := p.discardEnvironment(ctx, ctr); err != nil {
				return err
			}
		case restored:
			return nil
		}
	}

	if err := p.copyFileTo(ctx, ctr, p.file.Build.Manifest, workdir); err != nil {
		return err
	}
	if err := p.copyFileTo(ctx, ctr, p.file.Build.Lockfile, workdir); err != nil {
		return err
	}

	slog.Info("materializing dependencies", "installer", p.file.Environment.Installer)

	result, err := ctr.Exec(ctx, stageShell, p.file.Environment.Installer, installEnv(), workdir)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		installErr := zerr.With(ErrInstall, "exit_code", result.ExitCode)
		return zerr.With(installErr, "stderr", result.Stderr)
	}

	if !p.noCache {
		if err := p.archiveEnvironment(ctx, ctr, key); err != nil {
			slog.Warn("failed to cache environment", "error", err)
		}
	}

	return nil
}

// Environment for the installer process.
//
// Bytecode generation is suppressed so the environment stays free of
// build residue from the start; whatever the interpreter would compile
// lazily at import time is compiled inside the runtime container instead.
func installEnv() []string {
	return []string{"PYTHONDONTWRITEBYTECODE=1"}
}

// Computes the environment cache key for a platform.
//
// Application source is deliberately not an input: a build where only
// source changed must reuse the cached environment.
func (p *pipeline) cacheKey(platform string) (envcache.Key, error) {
	manifestRaw, err := os.ReadFile(p.file.Build.Manifest)
	if err != nil {
		return envcache.Key{}, errors.Join(ErrFileSystemOperation, err)
	}

	lockfileRaw, err := os.ReadFile(p.file.Build.Lockfile)
	if err != nil {
		return envcache.Key{}, errors.Join(ErrFileSystemOperation, err)
	}

	base, err := envcache.FingerprintFile(p.file.Build.From)
	if err != nil {
		return envcache.Key{}, err
	}

	return envcache.Key{
		Manifest:  manifestRaw,
		Lockfile:  lockfileRaw,
		Base:      base,
		Platform:  platform,
		Installer: p.file.Environment.Installer,
		EnvDir:    p.file.EnvDir(),
	}, nil
}

// Restores a cached environment archive into the builder container.
//
// Returns true when a cached environment was found and extracted into the
// work directory.
func (p *pipeline) restoreEnvironment(ctx context.Context, ctr *runtime.Container, key envcache.Key) (bool, error) {
	blob, ok, err := p.cache.Open(key)
	if err != nil || !ok {
		return false, err
	}
	defer blob.Close()

	if err := ctr.CopyTo(ctx, blob, p.file.Build.Workdir); err != nil {
		return false, err
	}

	slog.Info("environment restored from cache", "fingerprint", key.Fingerprint())
	return true, nil
}

// Removes the environment directory from the builder container.
func (p *pipeline) discardEnvironment(ctx context.Context, ctr *runtime.Container) error {
	result, err := ctr.Exec(ctx, stageShell, "rm -rf "+p.file.EnvDir(), nil, "")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		cleanErr := zerr.With(ErrInstall, "exit_code", result.ExitCode)
		return zerr.With(cleanErr, "stderr", result.Stderr)
	}
	return nil
}

// Archives the materialized environment directory into the cache.
func (p *pipeline) archiveEnvironment(ctx context.Context, ctr *runtime.Container, key envcache.Key) error {
	pr, pw := io.Pipe()

	// A failed copy must surface on the pipe: closing with the error makes
	// Save fail instead of committing a truncated archive on a clean EOF.
	errc := make(chan error, 1)
	go func() {
		err := ctr.CopyFrom(ctx, pw, p.file.EnvDir())
		pw.CloseWithError(err)
		errc <- err
	}()

	saveErr := p.cache.Save(key, envcache.Meta{
		Project:  p.manifest.Name,
		Platform: key.Platform,
	}, pr)
	if saveErr != nil {
		// Unblock the archiving goroutine if the save aborted mid-stream.
		pr.CloseWithError(saveErr)
	}

	if err := <-errc; err != nil {
		return err
	}
	return saveErr
}

// Copies the application source tree from the host into the builder's work
// directory, on top of the dependency environment.
//
// Version control metadata, any local environment directory, and bytecode
// residue are excluded at the source; the dependency environment already in
// the container is never touched.
func (p *pipeline) overlaySource(ctx context.Context, ctr *runtime.Container) error {
	slog.Info("overlaying application source", "root", p.file.Root)

	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(writeTreeTar(pw, p.file.Root, p.sourceExcluded))
	}()

	if err := ctr.CopyTo(ctx, pr, p.file.Build.Workdir); err != nil {
		pr.CloseWithError(err)
		return errors.Join(ErrArtifactCopy, err)
	}

	return nil
}

// Whether a source tree entry is kept out of the build.
func (p *pipeline) sourceExcluded(rel string) bool {
	top := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		top = rel[:i]
	}
	if top == ".git" || top == p.file.Environment.Dir {
		return true
	}
	return isResidue(rel)
}

// Copies a single host file into a container directory.
func (p *pipeline) copyFileTo(ctx context.Context, ctr *runtime.Container, hostPath, destDir string) error {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(writeFileTar(pw, hostPath, filepath.Base(hostPath)))
	}()

	if err := ctr.CopyTo(ctx, pr, destDir); err != nil {
		pr.CloseWithError(err)
		return errors.Join(ErrArtifactCopy, err)
	}

	return nil
}
