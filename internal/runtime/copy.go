package runtime

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustExec(ctx, "mkdir", nil, nil, "mkdir", "-p", path)
}

// Creates a directory inside the container and assigns it to the given
// owner, including parents.
//
// Parents created along the way keep their default ownership; only the leaf
// directory is chowned. Callers that need an owned tree copy it in with
// ownership rewritten in the stream instead.
func (c *Container) EnsureOwnedDir(ctx context.Context, path string, uid, gid int) error {
	if err := c.MkdirAll(ctx, path); err != nil {
		return err
	}
	owner := fmt.Sprintf("%d:%d", uid, gid)
	return c.mustExec(ctx, "chown", nil, nil, "chown", owner, path)
}

// Copies a tar stream into the container's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf - -C
// destDir" inside the container.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustExec(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// Copies a path from the container's filesystem as a tar stream.
//
// The file or directory at path is archived by running "tar cf - -C <dir>
// <base>" inside the container and streaming the output to w.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return c.mustExec(ctx, "tar archive", nil, w, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path))
}

// Reads a single regular file from the container's filesystem.
func (c *Container) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var archive bytes.Buffer
	if err := c.CopyFrom(ctx, &archive, path); err != nil {
		return nil, err
	}

	want := filepath.Base(path)

	tr := tar.NewReader(&archive)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrRuntime, err)
		}
		if filepath.Clean(header.Name) != want || header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Join(ErrRuntime, err)
		}
		return data, nil
	}

	return nil, zerr.With(ErrFileNotFound, "path", path)
}

// Helper method that runs a command inside the container, returning an error
// that includes desc if the process exits with a non-zero code.
func (c *Container) mustExec(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	exitCode, stderr, err := c.execCommand(ctx, stdin, stdout, nil, "", args...)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		err := zerr.With(ErrRuntime, "operation", desc)
		err = zerr.With(err, "exit_code", exitCode)
		return zerr.With(err, "stderr", stderr)
	}
	return nil
}
