package build

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	sysuser "github.com/moby/sys/user"
	"github.com/slipwayhq/slipwayd/internal/runtime"
	"go.trai.ch/zerr"
)

// Creates the unprivileged account in the runtime container and confirms
// it.
//
// The account-creation command is taken from the build configuration when
// set (for base images without shadow-utils) and synthesized from useradd
// otherwise. The container's /etc/passwd is then read back and the entry is
// checked against the configured uid and gid, so a provision command that
// silently created the wrong account fails the build here.
func (p *pipeline) provisionIdentity(ctx context.Context, ctr *runtime.Container) (Identity, error) {
	user := p.file.Runtime.User

	slog.Info("provisioning runtime identity", "user", user.Name, "uid", user.UID, "gid", user.GID)

	command := user.Provision
	if command == "" {
		command = fmt.Sprintf(
			"groupadd --gid %d %s && useradd --create-home --uid %d --gid %d %s",
			user.GID, user.Name, user.UID, user.GID, user.Name,
		)
	}

	result, err := ctr.Exec(ctx, stageShell, command, nil, "")
	if err != nil {
		return Identity{}, err
	}
	if result.ExitCode != 0 {
		provisionErr := zerr.With(ErrProvision, "exit_code", result.ExitCode)
		return Identity{}, zerr.With(provisionErr, "stderr", result.Stderr)
	}

	return p.confirmIdentity(ctx, ctr)
}

// Reads the runtime container's account database and returns the
// provisioned identity.
func (p *pipeline) confirmIdentity(ctx context.Context, ctr *runtime.Container) (Identity, error) {
	user := p.file.Runtime.User

	passwd, err := ctr.ReadFile(ctx, "/etc/passwd")
	if err != nil {
		return Identity{}, errors.Join(ErrProvision, err)
	}

	entries, err := sysuser.ParsePasswdFilter(bytes.NewReader(passwd), func(u sysuser.User) bool {
		return u.Name == user.Name
	})
	if err != nil {
		return Identity{}, errors.Join(ErrProvision, err)
	}
	if len(entries) == 0 {
		return Identity{}, zerr.With(ErrProvision, "reason", "account missing after provisioning")
	}

	entry := entries[0]
	if entry.Uid != user.UID || entry.Gid != user.GID {
		err := zerr.With(ErrProvision, "reason", "account ids differ from configuration")
		err = zerr.With(err, "uid", entry.Uid)
		return Identity{}, zerr.With(err, "gid", entry.Gid)
	}

	return Identity{
		Name: entry.Name,
		UID:  entry.Uid,
		GID:  entry.Gid,
		Home: entry.Home,
	}, nil
}

// Copies the builder stage's application tree into the runtime container.
//
// The tree streams from the builder container through a residue filter and
// an ownership rewrite into the runtime container: cache directories and
// bytecode files are dropped, and every remaining entry is stamped with the
// runtime identity before it is extracted. The application directory is
// created with the right owner first, so no file in the runtime filesystem
// is ever owned by the privileged default account.
func (p *pipeline) importArtifact(ctx context.Context, builder, rtCtr *runtime.Container, id Identity) error {
	workdir := p.file.Build.Workdir

	slog.Info("importing build artifact", "workdir", workdir, "owner", id.String())

	if err := rtCtr.EnsureOwnedDir(ctx, workdir, id.UID, id.GID); err != nil {
		return err
	}

	fromBuilder, intoFilter := io.Pipe()
	fromFilter, intoRuntime := io.Pipe()

	copyErr := make(chan error, 1)
	go func() {
		err := builder.CopyFrom(ctx, intoFilter, workdir)
		intoFilter.CloseWithError(err)
		copyErr <- err
	}()

	go func() {
		intoRuntime.CloseWithError(rewriteStream(intoRuntime, fromBuilder, func(name string) bool {
			return !isResidue(name)
		}, stampOwner(id)))
	}()

	if err := rtCtr.CopyTo(ctx, fromFilter, filepath.Dir(workdir)); err != nil {
		// Unblock the producing goroutines before collecting their result.
		fromFilter.CloseWithError(err)
		fromBuilder.CloseWithError(err)
		<-copyErr
		return errors.Join(ErrArtifactCopy, err)
	}

	if err := <-copyErr; err != nil {
		return errors.Join(ErrArtifactCopy, err)
	}

	return nil
}

// Re-reads the application tree from the runtime container and confirms
// every entry is owned by the runtime identity.
//
// This catches ownership leaks that the stream rewrite cannot see, such as
// files created inside the container by the provision command.
func (p *pipeline) verifyOwnership(ctx context.Context, ctr *runtime.Container, id Identity) error {
	workdir := p.file.Build.Workdir

	pr, pw := io.Pipe()

	copyErr := make(chan error, 1)
	go func() {
		err := ctr.CopyFrom(ctx, pw, workdir)
		pw.CloseWithError(err)
		copyErr <- err
	}()

	leak := scanOwnership(pr, id)
	io.Copy(io.Discard, pr)

	if err := <-copyErr; err != nil {
		return errors.Join(ErrArtifactCopy, err)
	}
	if leak != nil {
		return leak
	}

	slog.Debug("ownership verified", "workdir", workdir, "owner", id.String())
	return nil
}

// Checks that every entry of a tar stream is owned by the identity.
//
// The first foreign entry fails the scan; a read error means the stream
// itself broke and is reported as a copy failure.
func scanOwnership(r io.Reader, id Identity) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Join(ErrArtifactCopy, err)
		}

		if header.Uid != id.UID || header.Gid != id.GID {
			err := zerr.With(ErrOwnershipLeak, "path", header.Name)
			err = zerr.With(err, "uid", header.Uid)
			return zerr.With(err, "gid", header.Gid)
		}
	}
}
