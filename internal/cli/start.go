package cli

import (
	"context"
	"log/slog"

	"github.com/slipwayhq/slipwayd/internal/server"
)

// Represents the 'slipwayd start' command.
type StartCmd struct {
	ContainerdAddress   string `help:"Containerd socket address." placeholder:"PATH"`
	ContainerdNamespace string `help:"Containerd namespace." placeholder:"NAME"`
}

// Executes the start command.
//
// Starts the daemon on a Unix domain socket and blocks until the context
// is cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		SocketPath:          RootCmd.Socket,
		ContainerdAddress:   c.ContainerdAddress,
		ContainerdNamespace: c.ContainerdNamespace,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("slipwayd is running")

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return srv.Stop()
	case <-stopped:
		// Shut down by a client command.
		return nil
	}
}
