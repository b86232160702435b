package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/slipwayhq/slipwayd/internal"
	"github.com/slipwayhq/slipwayd/internal/build"
	"github.com/slipwayhq/slipwayd/internal/buildfile"
	"github.com/slipwayhq/slipwayd/internal/protocol"
)

// Handles a build command.
//
// Loads the project's build configuration and runs the two-stage pipeline
// against the container runtime. Ownership verification is on unless the
// request opts out.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	file, err := buildfile.Load(req.Root)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	output := req.Output
	if output != "" && !filepath.IsAbs(output) {
		output = filepath.Join(file.Root, output)
	}

	result, err := build.Run(ctx, s.runtime, build.Options{
		File:      file,
		Output:    output,
		Platforms: req.Platforms,
		Verify:    !req.NoVerify,
		NoCache:   req.NoCache,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		BuildID:   result.BuildID,
		Output:    result.Output,
		Platforms: result.Platforms,
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
	})
}

// Handles a cache-purge command.
//
// Removes every cached dependency environment. Running builds are
// unaffected; they hold open file handles on any blob they are reading.
func (s *Server) handleCachePurge(conn net.Conn) {
	removed, err := s.cache.Purge()
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	slog.Info("environment cache purged", "removed", removed)

	s.respond(conn, protocol.CmdOK, &protocol.CachePurgeResult{Removed: removed})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
