package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/slipwayhq/slipwayd/internal"
	"github.com/slipwayhq/slipwayd/internal/logging"
)

// Represents the root command for the slipwayd daemon.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	JSON    bool       `help:"Log as JSON instead of terminal lines."`
	Socket  string     `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Build   BuildCmd   `cmd:"" help:"Build a project image."`
	Start   StartCmd   `cmd:"" help:"Start the daemon."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The slipway build daemon.\n\nTurns a project directory into a least-privilege runtime image, either directly or on command over a Unix domain socket."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
//
// Flags are merged with build-time defaults set via linker flags, then a
// fresh logger replaces the one seeded in main.
func configureLogger() {
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())

	mode := logging.ModeCLI
	if RootCmd.JSON {
		mode = logging.ModeJSON
	}

	slog.SetDefault(logging.New(mode, os.Stderr, logLevel()))
}

// Returns the log level implied by the active modes.
func logLevel() slog.Level {
	switch {
	case internal.IsDebug() || internal.IsVerbose():
		return slog.LevelDebug
	case internal.IsQuiet():
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
