// Parses flags and configures logging for the slipwayd daemon.
//
// The daemon accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	    --json      Log as JSON instead of terminal lines.
//	-s, --socket    Unix socket path.
//
// Flags override build-time defaults set via linker flags. After parsing,
// the global logger is reconfigured to reflect the final level and format
// before the selected command runs.
package cli
