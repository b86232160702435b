package internal

import (
	"strconv"
	"sync/atomic"
)

var (
	quietMode   atomic.Bool // Suppresses informational output.
	debugMode   atomic.Bool // Enables debug output.
	verboseMode atomic.Bool // Enables verbose logging.
)

// Seeds the runtime modes from build-time linker flags.
//
// The rawQuiet, rawDebug, and rawVerbose variables may be set via ldflags.
// Unset or unparsable values leave the corresponding mode disabled.
func init() {
	quietMode.Store(parseMode(rawQuiet))
	debugMode.Store(parseMode(rawDebug))
	verboseMode.Store(parseMode(rawVerbose))
}

// Parses a linker-flag boolean, treating garbage as false.
func parseMode(raw string) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}
