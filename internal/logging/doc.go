// Provides the slog handlers used by the daemon and CLI.
//
// Two rendering modes are supported: a terse line-oriented format for
// terminals and plain JSON for log collectors. The active logger is seeded
// from build-time defaults in main and rebuilt after flag parsing.
package logging
