// Defines the wire protocol between the CLI and the daemon.
//
// Messages are newline-delimited JSON envelopes carrying a command name and
// an optional payload:
//
//	{"command":"build","payload":{"root":"/src/api","output":"dist"}}
//
// Each connection carries exactly one request and one response. Responses
// reuse the envelope shape with the "ok" or "error" command.
package protocol
