package protocol

import (
	"bytes"
	"encoding/json"

	"go.trai.ch/zerr"
)

// Identifies a request or response type.
type Command string

const (

	// Requests accepted by the daemon.
	CmdBuild      Command = "build"
	CmdStatus     Command = "status"
	CmdCachePurge Command = "cache-purge"
	CmdShutdown   Command = "shutdown"

	// Responses sent by the daemon.
	CmdOK    Command = "ok"
	CmdError Command = "error"
)

// Carries one message in either direction.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Serializes a command and payload into a single-line JSON envelope.
//
// A nil payload produces an envelope without a payload field.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to encode payload")
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode envelope")
	}
	return data, nil
}

// Parses a single-line JSON envelope.
//
// Returns the envelope and its raw payload for command-specific decoding via
// [DecodePayload].
func Decode(line []byte) (*Envelope, json.RawMessage, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil, ErrEmptyMessage
	}

	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, zerr.Wrap(err, "malformed envelope")
	}

	if env.Command == "" {
		return nil, nil, ErrMissingCommand
	}

	return &env, env.Payload, nil
}

// Parses a raw payload into the given type.
//
// Unknown fields are rejected so that version skew between the CLI and the
// daemon surfaces as an error instead of silently dropped options.
func DecodePayload[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 {
		return nil, ErrMissingPayload
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var payload T
	if err := decoder.Decode(&payload); err != nil {
		return nil, zerr.Wrap(err, "malformed payload")
	}
	return &payload, nil
}
