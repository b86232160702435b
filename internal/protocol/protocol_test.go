package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := Encode(CmdBuild, &BuildRequest{
		Root:      "/src/api",
		Output:    "dist",
		Platforms: []string{"linux/amd64"},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsRune(string(data), '\n') {
		t.Fatalf("envelope must be a single line, got %q", data)
	}

	env, raw, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdBuild {
		t.Errorf("command = %q, want %q", env.Command, CmdBuild)
	}

	req, err := DecodePayload[BuildRequest](raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if req.Root != "/src/api" || req.Output != "dist" {
		t.Errorf("payload = %+v", req)
	}
	if len(req.Platforms) != 1 || req.Platforms[0] != "linux/amd64" {
		t.Errorf("platforms = %v", req.Platforms)
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	data, err := Encode(CmdShutdown, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Errorf("nil payload should be omitted, got %s", data)
	}

	env, raw, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Command != CmdShutdown {
		t.Errorf("command = %q", env.Command)
	}
	if raw != nil {
		t.Errorf("payload = %q, want none", raw)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrEmptyMessage},
		{"whitespace", "  \n", ErrEmptyMessage},
		{"no command", `{"payload":{}}`, ErrMissingCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.line))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode(%q) = %v, want %v", tt.line, err, tt.want)
			}
		})
	}

	if _, _, err := Decode([]byte("not json")); err == nil {
		t.Error("Decode accepted malformed JSON")
	}
}

func TestDecodePayloadRejectsUnknownFields(t *testing.T) {
	if _, err := DecodePayload[BuildRequest]([]byte(`{"root":"/src","bogus":1}`)); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestDecodePayloadRequiresPayload(t *testing.T) {
	if _, err := DecodePayload[BuildRequest](nil); !errors.Is(err, ErrMissingPayload) {
		t.Errorf("err = %v, want ErrMissingPayload", err)
	}
}
