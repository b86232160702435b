package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIRendersMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeCLI, &buf, nil)

	logger.Info("image exported", "platform", "linux/amd64", "layers", 2)

	line := buf.String()
	for _, want := range []string{"INFO", "image exported", "platform=linux/amd64", "layers=2"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestCLIQuotesAmbiguousValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeCLI, &buf, nil)

	logger.Info("exec", "command", "uv sync --frozen")

	if want := `command="uv sync --frozen"`; !strings.Contains(buf.String(), want) {
		t.Errorf("output %q missing %q", buf.String(), want)
	}
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeCLI, &buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing, got %q", out)
	}
}

func TestCLIGroupsFlattenToDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeCLI, &buf, nil).WithGroup("build").With("id", "ab12")

	logger.Info("started")

	if want := "build.id=ab12"; !strings.Contains(buf.String(), want) {
		t.Errorf("output %q missing %q", buf.String(), want)
	}
}

func TestJSONRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeJSON, &buf, nil)

	logger.Info("image exported", "output", "dist/image.tar")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "image exported" {
		t.Errorf("msg = %v, want %q", record["msg"], "image exported")
	}
	if record["output"] != "dist/image.tar" {
		t.Errorf("output attr = %v, want %q", record["output"], "dist/image.tar")
	}
}

func TestNilLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(ModeCLI, &buf, nil)

	logger.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("debug record should be filtered by default, got %q", buf.String())
	}
}
