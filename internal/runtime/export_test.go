package runtime

import (
	"reflect"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestManifestGCLabels(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{
			Digest: digest.FromString("config"),
		},
		Layers: []ocispec.Descriptor{
			{Digest: digest.FromString("layer0")},
			{Digest: digest.FromString("layer1")},
		},
	}

	labels := manifestGCLabels(m)

	configLabel := labels["containerd.io/gc.ref.content.config"]
	if configLabel != m.Config.Digest.String() {
		t.Fatalf("config label = %q, want %q", configLabel, m.Config.Digest.String())
	}

	for i, layer := range m.Layers {
		key := "containerd.io/gc.ref.content.l." + string(rune('0'+i))
		got := labels[key]
		if got != layer.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, got, layer.Digest.String())
		}
	}

	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
}

func TestManifestGCLabelsNoLayers(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{
			Digest: digest.FromString("config-only"),
		},
	}

	labels := manifestGCLabels(m)
	if len(labels) != 1 {
		t.Fatalf("len(labels) = %d, want 1", len(labels))
	}
	if labels["containerd.io/gc.ref.content.config"] != m.Config.Digest.String() {
		t.Fatal("config label mismatch")
	}
}

func TestApplyImageConfig(t *testing.T) {
	config := ocispec.Image{}
	config.Config.Entrypoint = []string{"/docker-entrypoint.sh"}
	config.Config.Cmd = []string{"python3"}
	config.Config.Env = []string{"PATH=/usr/local/bin:/usr/bin", "LANG=C.UTF-8"}

	applyImageConfig(&config, &ImageConfig{
		User:         "1000:1000",
		PathPrepend:  "/app/.venv/bin",
		WorkingDir:   "/app",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"uvicorn", "app.main:app", "--host", "0.0.0.0", "--port", "8000"},
	})

	if config.Config.User != "1000:1000" {
		t.Errorf("user = %q, want 1000:1000", config.Config.User)
	}
	if config.Config.WorkingDir != "/app" {
		t.Errorf("working dir = %q, want /app", config.Config.WorkingDir)
	}
	if config.Config.Entrypoint != nil {
		t.Errorf("entrypoint = %v, want cleared", config.Config.Entrypoint)
	}

	wantCmd := []string{"uvicorn", "app.main:app", "--host", "0.0.0.0", "--port", "8000"}
	if !reflect.DeepEqual(config.Config.Cmd, wantCmd) {
		t.Errorf("cmd = %v, want %v", config.Config.Cmd, wantCmd)
	}

	if _, ok := config.Config.ExposedPorts["8000/tcp"]; !ok {
		t.Errorf("exposed ports = %v, missing 8000/tcp", config.Config.ExposedPorts)
	}

	wantPath := "PATH=/app/.venv/bin:/usr/local/bin:/usr/bin"
	if config.Config.Env[0] != wantPath {
		t.Errorf("env[0] = %q, want %q", config.Config.Env[0], wantPath)
	}
}

func TestApplyImageConfigZeroValues(t *testing.T) {
	config := ocispec.Image{}
	config.Config.User = "base"
	config.Config.WorkingDir = "/srv"
	config.Config.Cmd = []string{"python3"}

	applyImageConfig(&config, &ImageConfig{})

	if config.Config.User != "base" || config.Config.WorkingDir != "/srv" {
		t.Error("zero-valued config overwrote base settings")
	}
	if !reflect.DeepEqual(config.Config.Cmd, []string{"python3"}) {
		t.Errorf("cmd = %v, want base cmd preserved", config.Config.Cmd)
	}
}

func TestPrependPath(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		want string
	}{
		{
			name: "existing path entry",
			env:  []string{"LANG=C", "PATH=/usr/bin:/bin"},
			want: "PATH=/opt/env/bin:/usr/bin:/bin",
		},
		{
			name: "no path entry",
			env:  []string{"LANG=C"},
			want: "PATH=/opt/env/bin:" + defaultImagePath,
		},
		{
			name: "empty env",
			env:  nil,
			want: "PATH=/opt/env/bin:" + defaultImagePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := prependPath(tt.env, "/opt/env/bin")

			var got string
			for _, entry := range env {
				if len(entry) > 5 && entry[:5] == "PATH=" {
					got = entry
					break
				}
			}
			if got != tt.want {
				t.Errorf("PATH entry = %q, want %q", got, tt.want)
			}
		})
	}
}
