package build

import (
	"errors"
	"reflect"
	"testing"

	"github.com/slipwayhq/slipwayd/internal/buildfile"
)

func serviceFile(t *testing.T) *buildfile.File {
	t.Helper()
	f, err := buildfile.Parse([]byte(`
version: 1
build:
  from: images/python-dev.tar
runtime:
  from: images/python-slim.tar
`), t.TempDir())
	if err != nil {
		t.Fatalf("parsing buildfile: %v", err)
	}
	return f
}

func appIdentity() Identity {
	return Identity{Name: "app", UID: 1000, GID: 1000, Home: "/home/app"}
}

func TestLaunchSpecImageConfig(t *testing.T) {
	spec := newLaunchSpec(serviceFile(t))

	if err := spec.RunAs(appIdentity()); err != nil {
		t.Fatalf("RunAs: %v", err)
	}

	cfg, err := spec.ImageConfig()
	if err != nil {
		t.Fatalf("ImageConfig: %v", err)
	}

	if cfg.User != "1000:1000" {
		t.Errorf("user = %q, want 1000:1000", cfg.User)
	}
	if cfg.PathPrepend != "/app/.venv/bin" {
		t.Errorf("path prepend = %q, want /app/.venv/bin", cfg.PathPrepend)
	}
	if cfg.WorkingDir != "/app" {
		t.Errorf("working dir = %q, want /app", cfg.WorkingDir)
	}
	if !reflect.DeepEqual(cfg.ExposedPorts, []string{"8000/tcp"}) {
		t.Errorf("exposed ports = %v, want [8000/tcp]", cfg.ExposedPorts)
	}

	wantCmd := []string{"uvicorn", "app.main:app", "--host", "0.0.0.0", "--port", "8000"}
	if !reflect.DeepEqual(cfg.Cmd, wantCmd) {
		t.Errorf("cmd = %v, want %v", cfg.Cmd, wantCmd)
	}
}

func TestLaunchSpecRefusesPrivilegedIdentity(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
	}{
		{"root uid", Identity{Name: "app", UID: 0, GID: 1000}},
		{"root gid", Identity{Name: "app", UID: 1000, GID: 0}},
		{"root name", Identity{Name: "root", UID: 1000, GID: 1000}},
		{"empty name", Identity{UID: 1000, GID: 1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := newLaunchSpec(serviceFile(t))
			if err := spec.RunAs(tt.id); !errors.Is(err, ErrPrivilegedIdentity) {
				t.Errorf("RunAs(%v) = %v, want ErrPrivilegedIdentity", tt.id, err)
			}
		})
	}
}

func TestLaunchSpecIdentityIsOneWay(t *testing.T) {
	spec := newLaunchSpec(serviceFile(t))

	if err := spec.RunAs(appIdentity()); err != nil {
		t.Fatalf("RunAs: %v", err)
	}

	other := Identity{Name: "other", UID: 2000, GID: 2000}
	if err := spec.RunAs(other); !errors.Is(err, ErrIdentityFixed) {
		t.Fatalf("second RunAs = %v, want ErrIdentityFixed", err)
	}

	cfg, err := spec.ImageConfig()
	if err != nil {
		t.Fatalf("ImageConfig: %v", err)
	}
	if cfg.User != "1000:1000" {
		t.Errorf("user = %q, want the first identity to stick", cfg.User)
	}
}

func TestLaunchSpecRequiresIdentity(t *testing.T) {
	spec := newLaunchSpec(serviceFile(t))

	if _, err := spec.ImageConfig(); !errors.Is(err, ErrIdentityUnset) {
		t.Fatalf("ImageConfig = %v, want ErrIdentityUnset", err)
	}
}

func TestLaunchSpecCommandOverride(t *testing.T) {
	f, err := buildfile.Parse([]byte(`
version: 1
service:
  command: ["gunicorn", "-k", "uvicorn.workers.UvicornWorker", "app.main:app"]
build:
  from: images/python-dev.tar
runtime:
  from: images/python-slim.tar
`), t.TempDir())
	if err != nil {
		t.Fatalf("parsing buildfile: %v", err)
	}

	spec := newLaunchSpec(f)
	if err := spec.RunAs(appIdentity()); err != nil {
		t.Fatalf("RunAs: %v", err)
	}

	cfg, err := spec.ImageConfig()
	if err != nil {
		t.Fatalf("ImageConfig: %v", err)
	}

	want := []string{"gunicorn", "-k", "uvicorn.workers.UvicornWorker", "app.main:app"}
	if !reflect.DeepEqual(cfg.Cmd, want) {
		t.Errorf("cmd = %v, want %v", cfg.Cmd, want)
	}
}
