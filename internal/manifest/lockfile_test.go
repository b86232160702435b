package manifest

import (
	"errors"
	"path/filepath"
	"testing"
)

const lockfileFixture = `
version = 1
requires-python = ">=3.12"

[[package]]
name = "heroes-api"
version = "0.1.0"
source = { editable = "." }
dependencies = [
    { name = "fastapi" },
    { name = "typing_extensions", marker = "python_full_version < '3.13'" },
]

[[package]]
name = "fastapi"
version = "0.110.0"
source = { registry = "https://pypi.org/simple" }
dependencies = [
    { name = "typing-extensions" },
]
sdist = { url = "https://example.invalid/fastapi-0.110.0.tar.gz", hash = "sha256:0000", size = 100 }
wheels = [
    { url = "https://example.invalid/fastapi-0.110.0-py3-none-any.whl", hash = "sha256:1111", size = 90 },
]

[[package]]
name = "typing-extensions"
version = "4.12.2"
source = { registry = "https://pypi.org/simple" }
`

func TestLoadLockfile(t *testing.T) {
	l, err := LoadLockfile(writeFixture(t, "uv.lock", lockfileFixture))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}

	if l.Version != 1 {
		t.Errorf("version = %d, want 1", l.Version)
	}
	if len(l.Packages) != 3 {
		t.Errorf("packages = %d, want 3", len(l.Packages))
	}

	pkg, ok := l.Package("fastapi")
	if !ok {
		t.Fatal("fastapi not covered")
	}
	if pkg.Version != "0.110.0" {
		t.Errorf("fastapi version = %q, want %q", pkg.Version, "0.110.0")
	}
	if len(pkg.Dependencies) != 1 || pkg.Dependencies[0] != "typing-extensions" {
		t.Errorf("fastapi dependencies = %v", pkg.Dependencies)
	}

	// Lookups accept any spelling of the same name.
	if !l.Covers("Typing_Extensions") {
		t.Error("normalized lookup failed")
	}

	root, ok := l.Package("heroes-api")
	if !ok {
		t.Fatal("root package not covered")
	}
	if len(root.Dependencies) != 2 || root.Dependencies[1] != "typing-extensions" {
		t.Errorf("root dependencies = %v", root.Dependencies)
	}
}

func TestLoadLockfileMissing(t *testing.T) {
	_, err := LoadLockfile(filepath.Join(t.TempDir(), "uv.lock"))
	if !errors.Is(err, ErrLockfileMissing) {
		t.Errorf("err = %v, want ErrLockfileMissing", err)
	}
}

func TestLoadLockfileMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not toml", "version = "},
		{"nameless package", "version = 1\n\n[[package]]\nversion = \"1.0\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLockfile(writeFixture(t, "uv.lock", tt.content))
			if !errors.Is(err, ErrLockfileMalformed) {
				t.Errorf("err = %v, want ErrLockfileMalformed", err)
			}
		})
	}
}
