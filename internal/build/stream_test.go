package build

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/slipwayhq/slipwayd/internal/buildfile"
)

func TestIsResidue(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"app/main.py", false},
		{"app/__pycache__", true},
		{"app/__pycache__/main.cpython-312.pyc", true},
		{"app/.venv/lib/python3.12/site-packages/fastapi/routing.py", false},
		{"app/.venv/lib/python3.12/site-packages/fastapi/__pycache__/routing.cpython-312.pyc", true},
		{"app/.cache/uv/wheels", true},
		{"app/module.pyc", true},
		{"app/module.pyo", true},
		{"app/pycache/data", false},
		{"app/cached.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isResidue(tt.name); got != tt.want {
				t.Errorf("isResidue(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// Builds an in-memory tar stream from name -> content. Directories are
// denoted by a trailing slash and empty content.
func tarStream(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for name, content := range entries {
		header := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if name[len(name)-1] == '/' {
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
			header.Size = 0
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("writing header %q: %v", name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("writing content %q: %v", name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return &buf
}

// Reads a tar stream into a map of name -> header.
func readHeaders(t *testing.T, r io.Reader) map[string]*tar.Header {
	t.Helper()

	headers := make(map[string]*tar.Header)
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading tar: %v", err)
		}
		headers[header.Name] = header
	}
	return headers
}

func TestRewriteStreamDropsResidueAndStampsOwner(t *testing.T) {
	src := tarStream(t, map[string]string{
		"app/":                          "",
		"app/main.py":                   "print('hi')",
		"app/__pycache__/":              "",
		"app/__pycache__/main.pyc":      "bytecode",
		"app/.venv/bin/uvicorn":         "#!/app/.venv/bin/python",
		"app/.venv/lib/pkg/mod.py":      "code",
		"app/.venv/lib/pkg/mod.pyc":     "bytecode",
		"app/.cache/uv/wheels/w.whl":    "wheel",
		"app/uploads/.cache/thumb.webp": "img",
	})

	id := Identity{Name: "app", UID: 1000, GID: 1000}

	var out bytes.Buffer
	err := rewriteStream(&out, src, func(name string) bool { return !isResidue(name) }, stampOwner(id))
	if err != nil {
		t.Fatalf("rewriteStream: %v", err)
	}

	headers := readHeaders(t, &out)

	want := []string{"app/", "app/main.py", "app/.venv/bin/uvicorn", "app/.venv/lib/pkg/mod.py"}
	if len(headers) != len(want) {
		t.Fatalf("kept %d entries, want %d: %v", len(headers), len(want), headers)
	}
	for _, name := range want {
		header, ok := headers[name]
		if !ok {
			t.Fatalf("entry %q missing from rewritten stream", name)
		}
		if header.Uid != 1000 || header.Gid != 1000 {
			t.Errorf("%s owner = %d:%d, want 1000:1000", name, header.Uid, header.Gid)
		}
		if header.Uname != "app" || header.Gname != "app" {
			t.Errorf("%s owner names = %s:%s, want app:app", name, header.Uname, header.Gname)
		}
	}
}

func TestRewriteStreamPreservesContents(t *testing.T) {
	src := tarStream(t, map[string]string{"app/main.py": "print('hi')"})

	var out bytes.Buffer
	if err := rewriteStream(&out, src, nil, stampOwner(Identity{Name: "app", UID: 1, GID: 1})); err != nil {
		t.Fatalf("rewriteStream: %v", err)
	}

	tr := tar.NewReader(&out)
	if _, err := tr.Next(); err != nil {
		t.Fatalf("reading tar: %v", err)
	}
	content, err := io.ReadAll(tr)
	if err != nil {
		t.Fatalf("reading entry: %v", err)
	}
	if string(content) != "print('hi')" {
		t.Errorf("content = %q, want %q", content, "print('hi')")
	}
}

// Builds a tar stream whose entries carry explicit owners.
func ownedStream(t *testing.T, headers []*tar.Header) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, header := range headers {
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("writing header %q: %v", header.Name, err)
		}
		if header.Size > 0 {
			if _, err := tw.Write(bytes.Repeat([]byte("x"), int(header.Size))); err != nil {
				t.Fatalf("writing content %q: %v", header.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	return &buf
}

func TestScanOwnership(t *testing.T) {
	id := Identity{Name: "app", UID: 1000, GID: 1000}

	t.Run("fully owned tree passes", func(t *testing.T) {
		src := ownedStream(t, []*tar.Header{
			{Name: "app/", Typeflag: tar.TypeDir, Mode: 0755, Uid: 1000, Gid: 1000},
			{Name: "app/main.py", Typeflag: tar.TypeReg, Mode: 0644, Size: 4, Uid: 1000, Gid: 1000},
		})
		if err := scanOwnership(src, id); err != nil {
			t.Fatalf("scanOwnership: %v", err)
		}
	})

	t.Run("leaked uid rejected", func(t *testing.T) {
		src := ownedStream(t, []*tar.Header{
			{Name: "app/", Typeflag: tar.TypeDir, Mode: 0755, Uid: 1000, Gid: 1000},
			{Name: "app/rogue", Typeflag: tar.TypeReg, Mode: 0644, Uid: 0, Gid: 1000},
		})
		if err := scanOwnership(src, id); !errors.Is(err, ErrOwnershipLeak) {
			t.Fatalf("scanOwnership = %v, want ErrOwnershipLeak", err)
		}
	})

	t.Run("leaked gid rejected", func(t *testing.T) {
		src := ownedStream(t, []*tar.Header{
			{Name: "app/main.py", Typeflag: tar.TypeReg, Mode: 0644, Size: 4, Uid: 1000, Gid: 0},
		})
		if err := scanOwnership(src, id); !errors.Is(err, ErrOwnershipLeak) {
			t.Fatalf("scanOwnership = %v, want ErrOwnershipLeak", err)
		}
	})

	t.Run("broken stream reported as copy failure", func(t *testing.T) {
		src := ownedStream(t, []*tar.Header{
			{Name: "app/main.py", Typeflag: tar.TypeReg, Mode: 0644, Size: 4, Uid: 1000, Gid: 1000},
		})
		truncated := bytes.NewReader(src.Bytes()[:src.Len()-600])
		if err := scanOwnership(truncated, id); !errors.Is(err, ErrArtifactCopy) {
			t.Fatalf("scanOwnership = %v, want ErrArtifactCopy", err)
		}
	})
}

func TestWriteTreeTarExcludes(t *testing.T) {
	root := t.TempDir()

	files := map[string]string{
		"app/main.py":              "code",
		"app/__pycache__/main.pyc": "bytecode",
		"pyproject.toml":           "[project]",
		".git/config":              "gitstuff",
		".venv/bin/python":         "elf",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	p := &pipeline{file: &buildfile.File{
		Environment: buildfile.Environment{Dir: ".venv"},
	}}

	var out bytes.Buffer
	if err := writeTreeTar(&out, root, p.sourceExcluded); err != nil {
		t.Fatalf("writeTreeTar: %v", err)
	}

	headers := readHeaders(t, &out)

	for _, name := range []string{"app", "app/main.py", "pyproject.toml"} {
		if _, ok := headers[name]; !ok {
			t.Errorf("entry %q missing from tree tar", name)
		}
	}
	for name := range headers {
		if isResidue(name) {
			t.Errorf("residue entry %q leaked into tree tar", name)
		}
		if name == ".git" || name == ".venv" {
			t.Errorf("excluded directory %q leaked into tree tar", name)
		}
	}
}

func TestWriteFileTar(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "uv.lock")
	if err := os.WriteFile(path, []byte("version = 1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	if err := writeFileTar(&out, path, "uv.lock"); err != nil {
		t.Fatalf("writeFileTar: %v", err)
	}

	tr := tar.NewReader(&out)
	header, err := tr.Next()
	if err != nil {
		t.Fatalf("reading tar: %v", err)
	}
	if header.Name != "uv.lock" {
		t.Errorf("entry name = %q, want uv.lock", header.Name)
	}
	content, _ := io.ReadAll(tr)
	if string(content) != "version = 1\n" {
		t.Errorf("content = %q, want lockfile content", content)
	}
	if _, err := tr.Next(); err != io.EOF {
		t.Errorf("expected single-entry archive, got more")
	}
}
