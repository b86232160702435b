// Caches materialized dependency environments between builds.
//
// The builder stage archives the environment directory after installation
// and stores it here as a tar blob, keyed by a fingerprint of everything
// that determines its content. A later build whose inputs are unchanged
// restores the archive instead of running the installer. Application source
// is not a key input, so source-only edits always hit.
package envcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/renameio/v2"
	"go.trai.ch/zerr"
)

const (
	blobSuffix = ".tar"
	metaSuffix = ".json"

	dirMode  os.FileMode = 0755
	fileMode os.FileMode = 0644
)

// Identifies one materialized dependency environment.
//
// Installation is deterministic for a fixed manifest, lockfile, base image,
// and platform, which is what makes reuse sound. Every field that could
// change the environment's content participates in the fingerprint.
type Key struct {
	Manifest  []byte // Raw dependency manifest content.
	Lockfile  []byte // Raw lockfile content.
	Base      string // Fingerprint of the builder base image archive.
	Platform  string // Target platform.
	Installer string // Installer command line.
	EnvDir    string // Environment directory inside the image.
}

// Returns the cache fingerprint for this key.
func (k Key) Fingerprint() string {
	h := xxhash.New()

	sep := []byte{0}
	h.Write(k.Manifest)
	h.Write(sep)
	h.Write(k.Lockfile)
	h.Write(sep)
	h.WriteString(k.Base)
	h.Write(sep)
	h.WriteString(k.Platform)
	h.Write(sep)
	h.WriteString(k.Installer)
	h.Write(sep)
	h.WriteString(k.EnvDir)

	return hexHash(h.Sum64())
}

// Computes the content fingerprint of a file, streaming.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", zerr.Wrap(err, "failed to open file for fingerprinting")
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", zerr.Wrap(err, "failed to fingerprint file")
	}

	return hexHash(h.Sum64()), nil
}

// Describes the build an environment blob came from. Purely informational;
// lookups go by fingerprint alone.
type Meta struct {
	Project   string    `json:"project"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Stores environment archives as files under a single directory, one tar
// blob plus one metadata sidecar per fingerprint.
type Store struct {
	dir string
}

// Creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Opens the cached environment archive for key.
//
// A miss returns ok == false with no error; errors mean the cache itself is
// unhealthy and callers should fall back to a fresh install.
func (s *Store) Open(key Key) (io.ReadCloser, bool, error) {
	f, err := os.Open(s.blobPath(key.Fingerprint()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.Wrap(err, "failed to open cached environment")
	}
	return f, true, nil
}

// Saves an environment archive under key, reading it fully from r.
//
// The blob is written to a temporary file and renamed into place, so a
// concurrent reader never observes a partial archive.
func (s *Store) Save(key Key, meta Meta, r io.Reader) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return zerr.Wrap(err, "failed to create cache directory")
	}

	fingerprint := key.Fingerprint()

	blob, err := renameio.TempFile("", s.blobPath(fingerprint))
	if err != nil {
		return zerr.Wrap(err, "failed to stage cache blob")
	}
	defer blob.Cleanup()

	size, err := io.Copy(blob, r)
	if err != nil {
		return zerr.Wrap(err, "failed to write cache blob")
	}

	if err := blob.CloseAtomicallyReplace(); err != nil {
		return zerr.Wrap(err, "failed to commit cache blob")
	}

	meta.CreatedAt = time.Now().UTC()
	meta.Size = size
	s.writeMeta(fingerprint, meta)

	return nil
}

// Removes every cached environment. Returns the number of blobs removed.
func (s *Store) Purge() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.Wrap(err, "failed to read cache directory")
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, zerr.Wrap(err, "failed to remove cache entry")
		}
		if filepath.Ext(entry.Name()) == blobSuffix {
			removed++
		}
	}

	return removed, nil
}

// Writes the metadata sidecar. Best effort: the blob is already committed
// and remains usable without it.
func (s *Store) writeMeta(fingerprint string, meta Meta) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	_ = renameio.WriteFile(s.metaPath(fingerprint), data, fileMode)
}

func (s *Store) blobPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+blobSuffix)
}

func (s *Store) metaPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+metaSuffix)
}

// Formats an xxhash sum the way fingerprints are spelled everywhere: 16 hex
// digits, zero padded.
func hexHash(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
