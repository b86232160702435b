package build

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Directory names treated as build residue wherever they appear.
var residueDirs = map[string]bool{
	"__pycache__": true,
	".cache":      true,
}

// File suffixes treated as build residue.
var residueSuffixes = []string{".pyc", ".pyo"}

// Whether a slash path names a cache directory, a file inside one, or a
// bytecode file.
//
// The check applies to every path segment, so residue is caught at any
// depth, including inside the dependency environment. Installed package
// files never match: only the cache directories and compiled byproducts
// next to them do.
func isResidue(name string) bool {
	for _, segment := range strings.Split(strings.Trim(name, "/"), "/") {
		if residueDirs[segment] {
			return true
		}
	}
	for _, suffix := range residueSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Returns a header stamp that assigns every entry to the given identity.
//
// Rewriting the header is what makes the copy and the ownership change one
// atomic operation: no extracted file ever exists under a privileged owner.
func stampOwner(id Identity) func(*tar.Header) {
	return func(header *tar.Header) {
		header.Uid = id.UID
		header.Gid = id.GID
		header.Uname = id.Name
		header.Gname = id.Name
	}
}

// Copies a tar stream entry by entry, dropping entries rejected by keep and
// applying stamp to the rest.
//
// Either filter may be nil. Entry contents are streamed, not buffered.
func rewriteStream(w io.Writer, r io.Reader, keep func(string) bool, stamp func(*tar.Header)) error {
	tr := tar.NewReader(r)
	tw := tar.NewWriter(w)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if keep != nil && !keep(header.Name) {
			continue
		}
		if stamp != nil {
			stamp(header)
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := io.Copy(tw, tr); err != nil {
				return err
			}
		}
	}

	return tw.Close()
}

// Writes a directory tree to w as a tar stream of relative paths.
//
// Entries rejected by exclude are skipped; excluding a directory prunes its
// whole subtree. The root directory itself produces no entry.
func writeTreeTar(w io.Writer, root string, exclude func(rel string) bool) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		name := filepath.ToSlash(rel)
		if exclude != nil && exclude(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return writeTarEntry(tw, path, name, d)
	})
	if err != nil {
		return err
	}

	return tw.Close()
}

// Writes a single host file to w as a one-entry tar stream.
func writeFileTar(w io.Writer, hostPath, name string) error {
	tw := tar.NewWriter(w)

	info, err := os.Stat(hostPath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if err := copyFileContents(tw, hostPath); err != nil {
		return err
	}

	return tw.Close()
}

// Writes one file or directory entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(hostPath); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		return copyFileContents(tw, hostPath)
	}
	return nil
}

// Streams a host file's contents to w.
func copyFileContents(w io.Writer, hostPath string) error {
	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
