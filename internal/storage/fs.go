package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/quire/internal/apperr"
)

const (
	noteExt       = ".html"
	attachmentDir = "attachments"
	tmpPattern    = ".quire-tmp-*"
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to notes folder
}

// NewFS creates a new FS provider rooted at the given directory, creating it if
// it does not exist yet.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.IO("storage.open", fmt.Errorf("resolve root: %w", err))
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, apperr.IO("storage.open", fmt.Errorf("create root: %w", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.IO("storage.open", fmt.Errorf("stat root: %w", err))
	}
	if !info.IsDir() {
		return nil, apperr.IO("storage.open", fmt.Errorf("root is not a directory: %s", abs))
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute notes folder.
func (f *FS) Root() string { return f.root }

// PathFor returns {root}/{id}.html.
func (f *FS) PathFor(id string) string {
	return filepath.Join(f.root, id+noteExt)
}

// AttachmentPath returns {root}/attachments/{noteID}/{attachmentID}_{name}.
// The attachment id prefix keeps base names unique across notes, which matters
// once blobs share a trash directory.
func (f *FS) AttachmentPath(noteID, attachmentID, fileName string) string {
	return filepath.Join(f.root, attachmentDir, noteID, attachmentID+"_"+SanitizeName(fileName))
}

// AttachmentDir returns the directory holding every blob of noteID.
func AttachmentDir(root, noteID string) string {
	return filepath.Join(root, attachmentDir, noteID)
}

// SanitizeName reduces a display name to a safe base file name.
func SanitizeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	base = unsafeNameRe.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "_" {
		return "file"
	}
	return base
}

// resolve accepts absolute paths as-is and resolves relative ones against the
// root, rejecting any result that escapes it.
func (f *FS) resolve(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	abs := filepath.Join(f.root, filepath.Clean(p))
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes notes folder: %s", p)
	}
	return abs, nil
}

// Read returns the raw bytes of a content file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, apperr.IO("storage.read", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("storage.read", abs)
		}
		return nil, apperr.IO("storage.read", err)
	}
	return data, nil
}

// Exists reports whether a file is present at path.
func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, apperr.IO("storage.exists", err)
	}
	_, err = os.Lstat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, apperr.IO("storage.exists", err)
	}
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.resolve(path)
	if err != nil {
		return apperr.IO("storage.write", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("storage.write", fmt.Errorf("mkdir: %w", err))
	}

	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return apperr.IO("storage.write", fmt.Errorf("create temp: %w", err))
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return apperr.IO("storage.write", fmt.Errorf("write temp: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return apperr.IO("storage.write", fmt.Errorf("fsync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO("storage.write", fmt.Errorf("close temp: %w", err))
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return apperr.IO("storage.write", fmt.Errorf("rename: %w", err))
	}
	success = true
	return nil
}

// Remove deletes a single file. Disposal is idempotent, so a missing file is
// treated as success.
func (f *FS) Remove(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return apperr.IO("storage.remove", err)
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.IO("storage.remove", err)
	}
	return nil
}

// MoveTo renames src into destDir, creating destDir if missing. An existing file
// at the destination fails with fs.ErrExist instead of being overwritten.
func (f *FS) MoveTo(src, destDir string) (string, error) {
	absSrc, err := f.resolve(src)
	if err != nil {
		return "", apperr.IO("storage.move", err)
	}
	absDir, err := f.resolve(destDir)
	if err != nil {
		return "", apperr.IO("storage.move", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", apperr.IO("storage.move", fmt.Errorf("mkdir: %w", err))
	}
	dest := filepath.Join(absDir, filepath.Base(absSrc))
	if _, err := os.Lstat(dest); err == nil {
		return "", apperr.IO("storage.move", fmt.Errorf("%s: %w", dest, fs.ErrExist))
	}
	if err := os.Rename(absSrc, dest); err != nil {
		return "", apperr.IO("storage.move", err)
	}
	return dest, nil
}

// RemoveDir deletes a directory tree.
func (f *FS) RemoveDir(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return apperr.IO("storage.remove_dir", err)
	}
	if abs == f.root {
		return apperr.IO("storage.remove_dir", fmt.Errorf("refusing to remove notes folder"))
	}
	if err := os.RemoveAll(abs); err != nil {
		return apperr.IO("storage.remove_dir", err)
	}
	return nil
}

// Glob lists regular files under the root matching pattern.
func (f *FS) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(f.root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, apperr.IO("storage.glob", err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), ".quire-tmp-") {
			continue
		}
		out = append(out, filepath.Join(f.root, filepath.FromSlash(m)))
	}
	return out, nil
}
