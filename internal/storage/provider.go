// Package storage is the content store: note renderings and attachment blobs
// kept as plain files under a notes folder.
package storage

// Provider is the interface for content file operations.
//
// Paths passed to Provider methods may be absolute (as recorded in metadata) or
// relative to Root, in which case they must not escape it.
type Provider interface {
	// Root returns the absolute notes folder.
	Root() string
	// PathFor returns the rendering path for a note id. It performs no I/O.
	PathFor(id string) string
	// AttachmentPath returns the blob path for an attachment of noteID.
	AttachmentPath(noteID, attachmentID, fileName string) string
	// Write creates parent directories and atomically replaces the file at path.
	Write(path string, content []byte) error
	// Read returns the file at path, failing with apperr.ErrNotFound if absent.
	Read(path string) ([]byte, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Remove deletes the file at path. A missing file is not an error.
	Remove(path string) error
	// MoveTo renames src into destDir keeping its base name and returns the new
	// path. It never overwrites an existing destination.
	MoveTo(src, destDir string) (string, error)
	// RemoveDir deletes a directory tree. A missing directory is not an error.
	RemoveDir(path string) error
	// Glob lists files under Root matching a doublestar pattern, as absolute paths.
	Glob(pattern string) ([]string, error)
}

// Factory opens a Provider rooted at a notes folder. The coordinator resolves the
// folder from settings on every operation, so the root can change at runtime.
type Factory func(root string) (Provider, error)

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)

// DefaultFactory opens an FS provider.
func DefaultFactory(root string) (Provider, error) {
	return NewFS(root)
}
