// Package facade joins the metadata store and the content store for compound
// note reads and exposes the raw delete primitives used during disposal.
package facade

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// Facade is bound to one content root. It is cheap to build and is normally
// created per operation, after the root has been resolved from settings.
type Facade struct {
	meta    metadata.MetadataStore
	content storage.Provider
	logger  *slog.Logger
}

// New creates a Facade. A nil logger falls back to slog.Default.
func New(meta metadata.MetadataStore, content storage.Provider, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{meta: meta, content: content, logger: logger}
}

// Content returns the content store the facade is bound to.
func (f *Facade) Content() storage.Provider { return f.content }

// Metadata returns the metadata store.
func (f *Facade) Metadata() metadata.MetadataStore { return f.meta }

// GetWithAttachments fetches a note and its attachments. A missing note fails
// with apperr.ErrNotFound; failing to list attachments of a note that was just
// read is a consistency violation and surfaces as apperr.ErrInternal.
func (f *Facade) GetWithAttachments(ctx context.Context, id string) (models.NoteWithAttachments, error) {
	n, err := f.meta.GetNote(ctx, id)
	if err != nil {
		return models.NoteWithAttachments{}, err
	}
	atts, err := f.meta.ListAttachments(ctx, id)
	if err != nil {
		f.logger.Error("facade: attachment fetch failed for existing note",
			slog.String("id", id),
			slog.String("error", err.Error()))
		return models.NoteWithAttachments{}, apperr.Internal("get_note", id, "list attachments", err)
	}
	return models.NoteWithAttachments{Note: n, Attachments: atts}, nil
}

// ReadBody returns the on-disk rendering of n.
func (f *Facade) ReadBody(n models.Note) ([]byte, error) {
	return f.content.Read(n.FilePath)
}

// WriteBody overwrites the on-disk rendering of n with its body.
func (f *Facade) WriteBody(n models.Note) error {
	return f.content.Write(n.FilePath, []byte(n.Body))
}

// DeleteNoteRecords removes the attachment rows of id, then the note row.
func (f *Facade) DeleteNoteRecords(ctx context.Context, id string) error {
	if err := f.meta.DeleteAttachmentsForNote(ctx, id); err != nil {
		return err
	}
	return f.meta.DeleteNote(ctx, id)
}

// RemoveAttachmentDirs deletes the attachment directories of n: the one under
// the current root and any other directory named after n that holds its blobs.
// Failures are logged and otherwise ignored.
func (f *Facade) RemoveAttachmentDirs(n models.NoteWithAttachments) {
	dirs := []string{storage.AttachmentDir(f.content.Root(), n.ID)}
	for _, a := range n.Attachments {
		d := filepath.Dir(a.FilePath)
		if filepath.Base(d) == n.ID && !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	for _, dir := range dirs {
		if err := f.content.RemoveDir(dir); err != nil {
			f.logger.Warn("facade: remove attachment dir failed",
				slog.String("id", n.ID),
				slog.String("path", dir),
				slog.String("error", err.Error()))
		}
	}
}
