package metadata

import (
	"context"

	"github.com/starford/quire/internal/models"
)

// NoteStore holds note records.
type NoteStore interface {
	CreateNote(ctx context.Context, n models.Note) (models.Note, error)
	GetNote(ctx context.Context, id string) (models.Note, error)
	ListNotes(ctx context.Context) ([]models.Note, error)
	UpdateNote(ctx context.Context, n models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	SearchNotes(ctx context.Context, query string) ([]models.Note, error)
	// NoteFilePaths includes soft-deleted rows.
	NoteFilePaths(ctx context.Context) ([]string, error)
}

// AttachmentStore holds attachment records. Callers delete a note's attachments
// before the note itself.
type AttachmentStore interface {
	CreateAttachment(ctx context.Context, a models.Attachment) (models.Attachment, error)
	ListAttachments(ctx context.Context, noteID string) ([]models.Attachment, error)
	DeleteAttachmentsForNote(ctx context.Context, noteID string) error
	AllAttachments(ctx context.Context) ([]models.Attachment, error)
}

// MetadataStore is the full relational surface used by the facade and the
// reconciliation sweep. Consumers depend on it rather than on *Store.
type MetadataStore interface {
	NoteStore
	AttachmentStore
	Close() error
}

// Verify *Store satisfies MetadataStore at compile time.
var _ MetadataStore = (*Store)(nil)
