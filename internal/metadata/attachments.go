package metadata

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

var attachmentColumns = []string{
	"id", "note_id", "attachment_type", "file_name", "file_path", "mime_type", "size_bytes", "created_at",
}

// CreateAttachment inserts a. The parent note must exist.
func (s *Store) CreateAttachment(ctx context.Context, a models.Attachment) (models.Attachment, error) {
	q, args, err := builder.Insert("attachments").
		Columns(attachmentColumns...).
		Values(a.ID, a.NoteID, a.AttachmentType, a.FileName, a.FilePath, a.MimeType, a.SizeBytes, a.CreatedAt).
		ToSql()
	if err != nil {
		return models.Attachment{}, apperr.Store("metadata.create_attachment", err)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Attachment{}, apperr.Conflict("metadata.create_attachment", a.ID, err)
		case isForeignKeyViolation(err):
			return models.Attachment{}, apperr.NotFound("metadata.create_attachment", a.NoteID)
		}
		return models.Attachment{}, apperr.Store("metadata.create_attachment", err)
	}
	return a, nil
}

// ListAttachments returns the attachments of noteID in creation order.
func (s *Store) ListAttachments(ctx context.Context, noteID string) ([]models.Attachment, error) {
	return s.selectAttachments(ctx, "metadata.list_attachments", sq.Eq{"note_id": noteID})
}

// AllAttachments returns every attachment row.
func (s *Store) AllAttachments(ctx context.Context) ([]models.Attachment, error) {
	return s.selectAttachments(ctx, "metadata.all_attachments", nil)
}

func (s *Store) selectAttachments(ctx context.Context, op string, where sq.Sqlizer) ([]models.Attachment, error) {
	b := builder.Select(attachmentColumns...).From("attachments")
	if where != nil {
		b = b.Where(where)
	}
	q, args, err := b.OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	out := []models.Attachment{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

// DeleteAttachmentsForNote removes every attachment row of noteID. Zero rows is
// not an error.
func (s *Store) DeleteAttachmentsForNote(ctx context.Context, noteID string) error {
	q, args, err := builder.Delete("attachments").Where(sq.Eq{"note_id": noteID}).ToSql()
	if err != nil {
		return apperr.Store("metadata.delete_attachments", err)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return apperr.Store("metadata.delete_attachments", err)
	}
	return nil
}
