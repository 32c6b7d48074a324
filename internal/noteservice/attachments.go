package noteservice

import (
	"context"
	"mime"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// AttachmentInput describes a blob to attach to a note.
type AttachmentInput struct {
	Type     string
	FileName string
	MimeType string
	Data     []byte
}

// Validate validates the input.
func (in AttachmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FileName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Type, validation.Length(0, 64)),
		validation.Field(&in.Data, validation.NotNil),
	)
}

// AddAttachment stores a blob for noteID. As with Create, the attachment row is
// written before the bytes, and a failed write is reported as
// apperr.ErrInternal.
func (s *Service) AddAttachment(ctx context.Context, noteID string, in AttachmentInput) (models.Attachment, error) {
	if err := in.Validate(); err != nil {
		return models.Attachment{}, apperr.Invalid("add_attachment", err)
	}
	f, _, err := s.bind()
	if err != nil {
		return models.Attachment{}, err
	}
	if _, err := s.meta.GetNote(ctx, noteID); err != nil {
		return models.Attachment{}, err
	}

	id := s.newID()
	size := int64(len(in.Data))
	a := models.Attachment{
		ID:             id,
		NoteID:         noteID,
		AttachmentType: in.Type,
		FileName:       in.FileName,
		FilePath:       f.Content().AttachmentPath(noteID, id, in.FileName),
		SizeBytes:      &size,
		CreatedAt:      s.now().Unix(),
	}
	if a.AttachmentType == "" {
		a.AttachmentType = "file"
	}
	if mt := detectMime(in); mt != "" {
		a.MimeType = &mt
	}

	if _, err := s.meta.CreateAttachment(ctx, a); err != nil {
		return models.Attachment{}, err
	}
	if err := f.Content().Write(a.FilePath, in.Data); err != nil {
		return models.Attachment{}, s.internal("add_attachment", id, "write blob", err)
	}

	s.publish(EventAttachmentAdded, noteID)
	return a, nil
}

// ReadAttachment returns attachment attachmentID of noteID and its bytes. A
// missing row or a missing blob is apperr.ErrNotFound.
func (s *Service) ReadAttachment(ctx context.Context, noteID, attachmentID string) (models.Attachment, []byte, error) {
	f, _, err := s.bind()
	if err != nil {
		return models.Attachment{}, nil, err
	}
	n, err := f.GetWithAttachments(ctx, noteID)
	if err != nil {
		return models.Attachment{}, nil, err
	}
	for _, a := range n.Attachments {
		if a.ID != attachmentID {
			continue
		}
		data, err := f.Content().Read(a.FilePath)
		if err != nil {
			return models.Attachment{}, nil, err
		}
		return a, data, nil
	}
	return models.Attachment{}, nil, apperr.NotFound("read_attachment", attachmentID)
}

func detectMime(in AttachmentInput) string {
	if in.MimeType != "" {
		return in.MimeType
	}
	return mime.TypeByExtension(filepath.Ext(in.FileName))
}
