package noteservice

import (
	"context"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/disposal"
	"github.com/starford/quire/internal/models"
)

// Create stores a new note. The metadata row is written first; if the content
// write then fails the row stays behind and the error is apperr.ErrInternal.
func (s *Service) Create(ctx context.Context, title, body string) (models.Note, error) {
	f, _, err := s.bind()
	if err != nil {
		return models.Note{}, err
	}

	id := s.newID()
	now := s.now().Unix()
	n := models.Note{
		ID:        id,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
		FilePath:  f.Content().PathFor(id),
	}
	if _, err := s.meta.CreateNote(ctx, n); err != nil {
		return models.Note{}, err
	}
	if err := f.WriteBody(n); err != nil {
		return models.Note{}, s.internal("create", id, "write content", err)
	}

	s.logger.Debug("noteservice: created", slog.String("id", id))
	s.publish(EventCreated, id)
	return n, nil
}

// Update replaces title and body of an existing note. id, created_at and
// file_path are kept; updated_at always moves forward, by at least one second.
func (s *Service) Update(ctx context.Context, id, title, body string) (models.Note, error) {
	if err := validation.Validate(id, validation.Required); err != nil {
		return models.Note{}, apperr.Invalid("update", err)
	}
	f, _, err := s.bind()
	if err != nil {
		return models.Note{}, err
	}

	prev, err := s.meta.GetNote(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	next := prev
	next.Title = title
	next.Body = body
	next.UpdatedAt = max(s.now().Unix(), prev.UpdatedAt+1)

	updated, err := s.meta.UpdateNote(ctx, next)
	if err != nil {
		return models.Note{}, err
	}
	if err := f.WriteBody(updated); err != nil {
		return models.Note{}, s.internal("update", id, "write content", err)
	}

	s.publish(EventUpdated, id)
	return updated, nil
}

// Get returns a note with its attachments.
func (s *Service) Get(ctx context.Context, id string) (models.NoteWithAttachments, error) {
	f, _, err := s.bind()
	if err != nil {
		return models.NoteWithAttachments{}, err
	}
	n, err := f.GetWithAttachments(ctx, id)
	if err != nil {
		return models.NoteWithAttachments{}, err
	}
	n.Attachments = nonNilSlice(n.Attachments)
	return n, nil
}

// List returns all notes, most recently updated first.
func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	return s.meta.ListNotes(ctx)
}

// Search returns notes whose title or body contains query, ignoring ASCII case.
// Ordering matches List.
func (s *Service) Search(ctx context.Context, query string) ([]models.Note, error) {
	return s.meta.SearchNotes(ctx, query)
}

// Delete disposes of a note's content according to the configured delete
// behavior, then removes its attachment rows and its note row. A metadata
// failure after content was disposed of is reported as apperr.ErrInternal.
func (s *Service) Delete(ctx context.Context, id string) error {
	f, cfg, err := s.bind()
	if err != nil {
		return err
	}

	n, err := f.GetWithAttachments(ctx, id)
	if err != nil {
		return err
	}
	strategy, err := disposal.ForBehavior(cfg.DeleteBehavior, f.Content(), s.now, s.logger)
	if err != nil {
		return apperr.Invalid("delete", err)
	}
	if err := strategy.Dispose(ctx, n); err != nil {
		return err
	}
	if err := f.DeleteNoteRecords(ctx, id); err != nil {
		return s.internal("delete", id, "delete metadata", err)
	}
	f.RemoveAttachmentDirs(n)

	s.logger.Debug("noteservice: deleted",
		slog.String("id", id),
		slog.String("behavior", string(cfg.DeleteBehavior)),
		slog.Int("attachments", len(n.Attachments)))
	s.publish(EventDeleted, id)
	return nil
}
