package metadata

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

var noteColumns = []string{"id", "title", "body", "created_at", "updated_at", "file_path"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// live restricts queries to rows that are not soft-deleted.
var live = sq.Eq{"is_deleted": 0}

// CreateNote inserts n. A duplicate id fails with apperr.ErrConflict.
func (s *Store) CreateNote(ctx context.Context, n models.Note) (models.Note, error) {
	q, args, err := builder.Insert("notes").
		Columns(noteColumns...).
		Values(n.ID, n.Title, n.Body, n.CreatedAt, n.UpdatedAt, n.FilePath).
		ToSql()
	if err != nil {
		return models.Note{}, apperr.Store("metadata.create_note", err)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return models.Note{}, apperr.Conflict("metadata.create_note", n.ID, err)
		}
		return models.Note{}, apperr.Store("metadata.create_note", err)
	}
	return n, nil
}

// GetNote returns a live note.
func (s *Store) GetNote(ctx context.Context, id string) (models.Note, error) {
	q, args, err := builder.Select(noteColumns...).
		From("notes").
		Where(sq.And{sq.Eq{"id": id}, live}).
		ToSql()
	if err != nil {
		return models.Note{}, apperr.Store("metadata.get_note", err)
	}
	var n models.Note
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, apperr.NotFound("metadata.get_note", id)
		}
		return models.Note{}, apperr.Store("metadata.get_note", err)
	}
	return n, nil
}

// ListNotes returns all live notes, most recently updated first.
func (s *Store) ListNotes(ctx context.Context) ([]models.Note, error) {
	return s.selectNotes(ctx, "metadata.list_notes", live)
}

// SearchNotes returns live notes whose title or body contains query. Matching
// follows SQLite LIKE, so it is case-insensitive for ASCII. Ordering matches
// ListNotes.
func (s *Store) SearchNotes(ctx context.Context, query string) ([]models.Note, error) {
	p := "%" + likeEscaper.Replace(query) + "%"
	match := sq.Or{
		sq.Expr(`title LIKE ? ESCAPE '\'`, p),
		sq.Expr(`body LIKE ? ESCAPE '\'`, p),
	}
	return s.selectNotes(ctx, "metadata.search_notes", sq.And{live, match})
}

func (s *Store) selectNotes(ctx context.Context, op string, where sq.Sqlizer) ([]models.Note, error) {
	q, args, err := builder.Select(noteColumns...).
		From("notes").
		Where(where).
		OrderBy("updated_at DESC", "created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	out := []models.Note{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}

// NoteFilePaths returns the content path of every note row, soft-deleted ones
// included.
func (s *Store) NoteFilePaths(ctx context.Context) ([]string, error) {
	q, args, err := builder.Select("file_path").From("notes").OrderBy("id").ToSql()
	if err != nil {
		return nil, apperr.Store("metadata.note_file_paths", err)
	}
	out := []string{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store("metadata.note_file_paths", err)
	}
	return out, nil
}

// UpdateNote writes title, body and updated_at of n. The stored id, created_at
// and file_path are never changed; the returned note carries the stored values.
func (s *Store) UpdateNote(ctx context.Context, n models.Note) (models.Note, error) {
	q, args, err := builder.Update("notes").
		Set("title", n.Title).
		Set("body", n.Body).
		Set("updated_at", n.UpdatedAt).
		Where(sq.And{sq.Eq{"id": n.ID}, live}).
		Suffix("RETURNING " + strings.Join(noteColumns, ", ")).
		ToSql()
	if err != nil {
		return models.Note{}, apperr.Store("metadata.update_note", err)
	}
	var out models.Note
	if err := s.db.GetContext(ctx, &out, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, apperr.NotFound("metadata.update_note", n.ID)
		}
		return models.Note{}, apperr.Store("metadata.update_note", err)
	}
	return out, nil
}

// DeleteNote removes the note row permanently. Attachment rows are expected to be
// gone already; the schema cascade only backs that up.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	q, args, err := builder.Delete("notes").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return apperr.Store("metadata.delete_note", err)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return apperr.Store("metadata.delete_note", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("metadata.delete_note", err)
	}
	if n == 0 {
		return apperr.NotFound("metadata.delete_note", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
