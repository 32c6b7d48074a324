package metadata

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quire-test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sdb := sqlx.NewDb(db, "sqlite3")
	t.Cleanup(func() { sdb.Close() })
	return New(sdb), mock
}

func note(id, title, body string, ts int64) models.Note {
	return models.Note{
		ID: id, Title: title, Body: body,
		CreatedAt: ts, UpdatedAt: ts,
		FilePath: "/notes/" + id + ".html",
	}
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	for _, table := range []string{"notes", "attachments"} {
		var count int
		require.NoError(t, s.db.Get(&count, "SELECT count(*) FROM "+table), "table %s missing", table)
	}
}

func TestPing(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Ping(context.Background()), apperr.ErrStore)
}

func TestCreateAndGetNote(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	in := note("n1", "Hello", "world", 100)
	_, err := s.CreateNote(ctx, in)
	require.NoError(t, err)

	got, err := s.GetNote(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestCreateNoteDuplicateConflict(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, err := s.CreateNote(ctx, note("dup", "a", "b", 1))
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, note("dup", "c", "d", 2))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestGetNoteMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.GetNote(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSoftDeletedHidden(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, err := s.CreateNote(ctx, note("gone", "soft", "deleted", 1))
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE notes SET is_deleted = 1 WHERE id = ?`, "gone")
	require.NoError(t, err)

	_, err = s.GetNote(ctx, "gone")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := s.ListNotes(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	hits, err := s.SearchNotes(ctx, "soft")
	require.NoError(t, err)
	require.Empty(t, hits)

	_, err = s.UpdateNote(ctx, note("gone", "x", "y", 5))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	paths, err := s.NoteFilePaths(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/notes/gone.html"}, paths)
}

func TestListNotesOrderedByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	for i, id := range []string{"a", "b", "c"} {
		_, err := s.CreateNote(ctx, note(id, id, id, int64(10*(i+1))))
		require.NoError(t, err)
	}
	bumped := note("a", "a2", "a2", 10)
	bumped.UpdatedAt = 99
	_, err := s.UpdateNote(ctx, bumped)
	require.NoError(t, err)

	list, err := s.ListNotes(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, n := range list {
		ids[i] = n.ID
	}
	require.Equal(t, []string{"a", "c", "b"}, ids)
}

func TestUpdateNotePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	orig, err := s.CreateNote(ctx, note("u", "t", "b", 50))
	require.NoError(t, err)

	got, err := s.UpdateNote(ctx, models.Note{
		ID: "u", Title: "t2", Body: "b2", UpdatedAt: 60,
		CreatedAt: 1, FilePath: "/elsewhere.html",
	})
	require.NoError(t, err)
	require.Equal(t, "t2", got.Title)
	require.Equal(t, "b2", got.Body)
	require.Equal(t, int64(60), got.UpdatedAt)
	require.Equal(t, orig.CreatedAt, got.CreatedAt)
	require.Equal(t, orig.FilePath, got.FilePath)
}

func TestUpdateNoteMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.UpdateNote(context.Background(), note("missing", "t", "b", 1))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearchNotes(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, _ = s.CreateNote(ctx, note("1", "Shopping List", "eggs", 1))
	_, _ = s.CreateNote(ctx, note("2", "Ideas", "buy a LIST of things", 2))
	_, _ = s.CreateNote(ctx, note("3", "Other", "nothing here", 3))
	_, _ = s.CreateNote(ctx, note("4", "Percent", "100% done", 4))

	hits, err := s.SearchNotes(ctx, "list")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "2", hits[0].ID)
	require.Equal(t, "1", hits[1].ID)

	hits, err = s.SearchNotes(ctx, "%")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "4", hits[0].ID)

	hits, err = s.SearchNotes(ctx, "zzz")
	require.NoError(t, err)
	require.NotNil(t, hits)
	require.Empty(t, hits)
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, _ = s.CreateNote(ctx, note("d", "t", "b", 1))

	require.NoError(t, s.DeleteNote(ctx, "d"))
	_, err := s.GetNote(ctx, "d")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, s.DeleteNote(ctx, "d"), apperr.ErrNotFound)
}

func attachment(id, noteID string, ts int64) models.Attachment {
	mime := "image/png"
	size := int64(3)
	return models.Attachment{
		ID: id, NoteID: noteID, AttachmentType: "image",
		FileName: "pic.png", FilePath: "/notes/attachments/" + noteID + "/" + id + "_pic.png",
		MimeType: &mime, SizeBytes: &size, CreatedAt: ts,
	}
}

func TestAttachmentsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, _ = s.CreateNote(ctx, note("n", "t", "b", 1))
	_, _ = s.CreateNote(ctx, note("other", "t", "b", 1))

	_, err := s.CreateAttachment(ctx, attachment("a2", "n", 20))
	require.NoError(t, err)
	_, err = s.CreateAttachment(ctx, attachment("a1", "n", 10))
	require.NoError(t, err)
	plain := models.Attachment{ID: "a3", NoteID: "other", FileName: "x", FilePath: "/x", CreatedAt: 5}
	_, err = s.CreateAttachment(ctx, plain)
	require.NoError(t, err)

	list, err := s.ListAttachments(ctx, "n")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a1", list[0].ID)
	require.Equal(t, "image/png", *list[0].MimeType)

	others, err := s.ListAttachments(ctx, "other")
	require.NoError(t, err)
	require.Nil(t, others[0].MimeType)
	require.Nil(t, others[0].SizeBytes)

	all, err := s.AllAttachments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, s.DeleteAttachmentsForNote(ctx, "n"))
	require.NoError(t, s.DeleteAttachmentsForNote(ctx, "n"))
	list, err = s.ListAttachments(ctx, "n")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreateAttachmentMissingNote(t *testing.T) {
	s := testStore(t)
	_, err := s.CreateAttachment(context.Background(), attachment("a", "ghost", 1))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSchemaCascade(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, _ = s.CreateNote(ctx, note("n", "t", "b", 1))
	_, _ = s.CreateAttachment(ctx, attachment("a", "n", 1))

	require.NoError(t, s.DeleteNote(ctx, "n"))
	var count int
	require.NoError(t, s.db.Get(&count, `SELECT count(*) FROM attachments WHERE note_id = ?`, "n"))
	require.Zero(t, count)
}

func TestStoreFailuresAreClassified(t *testing.T) {
	ctx := context.Background()
	s, mock := mockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, body, created_at, updated_at, file_path FROM notes")).
		WillReturnError(boom)
	_, err := s.ListNotes(ctx)
	require.ErrorIs(t, err, apperr.ErrStore)
	require.ErrorIs(t, err, boom)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes")).WillReturnError(boom)
	_, err = s.CreateNote(ctx, note("x", "t", "b", 1))
	require.ErrorIs(t, err, apperr.ErrStore)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attachments WHERE note_id = ?")).
		WithArgs("x").
		WillReturnError(boom)
	require.ErrorIs(t, s.DeleteAttachmentsForNote(ctx, "x"), apperr.ErrStore)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = ?")).
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, s.DeleteNote(ctx, "x"), apperr.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
