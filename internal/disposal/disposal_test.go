package disposal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/storage"
)

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func testContent(t *testing.T) *storage.FS {
	t.Helper()
	fsys, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	return fsys
}

// seed writes a note file and one blob per attachment name.
func seed(t *testing.T, c storage.Provider, id string, attachments ...string) models.NoteWithAttachments {
	t.Helper()
	n := models.NoteWithAttachments{Note: models.Note{ID: id, FilePath: c.PathFor(id)}}
	require.NoError(t, c.Write(n.FilePath, []byte("body of "+id)))
	for i, name := range attachments {
		aid := id + "-a" + string(rune('0'+i))
		p := c.AttachmentPath(id, aid, name)
		require.NoError(t, c.Write(p, []byte(name)))
		n.Attachments = append(n.Attachments, models.Attachment{ID: aid, NoteID: id, FileName: name, FilePath: p})
	}
	return n
}

func exists(t *testing.T, p string) bool {
	t.Helper()
	_, err := os.Stat(p)
	return err == nil
}

func TestForBehavior(t *testing.T) {
	c := testContent(t)

	s, err := ForBehavior(settings.MoveToTrash, c, clock, nil)
	require.NoError(t, err)
	require.IsType(t, &Trash{}, s)

	s, err = ForBehavior(settings.Permanent, c, nil, nil)
	require.NoError(t, err)
	require.IsType(t, &Purge{}, s)

	_, err = ForBehavior("Shred", c, nil, nil)
	require.Error(t, err)
}

func TestTrashDirUsesLocalDay(t *testing.T) {
	require.Equal(t, filepath.Join("/n", "trash", "2024-03-09"), TrashDir("/n", fixedNow))
}

func TestTrashMovesNoteAndAttachments(t *testing.T) {
	ctx := context.Background()
	c := testContent(t)
	n := seed(t, c, "x", "a.png", "b.txt")
	s, _ := ForBehavior(settings.MoveToTrash, c, clock, nil)

	require.NoError(t, s.Dispose(ctx, n))

	dir := TrashDir(c.Root(), fixedNow)
	require.False(t, exists(t, n.FilePath))
	require.True(t, exists(t, filepath.Join(dir, "x.html")))
	for _, a := range n.Attachments {
		require.False(t, exists(t, a.FilePath))
		require.True(t, exists(t, filepath.Join(dir, filepath.Base(a.FilePath))))
	}
}

func TestTrashSkipsMissingFiles(t *testing.T) {
	c := testContent(t)
	n := seed(t, c, "x", "a.png")
	require.NoError(t, os.Remove(n.Attachments[0].FilePath))
	s, _ := ForBehavior(settings.MoveToTrash, c, clock, nil)

	require.NoError(t, s.Dispose(context.Background(), n))
	require.True(t, exists(t, filepath.Join(TrashDir(c.Root(), fixedNow), "x.html")))
}

func TestTrashCollisionMovesNothing(t *testing.T) {
	c := testContent(t)
	dir := TrashDir(c.Root(), fixedNow)
	require.NoError(t, c.Write(filepath.Join(dir, "x.html"), []byte("earlier")))
	n := seed(t, c, "x", "a.png")
	s, _ := ForBehavior(settings.MoveToTrash, c, clock, nil)

	err := s.Dispose(context.Background(), n)
	require.ErrorIs(t, err, apperr.ErrIO)
	require.ErrorIs(t, err, fs.ErrExist)

	require.True(t, exists(t, n.FilePath))
	require.True(t, exists(t, n.Attachments[0].FilePath))
	got, _ := os.ReadFile(filepath.Join(dir, "x.html"))
	require.Equal(t, "earlier", string(got))
}

func TestTrashDuplicateBaseNames(t *testing.T) {
	c := testContent(t)
	n := seed(t, c, "x")
	dup := filepath.Join(c.Root(), "attachments", "x", "x.html")
	require.NoError(t, c.Write(dup, []byte("dup")))
	n.Attachments = append(n.Attachments, models.Attachment{ID: "d", NoteID: "x", FilePath: dup})
	s, _ := ForBehavior(settings.MoveToTrash, c, clock, nil)

	err := s.Dispose(context.Background(), n)
	require.ErrorIs(t, err, apperr.ErrIO)
	require.True(t, exists(t, n.FilePath))
	require.True(t, exists(t, dup))
}

// failingMove fails the nth MoveTo call into the trash.
type failingMove struct {
	storage.Provider
	n     int
	calls int
}

func (f *failingMove) MoveTo(src, destDir string) (string, error) {
	if filepath.Base(filepath.Dir(destDir)) == "trash" {
		f.calls++
		if f.calls == f.n {
			return "", apperr.IO("storage.move", errors.New("device busy"))
		}
	}
	return f.Provider.MoveTo(src, destDir)
}

func TestTrashRollsBackOnMidwayFailure(t *testing.T) {
	c := testContent(t)
	n := seed(t, c, "x", "a.png", "b.txt")
	fc := &failingMove{Provider: c, n: 3}
	s, _ := ForBehavior(settings.MoveToTrash, fc, clock, nil)

	err := s.Dispose(context.Background(), n)
	require.ErrorIs(t, err, apperr.ErrIO)

	require.True(t, exists(t, n.FilePath))
	for _, a := range n.Attachments {
		require.True(t, exists(t, a.FilePath))
	}
	entries, _ := os.ReadDir(TrashDir(c.Root(), fixedNow))
	require.Empty(t, entries)
}

func TestPurgeRemovesEverything(t *testing.T) {
	ctx := context.Background()
	c := testContent(t)
	n := seed(t, c, "x", "a.png")
	s, _ := ForBehavior(settings.Permanent, c, nil, nil)

	require.NoError(t, s.Dispose(ctx, n))
	require.False(t, exists(t, n.FilePath))
	require.False(t, exists(t, n.Attachments[0].FilePath))
	require.False(t, exists(t, filepath.Join(c.Root(), "trash")))

	require.NoError(t, s.Dispose(ctx, n), "second disposal should be a no-op")
}

func TestDisposeHonoursCancelledContext(t *testing.T) {
	c := testContent(t)
	n := seed(t, c, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, b := range []settings.DeleteBehavior{settings.MoveToTrash, settings.Permanent} {
		s, _ := ForBehavior(b, c, clock, nil)
		require.ErrorIs(t, s.Dispose(ctx, n), context.Canceled)
		require.True(t, exists(t, n.FilePath))
	}
}
