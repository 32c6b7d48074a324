package disposal

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// Trash moves content into the trash directory of the current day, keeping base
// names. Files already missing are skipped.
type Trash struct {
	content storage.Provider
	now     func() time.Time
	logger  *slog.Logger
}

type move struct {
	src, dest string
}

// Dispose checks every destination before moving anything. An occupied
// destination, or two files sharing a base name, fails with apperr.ErrIO and
// leaves all files in place. If a rename fails midway the files already moved
// are put back.
func (t *Trash) Dispose(ctx context.Context, n models.NoteWithAttachments) error {
	if err := ctx.Err(); err != nil {
		return apperr.IO("trash", err)
	}
	dir := TrashDir(t.content.Root(), t.now())

	plan := make([]move, 0, 1+len(n.Attachments))
	seen := make(map[string]string)
	for _, src := range files(n) {
		ok, err := t.content.Exists(src)
		if err != nil {
			return err
		}
		if !ok {
			t.logger.Debug("trash: skip missing file", slog.String("path", src))
			continue
		}
		base := filepath.Base(src)
		dest := filepath.Join(dir, base)
		if prev, dup := seen[base]; dup {
			return apperr.IO("trash", fmt.Errorf("%s and %s share trash name %s: %w", prev, src, base, fs.ErrExist))
		}
		seen[base] = src
		taken, err := t.content.Exists(dest)
		if err != nil {
			return err
		}
		if taken {
			return apperr.IO("trash", fmt.Errorf("%s: %w", dest, fs.ErrExist))
		}
		plan = append(plan, move{src: src, dest: dest})
	}

	done := make([]move, 0, len(plan))
	for _, m := range plan {
		if _, err := t.content.MoveTo(m.src, dir); err != nil {
			t.rollback(done)
			return err
		}
		done = append(done, m)
	}
	return nil
}

func (t *Trash) rollback(done []move) {
	for i := len(done) - 1; i >= 0; i-- {
		m := done[i]
		if _, err := t.content.MoveTo(m.dest, filepath.Dir(m.src)); err != nil {
			t.logger.Error("trash: rollback failed",
				slog.String("from", m.dest),
				slog.String("to", m.src),
				slog.String("error", err.Error()))
		}
	}
}
