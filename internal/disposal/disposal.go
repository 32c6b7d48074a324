// Package disposal removes or archives the content of a deleted note. It never
// touches metadata; the caller deletes records after a successful Dispose.
package disposal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/storage"
)

const (
	trashDir    = "trash"
	trashLayout = "2006-01-02"
)

// Strategy disposes of the files belonging to one note.
type Strategy interface {
	Dispose(ctx context.Context, n models.NoteWithAttachments) error
}

// ForBehavior returns the strategy for behavior, operating on content. now is
// used by the trash strategy to pick the day directory; nil means time.Now.
func ForBehavior(behavior settings.DeleteBehavior, content storage.Provider, now func() time.Time, logger *slog.Logger) (Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch behavior {
	case settings.MoveToTrash:
		if now == nil {
			now = time.Now
		}
		return &Trash{content: content, now: now, logger: logger}, nil
	case settings.Permanent:
		return &Purge{content: content}, nil
	default:
		return nil, fmt.Errorf("disposal: unknown delete behavior %q", behavior)
	}
}

// TrashDir returns {root}/trash/{YYYY-MM-DD} for the local calendar day of t.
func TrashDir(root string, t time.Time) string {
	return filepath.Join(root, trashDir, t.Local().Format(trashLayout))
}

// files lists the note file followed by every attachment blob.
func files(n models.NoteWithAttachments) []string {
	out := make([]string, 0, 1+len(n.Attachments))
	out = append(out, n.FilePath)
	for _, a := range n.Attachments {
		out = append(out, a.FilePath)
	}
	return out
}
