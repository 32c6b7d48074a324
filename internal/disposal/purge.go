package disposal

import (
	"context"
	"errors"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/storage"
)

// Purge removes content outright. Missing files are not an error, so disposing
// twice is harmless.
type Purge struct {
	content storage.Provider
}

// Dispose attempts every file and reports all failures together.
func (p *Purge) Dispose(ctx context.Context, n models.NoteWithAttachments) error {
	if err := ctx.Err(); err != nil {
		return apperr.IO("purge", err)
	}
	var errs []error
	for _, path := range files(n) {
		if err := p.content.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
