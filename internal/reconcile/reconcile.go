// Package reconcile detects, and optionally repairs, mismatches between
// metadata rows and content files left behind by partial failures. It is a
// maintenance operation and never runs on the request path.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/facade"
)

// Options controls a sweep.
type Options struct {
	// Repair rewrites missing or diverged note files from the stored body.
	Repair bool
}

// Report lists every mismatch found. Orphan files are reported only; they are
// never deleted automatically.
type Report struct {
	MissingNotes  []string `json:"missing_notes"`
	DivergedNotes []string `json:"diverged_notes"`
	MissingBlobs  []string `json:"missing_blobs"`
	OrphanFiles   []string `json:"orphan_files"`
	Repaired      []string `json:"repaired"`
}

// Clean reports whether the sweep found nothing to fix.
func (r Report) Clean() bool {
	return len(r.MissingNotes) == 0 && len(r.DivergedNotes) == 0 &&
		len(r.MissingBlobs) == 0 && len(r.OrphanFiles) == 0
}

// Run walks metadata and the content root of f and compares them:
//   - notes whose file is missing or differs from the stored body
//   - attachment rows whose blob is missing
//   - note files and blobs under the root that no row owns (trash is skipped)
func Run(ctx context.Context, f *facade.Facade, opts Options, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rep := Report{
		MissingNotes:  []string{},
		DivergedNotes: []string{},
		MissingBlobs:  []string{},
		OrphanFiles:   []string{},
		Repaired:      []string{},
	}
	meta, content := f.Metadata(), f.Content()

	// Soft-deleted rows still own their files; only live notes are checked.
	paths, err := meta.NoteFilePaths(ctx)
	if err != nil {
		return rep, err
	}
	known := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		known[p] = struct{}{}
	}

	notes, err := meta.ListNotes(ctx)
	if err != nil {
		return rep, err
	}
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		data, err := f.ReadBody(n)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			rep.MissingNotes = append(rep.MissingNotes, n.ID)
		case err != nil:
			logger.Warn("reconcile: read failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			rep.MissingNotes = append(rep.MissingNotes, n.ID)
		case !checksum.Matches(data, n.Body):
			logger.Info("reconcile: content diverged",
				slog.String("id", n.ID),
				slog.String("file_sha256", checksum.Sum(data)),
				slog.String("body_sha256", checksum.Sum([]byte(n.Body))))
			rep.DivergedNotes = append(rep.DivergedNotes, n.ID)
		default:
			continue
		}

		if !opts.Repair {
			continue
		}
		if err := f.WriteBody(n); err != nil {
			logger.Warn("reconcile: repair failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		logger.Info("reconcile: repaired note file", slog.String("id", n.ID))
		rep.Repaired = append(rep.Repaired, n.ID)
	}

	atts, err := meta.AllAttachments(ctx)
	if err != nil {
		return rep, err
	}
	for _, a := range atts {
		known[a.FilePath] = struct{}{}
		ok, err := content.Exists(a.FilePath)
		if err != nil {
			logger.Warn("reconcile: stat failed", slog.String("id", a.ID), slog.String("error", err.Error()))
		}
		if !ok {
			rep.MissingBlobs = append(rep.MissingBlobs, a.ID)
		}
	}

	for _, pattern := range []string{"*.html", "attachments/**"} {
		files, err := content.Glob(pattern)
		if err != nil {
			return rep, err
		}
		for _, p := range files {
			if _, ok := known[p]; !ok {
				rep.OrphanFiles = append(rep.OrphanFiles, p)
			}
		}
	}
	slices.Sort(rep.OrphanFiles)

	logger.Info("reconcile: done",
		slog.Int("notes", len(notes)),
		slog.Int("attachments", len(atts)),
		slog.Int("missing_notes", len(rep.MissingNotes)),
		slog.Int("diverged_notes", len(rep.DivergedNotes)),
		slog.Int("missing_blobs", len(rep.MissingBlobs)),
		slog.Int("orphan_files", len(rep.OrphanFiles)),
		slog.Int("repaired", len(rep.Repaired)))
	return rep, nil
}
