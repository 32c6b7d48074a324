package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/quire/pkg/config"
)

const reloadDebounce = 100 * time.Millisecond

// File is a Provider persisted as a YAML document. The in-memory value is
// guarded by mu; writes to disk are serialized by writeMu so readers never wait
// on file I/O.
type File struct {
	path   string
	logger *slog.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	cur     Settings
}

// Verify providers satisfy Provider at compile time.
var (
	_ Provider = (*File)(nil)
	_ Provider = (*Memory)(nil)
)

// LoadOrInit loads the settings at path. A missing file is created with
// defaults; a document at version 0 is migrated to the current version and
// rewritten.
func LoadOrInit(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &File{path: path, logger: logger}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.cur = Default()
		if err := config.Save(path, f.cur); err != nil {
			return nil, fmt.Errorf("settings: create defaults: %w", err)
		}
		logger.Info("settings: created defaults", slog.String("path", path))
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("settings: stat: %w", err)
	}

	s, err := f.load()
	if err != nil {
		return nil, err
	}
	f.cur = s
	return f, nil
}

// load reads and validates the document, migrating version 0 in place.
func (f *File) load() (Settings, error) {
	s := Default()
	s.Version = 0
	if err := config.LoadRaw(f.path, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	if s.Version == 0 {
		s.Version = CurrentVersion
		f.writeMu.Lock()
		err := config.Save(f.path, s)
		f.writeMu.Unlock()
		if err != nil {
			return Settings{}, fmt.Errorf("settings: migrate: %w", err)
		}
		f.logger.Info("settings: migrated", slog.Int("version", CurrentVersion))
	}
	return s, nil
}

// Path returns the settings file location.
func (f *File) Path() string { return f.path }

// Get returns a snapshot of the current settings.
func (f *File) Get() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

// Put validates s, writes it to disk and then replaces the in-memory value.
func (f *File) Put(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Version == 0 {
		s.Version = CurrentVersion
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := config.Save(f.path, s); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}

	f.mu.Lock()
	f.cur = s
	f.mu.Unlock()
	return nil
}

// Watch reloads the settings whenever the file changes on disk, until ctx is
// cancelled. Edits that fail to parse or validate are logged and ignored.
func (f *File) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often replace the file, so watch its directory.
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	name := filepath.Clean(f.path)

	f.logger.Info("settings: watching", slog.String("path", f.path))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-fire:
			fire = nil
			f.reload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("settings: watcher error", slog.String("error", werr.Error()))
		}
	}
}

func (f *File) reload() {
	if _, err := os.Stat(f.path); err != nil {
		return
	}
	s, err := f.load()
	if err != nil {
		f.logger.Warn("settings: reload ignored", slog.String("error", err.Error()))
		return
	}
	f.mu.Lock()
	changed := f.cur != s
	f.cur = s
	f.mu.Unlock()
	if changed {
		f.logger.Info("settings: reloaded",
			slog.String("notes_folder", s.NotesFolder),
			slog.String("delete_behavior", string(s.DeleteBehavior)))
	}
}
