// Package testutil provides shared test helpers for setting up stores and
// settings.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/storage"
)

// TestDB creates a temporary SQLite metadata store that is automatically
// cleaned up.
func TestDB(t *testing.T) *metadata.Store {
	t.Helper()
	db, err := metadata.Open(filepath.Join(t.TempDir(), "quire-test.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary notes folder with a storage.Provider.
func TestContent(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// TestSettings returns in-memory settings pointing at a fresh notes folder.
func TestSettings(t *testing.T, behavior settings.DeleteBehavior) *settings.Memory {
	t.Helper()
	s := settings.Default()
	s.NotesFolder = t.TempDir()
	s.DeleteBehavior = behavior
	return settings.NewMemory(s)
}

// QuietLogger discards everything below Error.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
