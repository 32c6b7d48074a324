package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("QUIRE_TEST_NAME", "expanded")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: ${QUIRE_TEST_NAME}\ncount: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "expanded" || s.Count != 2 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	_ = os.WriteFile(path, []byte("count: -1\n"), 0o644)
	var s sample
	if err := Load(path, &s); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "c.yaml")
	if err := Save(path, sample{Name: "x", Count: 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "x" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".config-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestLoadRawKeepsDollarText(t *testing.T) {
	t.Setenv("archive", "")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := Save(path, sample{Name: "/srv/notes$archive", Count: 1}); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := LoadRaw(path, &s); err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if s.Name != "/srv/notes$archive" {
		t.Errorf("name = %q", s.Name)
	}
}
