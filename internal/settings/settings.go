// Package settings holds the process-wide user settings: the notes folder and
// the delete behavior among them.
package settings

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DeleteBehavior selects what happens to content when a note is deleted.
type DeleteBehavior string

// Delete behaviors.
const (
	MoveToTrash DeleteBehavior = "MoveToTrash"
	Permanent   DeleteBehavior = "Permanent"
)

// CurrentVersion is the settings document version written by this build.
const CurrentVersion = 1

// Settings is the user settings document.
type Settings struct {
	Version              int            `yaml:"version" json:"version"`
	NotesFolder          string         `yaml:"notes_folder" json:"notes_folder"`
	AutoSaveIntervalSecs int            `yaml:"auto_save_interval_secs" json:"auto_save_interval_secs"`
	DeleteBehavior       DeleteBehavior `yaml:"delete_behavior" json:"delete_behavior"`
	OnboardingCompleted  bool           `yaml:"onboarding_completed" json:"onboarding_completed"`
}

// Default returns the settings written on first run.
func Default() Settings {
	return Settings{
		Version:              CurrentVersion,
		NotesFolder:          "./notes",
		AutoSaveIntervalSecs: 30,
		DeleteBehavior:       MoveToTrash,
		OnboardingCompleted:  false,
	}
}

// Validate validates the settings. Version 0 is accepted; loaders normalize it.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Version, validation.Min(0)),
		validation.Field(&s.NotesFolder, validation.Required),
		validation.Field(&s.AutoSaveIntervalSecs, validation.Required, validation.Min(1)),
		validation.Field(&s.DeleteBehavior, validation.Required, validation.In(MoveToTrash, Permanent)),
	)
}

// Provider exposes the shared settings value.
type Provider interface {
	// Get returns a snapshot of the current settings.
	Get() Settings
	// Put validates and replaces the settings.
	Put(Settings) error
}

// CompleteOnboarding marks onboarding as done and stores the result.
func CompleteOnboarding(p Provider) (Settings, error) {
	s := p.Get()
	if s.OnboardingCompleted {
		return s, nil
	}
	s.OnboardingCompleted = true
	if err := p.Put(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
