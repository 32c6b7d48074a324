// Package noteservice is the single entry point for note operations. It orders
// the metadata and content steps of every multi-step operation and reports
// partial failures as apperr.ErrInternal.
package noteservice

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/facade"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/storage"
)

// Event kinds passed to EventSink.
const (
	EventCreated         = "created"
	EventUpdated         = "updated"
	EventDeleted         = "deleted"
	EventAttachmentAdded = "attachment_added"
)

// EventSink receives a notification after each successful mutation.
type EventSink interface {
	PublishNoteEvent(kind, id string)
}

// Service coordinates the metadata store and the content store. It holds no
// per-note state; settings are read once at the start of each operation.
type Service struct {
	meta     metadata.MetadataStore
	settings settings.Provider
	factory  storage.Factory
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	events   EventSink
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides identity generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithStorageFactory overrides how the content store is opened.
func WithStorageFactory(f storage.Factory) Option {
	return func(s *Service) { s.factory = f }
}

// WithEventSink registers a change listener.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// NewService creates a new note service.
func NewService(meta metadata.MetadataStore, cfg settings.Provider, opts ...Option) *Service {
	s := &Service{
		meta:     meta,
		settings: cfg,
		factory:  storage.DefaultFactory,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the settings provider the service reads policy from.
func (s *Service) Settings() settings.Provider { return s.settings }

// bind snapshots the settings and opens the content store they point at.
func (s *Service) bind() (*facade.Facade, settings.Settings, error) {
	cfg := s.settings.Get()
	content, err := s.factory(cfg.NotesFolder)
	if err != nil {
		return nil, cfg, err
	}
	return facade.New(s.meta, content, s.logger), cfg, nil
}

// internal logs and builds the error for a step that failed after an earlier
// step had already been applied.
func (s *Service) internal(op, id, step string, err error) error {
	s.logger.Error("noteservice: partial failure",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("step", step),
		slog.String("error", err.Error()))
	return apperr.Internal(op, id, step, err)
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, id)
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
