package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, serves GET /events inside the auth group and receives
// settings change events.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc)
	var pub Publisher
	if broker != nil {
		pub = broker
	}
	sh := NewSettingsHandler(svc.Settings(), pub)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Attachments.
	r.Post("/notes/{id}/attachments", ah.Upload)
	r.Get("/notes/{id}/attachments/{attachmentID}", ah.ServeFile)

	// Search.
	r.Get("/search", h.Search)

	// Settings.
	r.Get("/settings", sh.Get)
	r.Put("/settings", sh.Put)
	r.Post("/settings/onboarding", sh.CompleteOnboarding)

	// Maintenance.
	r.Post("/maintenance/reconcile", h.Reconcile)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
