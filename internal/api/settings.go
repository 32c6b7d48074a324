package api

import (
	"encoding/json"
	"net/http"

	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/sse"
)

// Publisher receives settings change notifications.
type Publisher interface {
	Publish(sse.Event)
}

// SettingsHandler exposes the user settings.
type SettingsHandler struct {
	provider settings.Provider
	events   Publisher
}

// NewSettingsHandler creates a SettingsHandler. events may be nil.
func NewSettingsHandler(p settings.Provider, events Publisher) *SettingsHandler {
	return &SettingsHandler{provider: p, events: events}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.provider.Get())
}

// Put handles PUT /api/settings.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	s := h.provider.Get()
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := s.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.provider.Put(s); err != nil {
		writeError(w, "update settings failed", err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, h.provider.Get())
}

// CompleteOnboarding handles POST /api/settings/onboarding.
func (h *SettingsHandler) CompleteOnboarding(w http.ResponseWriter, _ *http.Request) {
	s, err := settings.CompleteOnboarding(h.provider)
	if err != nil {
		writeError(w, "complete onboarding failed", err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) changed() {
	if h.events != nil {
		h.events.Publish(sse.Event{Type: sse.TypeSettingsUpdated, Data: h.provider.Get()})
	}
}
