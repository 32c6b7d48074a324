package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/quire/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a single message. Server-side failures are logged.
func writeError(w http.ResponseWriter, msg string, err error, attrs ...slog.Attr) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		args := make([]any, 0, len(attrs)+2)
		args = append(args, slog.String("kind", apperr.KindOf(err).String()), slog.String("error", err.Error()))
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(msg, args...)
	}
	writeJSON(w, status, errorBody(err.Error()))
}
