package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler accepts and serves attachment blobs.
type AttachmentHandler struct {
	svc *noteservice.Service
}

// NewAttachmentHandler creates an AttachmentHandler.
func NewAttachmentHandler(svc *noteservice.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload handles POST /api/notes/{id}/attachments (multipart/form-data, field
// "file", optional field "type").
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	att, err := h.svc.AddAttachment(r.Context(), id, noteservice.AttachmentInput{
		Type:     r.FormValue("type"),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeError(w, "add attachment failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// ServeFile handles GET /api/notes/{id}/attachments/{attachmentID}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	attID := chi.URLParam(r, "attachmentID")

	att, data, err := h.svc.ReadAttachment(r.Context(), id, attID)
	if err != nil {
		writeError(w, "read attachment failed", err, slog.String("id", id), slog.String("attachment_id", attID))
		return
	}
	if att.MimeType != nil {
		w.Header().Set("Content-Type", *att.MimeType)
	}
	http.ServeContent(w, r, att.FileName, time.Unix(att.CreatedAt, 0), bytes.NewReader(data))
}
