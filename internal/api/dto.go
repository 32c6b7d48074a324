package api

import (
	"github.com/starford/quire/internal/models"
)

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Title string `json:"title" example:"Groceries"`
	Body  string `json:"body" example:"<p>milk, bread</p>"`
}

// Note is a note record (aliased from the domain layer).
type Note = models.Note

// NoteWithAttachments is a note plus its attachments (aliased from the domain layer).
type NoteWithAttachments = models.NoteWithAttachments

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []Note `json:"notes" validate:"required"`
	Total int    `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []Note `json:"results" validate:"required"`
}
