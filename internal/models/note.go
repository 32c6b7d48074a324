// Package models defines the domain types for quire.
package models

// Note is a single note record. Body is canonical; FilePath is the absolute path
// of its on-disk rendering. Timestamps are seconds since the Unix epoch.
type Note struct {
	ID        string `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Body      string `db:"body" json:"body"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	FilePath  string `db:"file_path" json:"file_path"`
}

// Attachment is a blob owned by a note.
type Attachment struct {
	ID             string  `db:"id" json:"id"`
	NoteID         string  `db:"note_id" json:"note_id"`
	AttachmentType string  `db:"attachment_type" json:"type"`
	FileName       string  `db:"file_name" json:"file_name"`
	FilePath       string  `db:"file_path" json:"file_path"`
	MimeType       *string `db:"mime_type" json:"mime_type,omitempty"`
	SizeBytes      *int64  `db:"size_bytes" json:"size_bytes,omitempty"`
	CreatedAt      int64   `db:"created_at" json:"created_at"`
}

// NoteWithAttachments is a read-time join of a note and its attachments.
type NoteWithAttachments struct {
	Note
	Attachments []Attachment `json:"attachments"`
}
