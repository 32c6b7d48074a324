package mcpserver

// NoteModel describes how notes are stored, for LLM consumers that create or
// delete notes through the tools.
const NoteModel = `# Quire Note Model

## Notes

- A note has an ` + "`id`" + ` (UUID, assigned by the server), a ` + "`title`" + ` and a ` + "`body`" + `.
- The body is stored as-is in the database and mirrored to ` + "`{notes_folder}/{id}.html`" + `.
  Write HTML, not Markdown.
- ` + "`created_at`" + ` and ` + "`updated_at`" + ` are Unix seconds. Updates never change the id,
  the file path or ` + "`created_at`" + `.
- ` + "`list_notes`" + ` and ` + "`search_notes`" + ` return notes most recently updated first.
  Search is a case-insensitive substring match on title and body.

## Attachments

- Use ` + "`add_attachment`" + ` with an http(s) URL or a base64 data URI.
- Blobs live under ` + "`{notes_folder}/attachments/{note_id}/`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Deleting

` + "`delete_note`" + ` follows the ` + "`delete_behavior`" + ` setting:

- ` + "`MoveToTrash`" + ` moves the note file and its attachments to
  ` + "`{notes_folder}/trash/{YYYY-MM-DD}/`" + `. If a file with the same name is already
  there the delete fails and nothing is moved.
- ` + "`Permanent`" + ` removes the files.

In both cases the database rows are removed and the note is gone from every tool.
`
