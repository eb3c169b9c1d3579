// Package notes implements the note resource: owner-scoped CRUD plus
// file attachments backed by blob storage.
package notes

import (
	"errors"
	"time"
)

// ErrNoAttachments is returned when a note has no attachments to list
var ErrNoAttachments = errors.New("unable to retrieve the attachments")

// Note is a persisted note record bound to its owning user
type Note struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	UserID        string     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt"`
	AttachmentIDs []string   `json:"attachmentIds"`
}

// OwnerID returns the owning user's ID
func (n *Note) OwnerID() string { return n.UserID }

// SetOwnerID binds the note to a user
func (n *Note) SetOwnerID(id string) { n.UserID = id }

// Attachment is a file attachment record linked to a note. The bytes
// themselves live in blob storage; the record keeps the path and the
// public URL.
type Attachment struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"noteId"`
	FilePath  string    `json:"filePath"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateNoteRequest is the payload for creating a note
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the payload for updating a note. Nil fields are
// left unchanged.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}
