package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/quillhq/quill/pkg/ownership"
)

var storeTracer = otel.Tracer("quill.notes.store")

const notesSchema = `
CREATE TABLE IF NOT EXISTS notes (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	user_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);

CREATE TABLE IF NOT EXISTS note_attachments (
	id UUID PRIMARY KEY,
	note_id UUID NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	file_path TEXT NOT NULL,
	file_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_note_attachments_note_id ON note_attachments(note_id);
`

// Store persists notes and their attachment records. It satisfies the
// ownership store contract for notes; ownership checks themselves live
// one layer up.
type Store interface {
	ownership.Store[*Note]

	CreateAttachment(ctx context.Context, attachment *Attachment) (*Attachment, error)
	FindAttachmentsByNote(ctx context.Context, noteID string) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error
	ListAttachmentPaths(ctx context.Context) ([]string, error)
}

// PostgresStore is the Postgres-backed note store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the store and ensures its schema exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(notesSchema); err != nil {
		return nil, fmt.Errorf("failed to create notes schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Find returns a note with its attachment IDs, regardless of owner
func (s *PostgresStore) Find(ctx context.Context, id string) (*Note, error) {
	ctx, span := storeTracer.Start(ctx, "notes.find")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", id))

	row := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.title, n.content, n.user_id, n.created_at, n.updated_at,
			COALESCE(array_agg(a.id::text) FILTER (WHERE a.id IS NOT NULL), '{}')
		FROM notes n
		LEFT JOIN note_attachments a ON a.note_id = n.id
		WHERE n.id = $1
		GROUP BY n.id`, id)

	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, ownership.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}
	return note, nil
}

// FindAllByOwner returns all notes owned by userID with attachment IDs
// eagerly loaded
func (s *PostgresStore) FindAllByOwner(ctx context.Context, ownerID string) ([]*Note, error) {
	ctx, span := storeTracer.Start(ctx, "notes.find_all_by_owner")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.title, n.content, n.user_id, n.created_at, n.updated_at,
			COALESCE(array_agg(a.id::text) FILTER (WHERE a.id IS NOT NULL), '{}')
		FROM notes n
		LEFT JOIN note_attachments a ON a.note_id = n.id
		WHERE n.user_id = $1
		GROUP BY n.id
		ORDER BY n.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// Create persists a new note. The ID and creation timestamp are assigned
// here.
func (s *PostgresStore) Create(ctx context.Context, note *Note) (*Note, error) {
	ctx, span := storeTracer.Start(ctx, "notes.create")
	defer span.End()

	note.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, title, content, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		note.ID, note.Title, note.Content, note.UserID,
	).Scan(&note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	note.AttachmentIDs = []string{}
	return note, nil
}

// Update rewrites the mutable fields and stamps updated_at
func (s *PostgresStore) Update(ctx context.Context, note *Note) (*Note, error) {
	ctx, span := storeTracer.Start(ctx, "notes.update")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", note.ID))

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title = $1, content = $2, updated_at = $3
		WHERE id = $4`,
		note.Title, note.Content, now, note.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ownership.ErrNotFound
	}
	note.UpdatedAt = &now
	return note, nil
}

// Delete removes a note; attachment records go with it via the cascade
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, span := storeTracer.Start(ctx, "notes.delete")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", id))

	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

// CreateAttachment persists an attachment record linked to a note
func (s *PostgresStore) CreateAttachment(ctx context.Context, attachment *Attachment) (*Attachment, error) {
	ctx, span := storeTracer.Start(ctx, "notes.create_attachment")
	defer span.End()

	attachment.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO note_attachments (id, note_id, file_path, file_name, mime_type, size, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		attachment.ID, attachment.NoteID, attachment.FilePath, attachment.FileName,
		attachment.MimeType, attachment.Size, attachment.URL,
	).Scan(&attachment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert attachment: %w", err)
	}
	return attachment, nil
}

// FindAttachmentsByNote returns all attachment records for a note
func (s *PostgresStore) FindAttachmentsByNote(ctx context.Context, noteID string) ([]*Attachment, error) {
	ctx, span := storeTracer.Start(ctx, "notes.find_attachments")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", noteID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, file_path, file_name, mime_type, size, url, created_at
		FROM note_attachments
		WHERE note_id = $1
		ORDER BY created_at`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	attachments := []*Attachment{}
	for rows.Next() {
		a := &Attachment{}
		if err := rows.Scan(&a.ID, &a.NoteID, &a.FilePath, &a.FileName,
			&a.MimeType, &a.Size, &a.URL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment removes an attachment record. Deleting a missing
// record is not an error.
func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	ctx, span := storeTracer.Start(ctx, "notes.delete_attachment")
	defer span.End()
	span.SetAttributes(attribute.String("attachment.id", attachmentID))

	if _, err := s.db.ExecContext(ctx, `DELETE FROM note_attachments WHERE id = $1`, attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// ListAttachmentPaths returns every referenced blob path. The orphan
// sweeper diffs this against the blob store's contents.
func (s *PostgresStore) ListAttachmentPaths(ctx context.Context) ([]string, error) {
	ctx, span := storeTracer.Start(ctx, "notes.list_attachment_paths")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT file_path FROM note_attachments`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachment paths: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan attachment path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*Note, error) {
	note := &Note{}
	var updatedAt sql.NullTime
	var attachmentIDs pq.StringArray
	if err := row.Scan(&note.ID, &note.Title, &note.Content, &note.UserID,
		&note.CreatedAt, &updatedAt, &attachmentIDs); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		note.UpdatedAt = &updatedAt.Time
	}
	note.AttachmentIDs = []string(attachmentIDs)
	if note.AttachmentIDs == nil {
		note.AttachmentIDs = []string{}
	}
	return note, nil
}
