package notes

import (
	"context"
	"io"

	"github.com/quillhq/quill/pkg/observability"
	"github.com/quillhq/quill/pkg/ownership"
	"github.com/quillhq/quill/pkg/storage"
)

// Service implements note business logic on top of the ownership
// enforcer, delegating attachment bytes to blob storage
type Service struct {
	store    Store
	enforcer *ownership.Enforcer[*Note]
	blobs    storage.BlobStorage
	logger   *observability.Logger
}

// NewService creates the note service
func NewService(store Store, blobs storage.BlobStorage, logger *observability.Logger) *Service {
	return &Service{
		store:    store,
		enforcer: ownership.NewEnforcer[*Note](store),
		blobs:    blobs,
		logger:   logger,
	}
}

// List returns all notes owned by ownerID
func (s *Service) List(ctx context.Context, ownerID string) ([]*Note, error) {
	return s.enforcer.ListForOwner(ctx, ownerID)
}

// Get returns the note when it exists and belongs to ownerID
func (s *Service) Get(ctx context.Context, id, ownerID string) (*Note, error) {
	return s.enforcer.GetForOwner(ctx, id, ownerID)
}

// Create persists a new note bound to ownerID
func (s *Service) Create(ctx context.Context, ownerID string, req CreateNoteRequest) (*Note, error) {
	note := &Note{
		Title:   req.Title,
		Content: req.Content,
	}
	return s.enforcer.CreateForOwner(ctx, note, ownerID)
}

// Update applies the non-nil fields of req to the owner's note
func (s *Service) Update(ctx context.Context, id, ownerID string, req UpdateNoteRequest) (*Note, error) {
	return s.enforcer.UpdateForOwner(ctx, id, ownerID, func(note *Note) {
		if req.Title != nil {
			note.Title = *req.Title
		}
		if req.Content != nil {
			note.Content = *req.Content
		}
	})
}

// Delete removes the owner's note. The existence check up front turns
// the enforcer's silent no-op into a NotFound the caller can surface.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.enforcer.GetForOwner(ctx, id, ownerID); err != nil {
		return err
	}
	return s.enforcer.DeleteForOwner(ctx, id, ownerID)
}

// AddAttachment uploads the file to blob storage and links the resulting
// record to the owner's note. The blob upload happens after the ownership
// check; a record write failure after a successful upload leaves an
// orphaned blob for the maintenance sweeper to reclaim.
func (s *Service) AddAttachment(ctx context.Context, noteID, ownerID string, file io.Reader, fileName, mimeType string) (*Attachment, error) {
	if _, err := s.enforcer.GetForOwner(ctx, noteID, ownerID); err != nil {
		return nil, err
	}

	stored, err := s.blobs.Store(ctx, file, fileName, mimeType)
	if err != nil {
		return nil, err
	}

	attachment := &Attachment{
		NoteID:   noteID,
		FilePath: stored.Path,
		FileName: stored.FileName,
		MimeType: stored.MimeType,
		Size:     stored.Size,
		URL:      stored.PublicURL,
	}
	created, err := s.store.CreateAttachment(ctx, attachment)
	if err != nil {
		s.logger.WithRequest(ctx).WithError(err).
			WithField("blob_path", stored.Path).
			Error("attachment record write failed after blob upload")
		return nil, err
	}
	return created, nil
}

// ListAttachments returns the attachment records of the owner's note.
// An empty result is an error, matching the long-standing API behavior
// clients depend on.
func (s *Service) ListAttachments(ctx context.Context, noteID, ownerID string) ([]*Attachment, error) {
	if _, err := s.enforcer.GetForOwner(ctx, noteID, ownerID); err != nil {
		return nil, err
	}

	attachments, err := s.store.FindAttachmentsByNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, ErrNoAttachments
	}
	return attachments, nil
}

// DeleteAttachment removes an attachment record by ID.
//
// Known gap: the attachment's note is not checked against the caller,
// so any authenticated user can delete any attachment. Kept for
// compatibility; see DESIGN.md before tightening this.
func (s *Service) DeleteAttachment(ctx context.Context, attachmentID string) error {
	return s.store.DeleteAttachment(ctx, attachmentID)
}
