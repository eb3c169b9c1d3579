package notes

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quillhq/quill/pkg/contextkeys"
	"github.com/quillhq/quill/pkg/httputil"
	"github.com/quillhq/quill/pkg/observability"
	"github.com/quillhq/quill/pkg/ownership"
	"github.com/quillhq/quill/pkg/storage"
)

// maxAttachmentSize bounds multipart uploads (32 MiB)
const maxAttachmentSize = 32 << 20

// Handlers serves the note endpoints. All routes require authentication;
// the owner ID comes from the request context set by the auth guard.
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates the note handler group
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes registers the note and attachment routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notes", h.list).Methods("GET").Name("notes.list")
	router.HandleFunc("/notes", h.create).Methods("POST").Name("notes.create")
	// Attachment-by-id route is registered before /notes/{id} so the
	// literal "attachments" segment is not captured as a note ID.
	router.HandleFunc("/notes/attachments/{attachmentId}", h.deleteAttachment).Methods("DELETE").Name("notes.attachments.delete")
	router.HandleFunc("/notes/{id}", h.get).Methods("GET").Name("notes.get")
	router.HandleFunc("/notes/{id}", h.update).Methods("PUT").Name("notes.update")
	router.HandleFunc("/notes/{id}", h.delete).Methods("DELETE").Name("notes.delete")
	router.HandleFunc("/notes/{id}/attachments", h.addAttachment).Methods("POST").Name("notes.attachments.add")
	router.HandleFunc("/notes/{id}/attachments", h.listAttachments).Methods("GET").Name("notes.attachments.list")
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	ownerID := contextkeys.GetUserID(r.Context())
	result, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}

	ownerID := contextkeys.GetUserID(r.Context())
	note, err := h.service.Create(r.Context(), ownerID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, note)
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	ownerID := contextkeys.GetUserID(r.Context())
	note, err := h.service.Get(r.Context(), id, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, note)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ownerID := contextkeys.GetUserID(r.Context())
	note, err := h.service.Update(r.Context(), id, ownerID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, note)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	ownerID := contextkeys.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) addAttachment(w http.ResponseWriter, r *http.Request) {
	noteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ownerID := contextkeys.GetUserID(r.Context())
	attachment, err := h.service.AddAttachment(r.Context(), noteID, ownerID, file, header.Filename, mimeType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, attachment)
}

func (h *Handlers) listAttachments(w http.ResponseWriter, r *http.Request) {
	noteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	ownerID := contextkeys.GetUserID(r.Context())
	attachments, err := h.service.ListAttachments(r.Context(), noteID, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, attachments)
}

func (h *Handlers) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	attachmentID, ok := httputil.ParsePathStringOrError(w, r, "attachmentId")
	if !ok {
		return
	}

	if err := h.service.DeleteAttachment(r.Context(), attachmentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ownership.ErrNotFound):
		httputil.WriteNotFoundError(w, "note not found")
	case errors.Is(err, ErrNoAttachments):
		httputil.WriteNotFoundError(w, ErrNoAttachments.Error())
	case errors.Is(err, storage.ErrUpstreamStorage):
		httputil.WriteBadGateway(w, "blob storage unavailable")
	default:
		h.logger.WithRequest(r.Context()).WithError(err).Error("note request failed")
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}
