package todos

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quillhq/quill/pkg/httputil"
	"github.com/quillhq/quill/pkg/observability"
)

// Handlers serves the todo endpoints. Authentication is required but
// there is no per-user scoping.
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates the todo handler group
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes registers the todo and todo-item routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/todos", h.list).Methods("GET").Name("todos.list")
	router.HandleFunc("/todos", h.create).Methods("POST").Name("todos.create")
	router.HandleFunc("/todos/{id}", h.update).Methods("PUT").Name("todos.update")
	router.HandleFunc("/todos/{id}", h.delete).Methods("DELETE").Name("todos.delete")
	router.HandleFunc("/todos/{id}/items", h.listItems).Methods("GET").Name("todos.items.list")
	router.HandleFunc("/todos/{id}/items", h.createItem).Methods("POST").Name("todos.items.create")
	router.HandleFunc("/todos/{id}/items/{itemId}", h.updateItem).Methods("PUT").Name("todos.items.update")
	router.HandleFunc("/todos/{id}/items/{itemId}", h.deleteItem).Methods("DELETE").Name("todos.items.delete")
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}

	todo, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, todo)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTodoRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	todo, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, todo)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	items, err := h.service.ListItems(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

func (h *Handlers) createItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req CreateItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Description == "" {
		httputil.WriteBadRequest(w, "description is required")
		return
	}

	item, err := h.service.CreateItem(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, item)
}

func (h *Handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathStringOrError(w, r, "itemId")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, itemID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

func (h *Handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := httputil.ParsePathStringOrError(w, r, "itemId")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(r.Context(), id, itemID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFoundError(w, ErrNotFound.Error())
		return
	}
	h.logger.WithRequest(r.Context()).WithError(err).Error("todo request failed")
	httputil.WriteInternalError(w, errors.New("internal server error"))
}
