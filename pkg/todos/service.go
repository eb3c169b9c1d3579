package todos

import (
	"context"
)

// Service implements todo-list business logic. There is no owner
// scoping here; see the package comment.
type Service struct {
	store Store
}

// NewService creates the todo service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns all todo lists with their items
func (s *Service) List(ctx context.Context) ([]*Todo, error) {
	return s.store.FindAll(ctx)
}

// Create persists a new todo list
func (s *Service) Create(ctx context.Context, req CreateTodoRequest) (*Todo, error) {
	return s.store.Create(ctx, &Todo{
		Title: req.Title,
		Color: req.Color,
	})
}

// Update applies the non-nil fields of req to a todo list
func (s *Service) Update(ctx context.Context, id string, req UpdateTodoRequest) (*Todo, error) {
	todo, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Color != nil {
		todo.Color = *req.Color
	}
	return s.store.Update(ctx, todo)
}

// Delete removes a todo list and its items
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Find(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ListItems returns all items of a todo list
func (s *Service) ListItems(ctx context.Context, todoID string) ([]*Item, error) {
	if _, err := s.store.Find(ctx, todoID); err != nil {
		return nil, err
	}
	return s.store.FindItems(ctx, todoID)
}

// CreateItem adds an item to a todo list
func (s *Service) CreateItem(ctx context.Context, todoID string, req CreateItemRequest) (*Item, error) {
	if _, err := s.store.Find(ctx, todoID); err != nil {
		return nil, err
	}
	return s.store.CreateItem(ctx, &Item{
		TodoID:      todoID,
		Description: req.Description,
		IsCompleted: req.IsCompleted,
	})
}

// UpdateItem applies the non-nil fields of req to an item of a todo list
func (s *Service) UpdateItem(ctx context.Context, todoID, itemID string, req UpdateItemRequest) (*Item, error) {
	if _, err := s.store.Find(ctx, todoID); err != nil {
		return nil, err
	}
	item, err := s.store.FindItem(ctx, todoID, itemID)
	if err != nil {
		return nil, err
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.IsCompleted != nil {
		item.IsCompleted = *req.IsCompleted
	}
	return s.store.UpdateItem(ctx, item)
}

// DeleteItem removes an item of a todo list
func (s *Service) DeleteItem(ctx context.Context, todoID, itemID string) error {
	if _, err := s.store.Find(ctx, todoID); err != nil {
		return err
	}
	if _, err := s.store.FindItem(ctx, todoID, itemID); err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, itemID)
}
