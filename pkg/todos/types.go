// Package todos implements the todo-list resource: lists with nested
// items.
//
// Todos carry no owner binding. Every authenticated user sees and
// mutates the same global set. This is a deliberate, documented choice;
// putting todos behind the ownership layer would be a breaking API
// change for existing clients.
package todos

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a todo or todo item does not exist
var ErrNotFound = errors.New("todo not found")

// Todo is a todo list
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color,omitempty"`
	Items     []*Item   `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is a single entry of a todo list
type Item struct {
	ID          string `json:"id"`
	TodoID      string `json:"todoId"`
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// CreateTodoRequest is the payload for creating a todo list
type CreateTodoRequest struct {
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// UpdateTodoRequest is the payload for updating a todo list. Nil fields
// are left unchanged.
type UpdateTodoRequest struct {
	Title *string `json:"title"`
	Color *string `json:"color"`
}

// CreateItemRequest is the payload for adding an item to a todo list
type CreateItemRequest struct {
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// UpdateItemRequest is the payload for updating a todo item. Nil fields
// are left unchanged.
type UpdateItemRequest struct {
	Description *string `json:"description"`
	IsCompleted *bool   `json:"isCompleted"`
}
