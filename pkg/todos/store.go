package todos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var storeTracer = otel.Tracer("quill.todos.store")

const todosSchema = `
CREATE TABLE IF NOT EXISTS todos (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	color TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS todo_items (
	id UUID PRIMARY KEY,
	todo_id UUID NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_todo_items_todo_id ON todo_items(todo_id);
`

// Store persists todo lists and their items
type Store interface {
	Create(ctx context.Context, todo *Todo) (*Todo, error)
	FindAll(ctx context.Context) ([]*Todo, error)
	Find(ctx context.Context, id string) (*Todo, error)
	Update(ctx context.Context, todo *Todo) (*Todo, error)
	Delete(ctx context.Context, id string) error

	CreateItem(ctx context.Context, item *Item) (*Item, error)
	FindItems(ctx context.Context, todoID string) ([]*Item, error)
	FindItem(ctx context.Context, todoID, itemID string) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) (*Item, error)
	DeleteItem(ctx context.Context, itemID string) error
}

// PostgresStore is the Postgres-backed todo store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the store and ensures its schema exists
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if _, err := db.Exec(todosSchema); err != nil {
		return nil, fmt.Errorf("failed to create todos schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Create persists a new todo list
func (s *PostgresStore) Create(ctx context.Context, todo *Todo) (*Todo, error) {
	ctx, span := storeTracer.Start(ctx, "todos.create")
	defer span.End()

	todo.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (id, title, color)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		todo.ID, todo.Title, nullString(todo.Color),
	).Scan(&todo.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}
	todo.Items = []*Item{}
	return todo, nil
}

// FindAll returns every todo list with items eagerly loaded
func (s *PostgresStore) FindAll(ctx context.Context) ([]*Todo, error) {
	ctx, span := storeTracer.Start(ctx, "todos.find_all")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(color, ''), created_at
		FROM todos
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []*Todo{}
	byID := map[string]*Todo{}
	for rows.Next() {
		todo := &Todo{Items: []*Item{}}
		if err := rows.Scan(&todo.ID, &todo.Title, &todo.Color, &todo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
		byID[todo.ID] = todo
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, todo_id, description, is_completed
		FROM todo_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query todo items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &Item{}
		if err := itemRows.Scan(&item.ID, &item.TodoID, &item.Description, &item.IsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan todo item: %w", err)
		}
		if todo, ok := byID[item.TodoID]; ok {
			todo.Items = append(todo.Items, item)
		}
	}
	return todos, itemRows.Err()
}

// Find returns a single todo list without items
func (s *PostgresStore) Find(ctx context.Context, id string) (*Todo, error) {
	ctx, span := storeTracer.Start(ctx, "todos.find")
	defer span.End()
	span.SetAttributes(attribute.String("todo.id", id))

	todo := &Todo{Items: []*Item{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(color, ''), created_at
		FROM todos WHERE id = $1`, id,
	).Scan(&todo.ID, &todo.Title, &todo.Color, &todo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return todo, nil
}

// Update rewrites the mutable fields of a todo list
func (s *PostgresStore) Update(ctx context.Context, todo *Todo) (*Todo, error) {
	ctx, span := storeTracer.Start(ctx, "todos.update")
	defer span.End()
	span.SetAttributes(attribute.String("todo.id", todo.ID))

	result, err := s.db.ExecContext(ctx, `
		UPDATE todos SET title = $1, color = $2 WHERE id = $3`,
		todo.Title, nullString(todo.Color), todo.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return todo, nil
}

// Delete removes a todo list; items go with it via the cascade
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, span := storeTracer.Start(ctx, "todos.delete")
	defer span.End()
	span.SetAttributes(attribute.String("todo.id", id))

	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// CreateItem persists a new item on a todo list
func (s *PostgresStore) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	ctx, span := storeTracer.Start(ctx, "todos.create_item")
	defer span.End()

	item.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todo_items (id, todo_id, description, is_completed)
		VALUES ($1, $2, $3, $4)`,
		item.ID, item.TodoID, item.Description, item.IsCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo item: %w", err)
	}
	return item, nil
}

// FindItems returns all items of a todo list
func (s *PostgresStore) FindItems(ctx context.Context, todoID string) ([]*Item, error) {
	ctx, span := storeTracer.Start(ctx, "todos.find_items")
	defer span.End()
	span.SetAttributes(attribute.String("todo.id", todoID))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, todo_id, description, is_completed
		FROM todo_items WHERE todo_id = $1`, todoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todo items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.TodoID, &item.Description, &item.IsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan todo item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindItem returns an item only when it belongs to the given todo list
func (s *PostgresStore) FindItem(ctx context.Context, todoID, itemID string) (*Item, error) {
	ctx, span := storeTracer.Start(ctx, "todos.find_item")
	defer span.End()

	item := &Item{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, todo_id, description, is_completed
		FROM todo_items WHERE id = $1 AND todo_id = $2`, itemID, todoID,
	).Scan(&item.ID, &item.TodoID, &item.Description, &item.IsCompleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todo item: %w", err)
	}
	return item, nil
}

// UpdateItem rewrites the mutable fields of an item
func (s *PostgresStore) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	ctx, span := storeTracer.Start(ctx, "todos.update_item")
	defer span.End()

	result, err := s.db.ExecContext(ctx, `
		UPDATE todo_items SET description = $1, is_completed = $2 WHERE id = $3`,
		item.Description, item.IsCompleted, item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return item, nil
}

// DeleteItem removes a single item
func (s *PostgresStore) DeleteItem(ctx context.Context, itemID string) error {
	ctx, span := storeTracer.Start(ctx, "todos.delete_item")
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("failed to delete todo item: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
