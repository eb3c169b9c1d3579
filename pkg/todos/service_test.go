package todos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTodoStore struct {
	todos map[string]*Todo
	items map[string]*Item
}

func newFakeTodoStore() *fakeTodoStore {
	return &fakeTodoStore{
		todos: make(map[string]*Todo),
		items: make(map[string]*Item),
	}
}

func (s *fakeTodoStore) Create(ctx context.Context, todo *Todo) (*Todo, error) {
	todo.ID = uuid.NewString()
	todo.CreatedAt = time.Now()
	todo.Items = []*Item{}
	copied := *todo
	s.todos[todo.ID] = &copied
	return todo, nil
}

func (s *fakeTodoStore) FindAll(ctx context.Context) ([]*Todo, error) {
	result := []*Todo{}
	for _, todo := range s.todos {
		copied := *todo
		copied.Items = []*Item{}
		for _, item := range s.items {
			if item.TodoID == todo.ID {
				itemCopy := *item
				copied.Items = append(copied.Items, &itemCopy)
			}
		}
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeTodoStore) Find(ctx context.Context, id string) (*Todo, error) {
	todo, ok := s.todos[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *todo
	return &copied, nil
}

func (s *fakeTodoStore) Update(ctx context.Context, todo *Todo) (*Todo, error) {
	if _, ok := s.todos[todo.ID]; !ok {
		return nil, ErrNotFound
	}
	copied := *todo
	s.todos[todo.ID] = &copied
	return todo, nil
}

func (s *fakeTodoStore) Delete(ctx context.Context, id string) error {
	delete(s.todos, id)
	for itemID, item := range s.items {
		if item.TodoID == id {
			delete(s.items, itemID)
		}
	}
	return nil
}

func (s *fakeTodoStore) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	item.ID = uuid.NewString()
	copied := *item
	s.items[item.ID] = &copied
	return item, nil
}

func (s *fakeTodoStore) FindItems(ctx context.Context, todoID string) ([]*Item, error) {
	result := []*Item{}
	for _, item := range s.items {
		if item.TodoID == todoID {
			copied := *item
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeTodoStore) FindItem(ctx context.Context, todoID, itemID string) (*Item, error) {
	item, ok := s.items[itemID]
	if !ok || item.TodoID != todoID {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeTodoStore) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	if _, ok := s.items[item.ID]; !ok {
		return nil, ErrNotFound
	}
	copied := *item
	s.items[item.ID] = &copied
	return item, nil
}

func (s *fakeTodoStore) DeleteItem(ctx context.Context, itemID string) error {
	delete(s.items, itemID)
	return nil
}

func TestTodoCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeTodoStore())

	created, err := svc.Create(ctx, CreateTodoRequest{Title: "groceries", Color: "#00ff00"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "#00ff00", created.Color)

	t.Run("list includes it", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("update", func(t *testing.T) {
		title := "errands"
		updated, err := svc.Update(ctx, created.ID, UpdateTodoRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "errands", updated.Title)
		assert.Equal(t, "#00ff00", updated.Color)
	})

	t.Run("update missing id", func(t *testing.T) {
		title := "x"
		_, err := svc.Update(ctx, uuid.NewString(), UpdateTodoRequest{Title: &title})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created.ID))
		assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
	})
}

func TestTodoItems(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeTodoStore())

	todo, err := svc.Create(ctx, CreateTodoRequest{Title: "list"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, CreateTodoRequest{Title: "other"})
	require.NoError(t, err)

	item, err := svc.CreateItem(ctx, todo.ID, CreateItemRequest{Description: "buy milk"})
	require.NoError(t, err)
	assert.Equal(t, todo.ID, item.TodoID)
	assert.False(t, item.IsCompleted)

	t.Run("create on missing todo", func(t *testing.T) {
		_, err := svc.CreateItem(ctx, uuid.NewString(), CreateItemRequest{Description: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list items", func(t *testing.T) {
		items, err := svc.ListItems(ctx, todo.ID)
		require.NoError(t, err)
		assert.Len(t, items, 1)

		empty, err := svc.ListItems(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("update item", func(t *testing.T) {
		done := true
		updated, err := svc.UpdateItem(ctx, todo.ID, item.ID, UpdateItemRequest{IsCompleted: &done})
		require.NoError(t, err)
		assert.True(t, updated.IsCompleted)
		assert.Equal(t, "buy milk", updated.Description)
	})

	t.Run("item addressed through the wrong todo", func(t *testing.T) {
		done := true
		_, err := svc.UpdateItem(ctx, other.ID, item.ID, UpdateItemRequest{IsCompleted: &done})
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, svc.DeleteItem(ctx, other.ID, item.ID), ErrNotFound)
	})

	t.Run("delete item", func(t *testing.T) {
		require.NoError(t, svc.DeleteItem(ctx, todo.ID, item.ID))
		items, err := svc.ListItems(ctx, todo.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
