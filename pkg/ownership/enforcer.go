// Package ownership provides a generic owner-scoping layer over resource
// stores. Every read, write, and delete is filtered by the owner ID of the
// caller, and a resource owned by someone else is indistinguishable from a
// resource that does not exist.
package ownership

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a resource does not exist for the given
// owner. A resource that exists but belongs to a different owner produces
// the same error, so responses never disclose the existence of foreign
// resources.
var ErrNotFound = errors.New("resource not found")

// Owned is implemented by resource types that carry an owner binding
type Owned interface {
	OwnerID() string
	SetOwnerID(string)
}

// Store is the minimal persistence contract the enforcer scopes. Find
// returns the resource regardless of owner; the enforcer applies the
// ownership check on top.
type Store[T Owned] interface {
	Find(ctx context.Context, id string) (T, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]T, error)
	Create(ctx context.Context, resource T) (T, error)
	Update(ctx context.Context, resource T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Enforcer wraps a Store and guarantees owner scoping on every operation
type Enforcer[T Owned] struct {
	store Store[T]
}

// NewEnforcer creates an owner-scoping wrapper around store
func NewEnforcer[T Owned](store Store[T]) *Enforcer[T] {
	return &Enforcer[T]{store: store}
}

// ListForOwner returns all resources belonging to ownerID. A never-empty
// guarantee is not part of the contract: an owner with no resources gets
// an empty slice, not an error.
func (e *Enforcer[T]) ListForOwner(ctx context.Context, ownerID string) ([]T, error) {
	return e.store.FindAllByOwner(ctx, ownerID)
}

// GetForOwner returns the resource only when it exists and belongs to
// ownerID; otherwise ErrNotFound.
func (e *Enforcer[T]) GetForOwner(ctx context.Context, id, ownerID string) (T, error) {
	var zero T
	resource, err := e.store.Find(ctx, id)
	if err != nil {
		return zero, err
	}
	if resource.OwnerID() != ownerID {
		return zero, ErrNotFound
	}
	return resource, nil
}

// CreateForOwner persists resource bound to ownerID. Any owner the caller
// put on the resource is overwritten, so a request body cannot plant a
// foreign owner.
func (e *Enforcer[T]) CreateForOwner(ctx context.Context, resource T, ownerID string) (T, error) {
	resource.SetOwnerID(ownerID)
	return e.store.Create(ctx, resource)
}

// UpdateForOwner loads the resource under the ownership check, applies the
// mutation, restores the owner binding, and persists. The apply function
// never sees a foreign resource.
func (e *Enforcer[T]) UpdateForOwner(ctx context.Context, id, ownerID string, apply func(T)) (T, error) {
	var zero T
	resource, err := e.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return zero, err
	}
	apply(resource)
	resource.SetOwnerID(ownerID)
	return e.store.Update(ctx, resource)
}

// DeleteForOwner removes the resource when it exists and belongs to
// ownerID. Deleting a missing or foreign resource is a no-op, not an
// error; callers that need a 404 check GetForOwner first.
func (e *Enforcer[T]) DeleteForOwner(ctx context.Context, id, ownerID string) error {
	resource, err := e.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if resource.OwnerID() != ownerID {
		return nil
	}
	return e.store.Delete(ctx, id)
}
