package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quillhq/quill/pkg/observability"
)

// CachedStore wraps a Store with a Redis read-through cache. Note reads
// are cached per note and per owner; any write invalidates the affected
// keys. Attachment operations mutate the note's attachment ID list, so
// they invalidate the note as well.
type CachedStore struct {
	store   Store
	redis   *redis.Client
	metrics *observability.Metrics
	ttl     time.Duration
}

// NewCachedStore creates the caching layer over store
func NewCachedStore(store Store, client *redis.Client, metrics *observability.Metrics, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{
		store:   store,
		redis:   client,
		metrics: metrics,
		ttl:     ttl,
	}
}

func noteKey(id string) string      { return fmt.Sprintf("note:%s", id) }
func ownerListKey(id string) string { return fmt.Sprintf("notes:owner:%s", id) }

// Find returns the note from cache when present, falling back to the
// underlying store
func (c *CachedStore) Find(ctx context.Context, id string) (*Note, error) {
	cacheKey := noteKey(id)
	cached, err := c.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var note Note
		if err := json.Unmarshal([]byte(cached), &note); err == nil {
			c.metrics.CacheHitsTotal.WithLabelValues("note").Inc()
			return &note, nil
		}
	}
	c.metrics.CacheMissesTotal.WithLabelValues("note").Inc()

	note, err := c.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(note); err == nil {
		c.redis.Set(ctx, cacheKey, data, c.ttl)
	}
	return note, nil
}

// FindAllByOwner returns the owner's note list, cached per owner
func (c *CachedStore) FindAllByOwner(ctx context.Context, ownerID string) ([]*Note, error) {
	cacheKey := ownerListKey(ownerID)
	cached, err := c.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var result []*Note
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			c.metrics.CacheHitsTotal.WithLabelValues("note_list").Inc()
			return result, nil
		}
	}
	c.metrics.CacheMissesTotal.WithLabelValues("note_list").Inc()

	result, err := c.store.FindAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(result); err == nil {
		c.redis.Set(ctx, cacheKey, data, c.ttl)
	}
	return result, nil
}

// Create persists the note and invalidates the owner's list
func (c *CachedStore) Create(ctx context.Context, note *Note) (*Note, error) {
	created, err := c.store.Create(ctx, note)
	if err != nil {
		return nil, err
	}
	c.redis.Del(ctx, ownerListKey(created.UserID))
	return created, nil
}

// Update persists the note and invalidates both keys
func (c *CachedStore) Update(ctx context.Context, note *Note) (*Note, error) {
	updated, err := c.store.Update(ctx, note)
	if err != nil {
		return nil, err
	}
	c.redis.Del(ctx, noteKey(updated.ID), ownerListKey(updated.UserID))
	return updated, nil
}

// Delete removes the note and invalidates both keys. The owner is
// fetched first so the list key can be cleared.
func (c *CachedStore) Delete(ctx context.Context, id string) error {
	ownerID := ""
	if note, err := c.store.Find(ctx, id); err == nil {
		ownerID = note.UserID
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.redis.Del(ctx, noteKey(id))
	if ownerID != "" {
		c.redis.Del(ctx, ownerListKey(ownerID))
	}
	return nil
}

// CreateAttachment persists the record and invalidates the note's cache
// entries since the attachment ID list changed
func (c *CachedStore) CreateAttachment(ctx context.Context, attachment *Attachment) (*Attachment, error) {
	created, err := c.store.CreateAttachment(ctx, attachment)
	if err != nil {
		return nil, err
	}
	c.invalidateNote(ctx, created.NoteID)
	return created, nil
}

// FindAttachmentsByNote passes through uncached; attachment listings
// are rare compared to note reads
func (c *CachedStore) FindAttachmentsByNote(ctx context.Context, noteID string) ([]*Attachment, error) {
	return c.store.FindAttachmentsByNote(ctx, noteID)
}

// DeleteAttachment removes the record and clears every note cache entry.
// The record is gone by the time we would look up its note, so the
// per-note invalidation cannot be targeted.
func (c *CachedStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	if err := c.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	c.flushNotes(ctx)
	return nil
}

// ListAttachmentPaths passes through uncached
func (c *CachedStore) ListAttachmentPaths(ctx context.Context) ([]string, error) {
	return c.store.ListAttachmentPaths(ctx)
}

func (c *CachedStore) invalidateNote(ctx context.Context, noteID string) {
	note, err := c.store.Find(ctx, noteID)
	if err == nil {
		c.redis.Del(ctx, ownerListKey(note.UserID))
	}
	c.redis.Del(ctx, noteKey(noteID))
}

func (c *CachedStore) flushNotes(ctx context.Context) {
	for _, pattern := range []string{"note:*", "notes:owner:*"} {
		iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			c.redis.Del(ctx, iter.Val())
		}
	}
}
