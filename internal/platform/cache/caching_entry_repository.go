// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"journal_backend/internal/feature/entries/domain/entity"
	"journal_backend/internal/feature/entries/usecase"
)

const (
	defaultTTL       = time.Minute
	defaultNamespace = "entries"
	scanCount        = 200
)

// CachingEntryRepository decorates an EntryRepository with a Redis cache of
// the public feed. Owner listings and single-entry reads are not cached.
type CachingEntryRepository struct {
	inner     usecase.EntryRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.EntryRepository = (*CachingEntryRepository)(nil)

// NewCachingEntryRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to 1 minute. If namespace is empty, it uses "entries".
// A nil rdb turns the decorator into a pass-through.
func NewCachingEntryRepository(rdb *redis.Client, ttl time.Duration, inner usecase.EntryRepository, namespace string) *CachingEntryRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingEntryRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Create stores the entry and invalidates the feed.
func (c *CachingEntryRepository) Create(ctx context.Context, e *entity.Entry) error {
	if err := c.inner.Create(ctx, e); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// FindByID is not cached.
func (c *CachingEntryRepository) FindByID(ctx context.Context, id uint) (*entity.Entry, error) {
	return c.inner.FindByID(ctx, id)
}

// Update saves the entry and invalidates the feed.
func (c *CachingEntryRepository) Update(ctx context.Context, e *entity.Entry) error {
	if err := c.inner.Update(ctx, e); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Delete removes the entry and invalidates the feed.
func (c *CachingEntryRepository) Delete(ctx context.Context, id uint) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// ListByOwner is not cached.
func (c *CachingEntryRepository) ListByOwner(ctx context.Context, ownerID uint, f entity.Filter) ([]entity.Entry, error) {
	return c.inner.ListByOwner(ctx, ownerID, f)
}

// ReplaceCollections does not touch the feed, which carries no memberships.
func (c *CachingEntryRepository) ReplaceCollections(ctx context.Context, entryID uint, collectionIDs []uint) error {
	return c.inner.ReplaceCollections(ctx, entryID, collectionIDs)
}

// ListPublic returns the feed from the cache, falling back to the inner repository.
func (c *CachingEntryRepository) ListPublic(ctx context.Context) ([]entity.Entry, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.ListPublic(ctx)
	}

	key := c.publicKey()

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Entry
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			slog.Warn("failed to cache public feed", "error", err)
		}
	}
	return out, nil
}

func (c *CachingEntryRepository) publicKey() string {
	return c.namespace + ":public"
}

// invalidate drops every key of the namespace. Failures are logged; stale
// data expires with the TTL.
func (c *CachingEntryRepository) invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.deleteByPattern(ctx, c.namespace+":*"); err != nil {
		slog.Warn("failed to invalidate entry cache", "namespace", c.namespace, "error", err)
	}
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingEntryRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}
