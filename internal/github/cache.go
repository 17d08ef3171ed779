package github

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores profile snapshots keyed by username with a TTL. Implementations
// must be safe for concurrent use. A miss is reported via the bool return, not
// an error.
type Cache interface {
	Get(ctx context.Context, key string) (Snapshot, bool, error)
	Set(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error
}

// MemoryCache is a process-local TTL cache, used in dev and tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// NewMemoryCache constructs a MemoryCache. A nil now falls back to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get returns a cached snapshot if present and unexpired.
func (c *MemoryCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return Snapshot{}, false, nil
	}
	return entry.snapshot, true, nil
}

// Set stores a snapshot with the given TTL.
func (c *MemoryCache) Set(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		snapshot:  snapshot,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// RedisCache stores snapshots as JSON values in Redis, letting the server
// handle expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache around an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns a cached snapshot if the key exists.
func (c *RedisCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		return Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Set stores a snapshot with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, snapshot Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
