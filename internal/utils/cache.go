package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error matching
	"strconv"       // Integer formatting
	"sync/atomic"   // Invalidation flag
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// ViewCache caches derived registry views under a generation counter.
// Every committed write bumps the generation, so entries computed before
// the write are never served after it. When a bump fails the views are
// served uncached until a later bump succeeds
type ViewCache struct {
	rdb    *redis.Client // Redis client
	prefix string        // Key namespace
	ttl    time.Duration // Entry lifetime
	stale  atomic.Bool   // Set while a committed write is not reflected in the generation
}

// NewViewCache creates a generation-keyed cache under prefix
func NewViewCache(rdb *redis.Client, prefix string, ttl time.Duration) *ViewCache {
	return &ViewCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *ViewCache) generationKey() string {
	return c.prefix + ":generation"
}

// Generation returns the current registry generation, zero if never bumped
func (c *ViewCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64() // Read counter
	if errors.Is(err, redis.Nil) {
		return 0, nil // Nothing written yet
	}
	return gen, err
}

// Bump advances the generation, invalidating every cached view
func (c *ViewCache) Bump(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.generationKey()).Err()
}

// Invalidate bumps the generation after a committed write. On failure the cache is
// marked stale and Cached bypasses it until a bump succeeds
func (c *ViewCache) Invalidate(ctx context.Context) error {
	if err := c.Bump(ctx); err != nil {
		c.stale.Store(true) // Old entries may still be keyed by the current generation
		return err
	}
	c.stale.Store(false) // Generation is current again
	return nil
}

// Stale reports whether a failed invalidation is still pending
func (c *ViewCache) Stale() bool {
	return c.stale.Load()
}

// Key builds the cache key of a named view at a generation
func (c *ViewCache) Key(generation int64, name string) string {
	return c.prefix + ":gen:" + strconv.FormatInt(generation, 10) + ":" + name
}

// Cached returns the view stored under name for the current generation, computing and
// storing it on a miss. The generation is read before computing, so a stored entry is
// never older than the generation it is keyed by. A nil cache, a pending invalidation or
// a Redis failure falls back to compute. The boolean reports a cache hit
func Cached[T any](ctx context.Context, c *ViewCache, name string, compute func() (T, error)) (T, bool, error) {
	if c == nil {
		v, err := compute() // No cache configured
		return v, false, err
	}
	if c.Stale() && c.Invalidate(ctx) != nil {
		v, err := compute() // Generation still behind the registry, serve uncached
		return v, false, err
	}
	gen, err := c.Generation(ctx) // Current generation
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"view":  name,        // View name
			"error": err.Error(), // Error message
		}).Warn("View cache unavailable")
		v, err := compute() // Serve uncached
		return v, false, err
	}
	key := c.Key(gen, name) // Generation scoped key
	var cached T
	if found, err := GetCache(ctx, c.rdb, key, &cached); err == nil && found {
		return cached, true, nil // Cache hit
	}
	v, err := compute() // Cache miss, compute from the registry
	if err != nil {
		return v, false, err
	}
	_ = SetCache(ctx, c.rdb, key, v, c.ttl) // Best effort store
	return v, false, nil
}
