package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CacheMetrics tracks cache performance
type CacheMetrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// UnifiedCache is a typed, expiring cache on top of go-cache.
type UnifiedCache[T any] struct {
	items  *gocache.Cache
	ttl    time.Duration
	name   string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewUnifiedCache creates a cache whose entries expire after ttl. Expired
// entries are purged every 2*ttl.
func NewUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnifiedCache[T]{
		items:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
		name:   name,
		logger: logger,
	}
}

// Set stores value under key with the default TTL.
func (c *UnifiedCache[T]) Set(key string, value T) {
	c.items.SetDefault(key, value)
	c.sets.Add(1)
	c.logger.Debug("Cache set",
		zap.String("cache", c.name),
		zap.String("key", key),
		zap.Duration("ttl", c.ttl),
	)
}

// Add stores value only if key is absent or expired. It reports whether the
// value was stored.
func (c *UnifiedCache[T]) Add(key string, value T) bool {
	if err := c.items.Add(key, value, gocache.DefaultExpiration); err != nil {
		return false
	}
	c.sets.Add(1)
	return true
}

// Get retrieves an unexpired item.
func (c *UnifiedCache[T]) Get(key string) (T, bool) {
	var zero T
	raw, found := c.items.Get(key)
	if !found {
		c.misses.Add(1)
		c.logger.Debug("Cache miss", zap.String("cache", c.name), zap.String("key", key))
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	c.logger.Debug("Cache hit", zap.String("cache", c.name), zap.String("key", key))
	return value, true
}

// Touch resets the expiry of an existing item.
func (c *UnifiedCache[T]) Touch(key string) bool {
	raw, found := c.items.Get(key)
	if !found {
		return false
	}
	c.items.SetDefault(key, raw)
	return true
}

// Delete removes an item from the cache
func (c *UnifiedCache[T]) Delete(key string) {
	c.items.Delete(key)
	c.logger.Debug("Cache delete", zap.String("cache", c.name), zap.String("key", key))
}

// OnEvicted registers fn to run when an item expires or is deleted.
func (c *UnifiedCache[T]) OnEvicted(fn func(key string, value T)) {
	c.items.OnEvicted(func(key string, raw interface{}) {
		if v, ok := raw.(T); ok {
			fn(key, v)
		}
	})
}

// Clear removes all items from the cache
func (c *UnifiedCache[T]) Clear() {
	c.items.Flush()
	c.logger.Info("Cache cleared", zap.String("cache", c.name))
}

// GetMetrics returns current cache metrics
func (c *UnifiedCache[T]) GetMetrics() CacheMetrics {
	return CacheMetrics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}

// Size returns the number of items, including expired ones not yet purged.
func (c *UnifiedCache[T]) Size() int {
	return c.items.ItemCount()
}
