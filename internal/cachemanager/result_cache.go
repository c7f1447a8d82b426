// Package cachemanager keeps recently computed run results in memory so an
// unchanged parameter set is not evaluated twice.
package cachemanager

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/mandelgrid/internal/log"
)

const DefaultExpiration = 10 * time.Minute
const DefaultCleanupInterval = 30 * time.Minute

// Cache is a typed wrapper over an expiring in-memory map.
type Cache[V any] struct {
	useCase string
	cache   *gocache.Cache
}

// New creates a cache; useCase names it in log lines.
func New[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *Cache[V] {
	return &Cache[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Get retrieves an item from the cache by its key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(key)
	if !found {
		log.Debug(log.CatCache, "cache miss", "useCase", c.useCase, "key", key)
		return zeroValue, false
	}

	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "useCase", c.useCase, "key", key)
		return zeroValue, false
	}

	log.Debug(log.CatCache, "cache hit", "useCase", c.useCase, "key", key)
	return v, true
}

// Set stores value under key with the default expiration.
func (c *Cache[V]) Set(key string, value V) {
	c.cache.SetDefault(key, value)
}

// Flush removes every item.
func (c *Cache[V]) Flush() {
	if n := c.cache.ItemCount(); n > 0 {
		log.Debug(log.CatCache, "cache flushed", "useCase", c.useCase, "items", n)
	}
	c.cache.Flush()
}

// Len returns the number of cached items, including expired ones not yet
// cleaned up.
func (c *Cache[V]) Len() int {
	return c.cache.ItemCount()
}
