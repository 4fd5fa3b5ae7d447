// Package cache provides a generic LRU cache with per-entry TTL, built on
// github.com/hashicorp/golang-lru (an indirect dependency of the teacher's
// go.mod via spf13/viper, promoted here to direct, deliberate use). The
// upstream package has no expiry of its own; this wrapper adds it.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a fixed-size, TTL-bounded LRU cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	lru   *simplelru.LRU
	ttl   time.Duration
	clock func() time.Time
}

// New creates a Cache holding at most size entries, each expiring ttl
// after insertion.
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		// size <= 0; simplelru.NewLRU only rejects non-positive sizes, which
		// is a programmer error at construction time, not a runtime
		// condition callers should be handed an error to juggle.
		panic(err)
	}
	return &Cache[K, V]{
		lru:   lru,
		ttl:   ttl,
		clock: time.Now,
	}
}

// Get returns the cached value for key and whether it was present and not
// expired. An expired entry is evicted and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if c.clock().After(e.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set inserts or replaces the cached value for key, resetting its TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{value: value, expiresAt: c.clock().Add(c.ttl)})
}

// Invalidate removes key, used on any mutation of the underlying entity
// per spec §4.6's "invalidation on any mutation" requirement.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of entries currently cached (including any not
// yet evicted past their TTL).
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge removes all entries.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
