package cache

import (
	"sync"
	"time"

	"github.com/stableview/stableview/internal/clock"
)

// Cache is a process-local TTL cache. An entry past its TTL is treated as
// absent: Get drops it lazily instead of relying on a sweeper goroutine.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	entries map[K]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func New[K comparable, V any](clk clock.Clock) *Cache[K, V] {
	return &Cache[K, V]{
		clk:     clk,
		entries: make(map[K]entry[V]),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clk.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clk.Now().Add(ttl)}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry. Exposed for the manual cache-flush operation.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
