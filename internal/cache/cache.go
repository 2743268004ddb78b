// Package cache implements the invalidatable lookup caches used by candidate
// resolution.
package cache

import (
	"sync"
	"sync/atomic"
)

// Cache is a concurrent map whose contents can be invalidated as a whole.
//
// Writers capture a generation with Generation before computing a value and
// publish it with Store. A Store whose generation was overtaken by Invalidate is
// dropped, so a value computed from a stale registry is never served.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	entries    map[K]V
	generation atomic.Uint64

	observe func(hit bool)
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	observe func(hit bool)
}

// WithObserver calls fn with the outcome of every Load.
func WithObserver(fn func(hit bool)) Option {
	return func(o *options) {
		o.observe = fn
	}
}

// New creates an empty cache.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{entries: make(map[K]V), observe: o.observe}
}

// Generation returns the current generation.
func (c *Cache[K, V]) Generation() uint64 {
	return c.generation.Load()
}

// Load returns the cached value for key.
func (c *Cache[K, V]) Load(key K) (V, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	if c.observe != nil {
		c.observe(ok)
	}

	return v, ok
}

// Store publishes value for key if the cache is still at generation gen.
// It reports whether the value was stored.
func (c *Cache[K, V]) Store(gen uint64, key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation.Load() != gen {
		return false
	}

	c.entries[key] = value
	return true
}

// LoadOrCompute returns the cached value or computes, stores and returns it.
func (c *Cache[K, V]) LoadOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Load(key); ok {
		return v, nil
	}

	gen := c.Generation()
	v, err := compute()
	if err != nil {
		return v, err
	}

	c.Store(gen, key, v)
	return v, nil
}

// Invalidate drops every entry and advances the generation.
func (c *Cache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation.Add(1)
	c.entries = make(map[K]V)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
