// Package cache provides a TTL cache with single-flight semantics:
// concurrent misses for the same key share exactly one factory execution.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Factory produces the value for a key on a cache miss.
type Factory[T any] func(ctx context.Context) (T, error)

// Option configures a Cache.
type Option func(*hooks)

// hooks are optional observation callbacks, safe to leave nil.
type hooks struct {
	onHit       func()
	onMiss      func()
	onCoalesced func()
}

// WithHitHook registers a callback invoked on every cache hit.
func WithHitHook(fn func()) Option {
	return func(h *hooks) { h.onHit = fn }
}

// WithMissHook registers a callback invoked on every factory execution.
func WithMissHook(fn func()) Option {
	return func(h *hooks) { h.onMiss = fn }
}

// WithCoalescedHook registers a callback invoked when a caller joins an
// in-flight factory execution instead of starting its own.
func WithCoalescedHook(fn func()) Option {
	return func(h *hooks) { h.onCoalesced = fn }
}

// Cache is a generic TTL cache with request coalescing. Expired entries are
// evicted passively on read; there is no background sweeper. A failing
// factory leaves no entry behind, so failures are never served from cache.
type Cache[T any] struct {
	store *Store[T]
	group singleflight.Group
	hooks hooks
}

// New creates an empty Cache.
func New[T any](opts ...Option) *Cache[T] {
	c := &Cache[T]{store: newStore[T]()}
	for _, opt := range opts {
		opt(&c.hooks)
	}
	return c
}

// GetOrCreate returns the cached value for key if present and unexpired.
// Otherwise exactly one concurrent caller runs factory; every other caller
// for the same key waits for and shares that result. A successful result is
// stored with the given ttl. A factory error propagates to all waiters and
// the key stays absent, so the next call retries from scratch.
func (c *Cache[T]) GetOrCreate(ctx context.Context, key string, ttl time.Duration, factory Factory[T]) (T, error) {
	if v, ok := c.store.get(key, time.Now()); ok {
		c.call(c.hooks.onHit)
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have populated the key while we queued.
		if v, ok := c.store.get(key, time.Now()); ok {
			return v, nil
		}
		c.call(c.hooks.onMiss)
		value, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		c.store.set(key, value, time.Now().Add(ttl))
		return value, nil
	})
	if shared {
		c.call(c.hooks.onCoalesced)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Remove deletes a single key.
func (c *Cache[T]) Remove(key string) {
	c.store.remove(key)
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.store.clear()
}

// Len returns the number of stored entries, including not-yet-evicted
// expired ones.
func (c *Cache[T]) Len() int {
	return c.store.len()
}

func (c *Cache[T]) call(fn func()) {
	if fn != nil {
		fn()
	}
}
