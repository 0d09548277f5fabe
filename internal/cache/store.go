package cache

import (
	"sync"
	"time"
)

// entry pairs a value with its expiry instant.
type entry[T any] struct {
	value  T
	expiry time.Time
}

// Store is the mutex-guarded map underneath Cache. Split out so the
// single-flight layer holds no lock while a factory runs.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
}

func newStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[string]entry[T])}
}

// get returns the value for key if present and unexpired at now.
// An expired entry is evicted in place.
func (s *Store[T]) get(key string, now time.Time) (T, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		var zero T
		return zero, false
	}
	if now.After(e.expiry) {
		s.mu.Lock()
		// Re-check under write lock; a fresh value may have landed.
		if cur, still := s.entries[key]; still && now.After(cur.expiry) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	return e.value, true
}

func (s *Store[T]) set(key string, value T, expiry time.Time) {
	s.mu.Lock()
	s.entries[key] = entry[T]{value: value, expiry: expiry}
	s.mu.Unlock()
}

func (s *Store[T]) remove(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store[T]) clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry[T])
	s.mu.Unlock()
}

func (s *Store[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flag wraps a boolean result so scalar answers share the same cache
// machinery as record-valued ones. It compares equal by value.
type Flag struct {
	Set bool
}
