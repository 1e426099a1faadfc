// Package cache provides a generic, thread-safe key/value cache used for
// per-connection deduplication state.
package cache

import (
	"errors"
	"sync"
)

// ErrInvalidKey is returned when an empty key is used.
var ErrInvalidKey = errors.New("cache: key cannot be empty")

// Cache is a generic key/value store parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value. Returns the zero value and false on miss.
	Get(key string) (V, bool)

	// Set stores a value under key, replacing any existing entry.
	Set(key string, value V) error

	// Delete removes an entry. Returns true if the entry existed.
	Delete(key string) bool

	// Keys returns a snapshot of all keys in the cache.
	Keys() []string

	// Size returns the current number of entries.
	Size() int

	// Clear removes all entries.
	Clear()
}

// simpleCache is an unbounded map-backed cache guarded by an RWMutex.
type simpleCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// NewSimple creates an unbounded thread-safe cache.
func NewSimple[V any]() Cache[V] {
	return &simpleCache[V]{entries: make(map[string]V)}
}

func (c *simpleCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *simpleCache[V]) Set(key string, value V) error {
	if key == "" {
		return ErrInvalidKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *simpleCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	return ok
}

func (c *simpleCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

func (c *simpleCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *simpleCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
}
