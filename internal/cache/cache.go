// Package cache provides a TTL key/value store for GET responses.
// Expired entries are treated as absent and evicted lazily on read;
// stale data is never returned.
package cache

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[T]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is a mutex-guarded map of TTL entries, safe for concurrent use
// from multiple in-flight requests.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
}

// New creates an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]entry[T])}
}

// Get returns the value for key if present and unexpired. An expired
// entry is removed and reported as absent.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, storedAt: time.Now(), ttl: ttl}
}

// InvalidatePrefix removes every entry whose key starts with prefix.
// Returns the number of entries removed.
func (c *Cache[T]) InvalidatePrefix(prefix string) int {
	return c.Invalidate(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Invalidate removes every entry whose key matches the predicate.
func (c *Cache[T]) Invalidate(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key builds a deterministic cache key from a request path and its query
// parameters. Parameter pairs are sorted, so two logically-identical
// requests always produce the same key regardless of construction order.
func Key(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	first := true
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
