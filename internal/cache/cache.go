package cache

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"sync"

	"mediasieve/internal/logging"
)

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
	Requests int     `json:"requests"`
	Ratio    float64 `json:"ratio"`
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
}

type entry[V any] struct {
	key   string
	value V
}

// Cache is a fixed-capacity, insertion-ordered result cache.
type Cache[V any] struct {
	name     string
	capacity int
	logger   *slog.Logger

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	hits    int
	misses  int
}

// New constructs a cache holding at most capacity entries. A capacity below
// one is raised to one.
func New[V any](name string, capacity int, logger *slog.Logger) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[V]{
		name:     name,
		capacity: capacity,
		logger:   logging.NewComponentLogger(logger, "cache").With(logging.String("cache", name)),
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity+1),
	}
}

// Key returns the slot key used for id.
func Key(id string) string {
	sum := sha1.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Name returns the label the cache was created with.
func (c *Cache[V]) Name() string {
	return c.name
}

// Put stores value under id. Storing an existing id replaces the value and
// counts as a fresh insertion.
func (c *Cache[V]) Put(id string, value V) {
	key := Key(id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = entry[V]{key: key, value: value}
		c.order.MoveToBack(elem)
		return
	}
	c.entries[key] = c.order.PushBack(entry[V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(entry[V]).key)
	}
}

// Get returns the value stored under id and whether it was present.
func (c *Cache[V]) Get(id string) (V, bool) {
	key := Key(id)

	c.mu.Lock()
	value, ok := c.lookup(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("cache miss")
		return value, false
	}
	c.logger.Debug("cache hit")
	return value, true
}

// Peek is Get without touching the hit/miss counters.
func (c *Cache[V]) Peek(id string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(Key(id))
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	elem, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return elem.Value.(entry[V]).value, true
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the hit/miss counters. Ratio is 0 when no
// lookups have been made.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Requests: c.hits + c.misses,
		Entries:  c.order.Len(),
		Capacity: c.capacity,
	}
	if stats.Requests > 0 {
		stats.Ratio = float64(stats.Hits) / float64(stats.Requests)
	}
	return stats
}
