package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a thread-safe TTL cache with string keys and a FIFO size bound.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	order      *list.List // insertion order, front = oldest
	defaultTTL time.Duration
	maxSize    int // <= 0 means unbounded

	now func() time.Time // replaced in tests

	// Stats
	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	elem      *list.Element
}

// New creates a cache. Entries written with Set live for defaultTTL. A
// maxSize <= 0 leaves the cache unbounded.
func New[V any](defaultTTL time.Duration, maxSize int) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		order:      list.New(),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		now:        time.Now,
	}
}

// Get returns the live value for key. An entry whose TTL has elapsed is
// removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(e)
		c.expirations++
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL. Overwriting an existing
// key replaces the value and expiry in place: it never evicts and keeps the
// key's original insertion position. Inserting a new key into a full cache
// evicts the oldest-inserted entry first.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			c.removeLocked(front.Value.(*entry[V]))
			c.evictions++
		}
	}

	e := &entry[V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
}

// Len returns the number of stored entries, including any whose TTL has
// elapsed but which have not been read since.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries. Counters are preserved.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.order.Init()
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:     len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// Stats contains cache counters. Hits and Misses count Get calls over the
// cache lifetime; Clear does not reset them.
type Stats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// removeLocked unlinks an entry from the map and order list.
// Must be called with lock held.
func (c *Cache[V]) removeLocked(e *entry[V]) {
	delete(c.entries, e.key)
	c.order.Remove(e.elem)
}
