package cache

import (
	"container/list"
	"sync"
)

// Cache is an in-memory LRU of audio buffers bounded by entry count.
// Inserting a new key beyond capacity evicts the least recently accessed
// entry, so Len never exceeds Capacity.
type Cache struct {
	capacity int

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type entry struct {
	key   string
	value []byte
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the audio for key and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry).value, true
}

// Put stores audio for key, evicting the least recently used entry when the
// cache is full.
func (c *Cache) Put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*entry).value = value
		return
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.eviction.PushFront(&entry{key: key, value: value})
}

// Has reports whether key is cached without touching its recency.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	return ok
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.eviction.Len()
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Capacity = c.capacity
	stats.Entries = c.eviction.Len()
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *Cache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *Cache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
