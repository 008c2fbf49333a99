package database

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of keys a Cache keeps by default
const DefaultCacheSize = 1000

type cacheEntry[T any] struct {
	key   string
	value T
}

// Cache is a size-bounded LRU map
type Cache[T any] struct {
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	mu      sync.Mutex
}

// NewCache creates a cache holding at most maxSize keys
func NewCache[T any](maxSize int) *Cache[T] {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache[T]{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Get returns the value of key and marks it as recently used
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry[T]).value, true
}

// Set stores value under key, evicting the least recently used key when full
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// Update replaces the value of key with fn(old, found) atomically
func (c *Cache[T]) Update(key string, fn func(old T, found bool) T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var old T
	found := false
	if elem, ok := c.items[key]; ok {
		old = elem.Value.(*cacheEntry[T]).value
		found = true
	}
	c.set(key, fn(old, found))
}

func (c *Cache[T]) set(key string, value T) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry[T]).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry[T]{key: key, value: value})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry[T]).key)
	}
}

// Delete removes key
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// Len returns the number of cached keys
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
