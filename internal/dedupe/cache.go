// ABOUTME: Thread-safe bounded set of seen entry ids
// ABOUTME: Used by the transcript scanner to count each assistant entry once

package dedupe

import (
	"container/list"
	"sync"
)

// DefaultMaxSize bounds memory for very large transcript trees.
const DefaultMaxSize = 1 << 20

// Cache remembers up to maxSize keys. When full, the oldest key is
// forgotten, so a duplicate further apart than maxSize entries is counted again.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at front
	maxSize int
}

// New creates a cache holding at most maxSize keys (DefaultMaxSize if <= 0).
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Check reports whether key has been marked.
func (c *Cache) Check(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[key]
	return ok
}

// CheckAndMark atomically checks key and marks it if new.
// Returns true if key was already present (a duplicate).
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[key]; ok {
		return true
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[key] = c.order.PushBack(key)
	return false
}

// Len returns the number of remembered keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}
