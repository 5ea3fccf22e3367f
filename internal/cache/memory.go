package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxItems bounds a memory cache created without a capacity
const DefaultMaxItems = 1024

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process LRU cache with per-entry expiry
type MemoryCache struct {
	maxItems int
	ttl      time.Duration
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
	closed   bool
	now      func() time.Time
	mu       sync.Mutex
}

// NewMemoryCache creates a memory cache holding at most maxItems entries.
// A ttl of zero keeps entries until they are evicted.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &MemoryCache{
		maxItems: maxItems,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the entry of key and marks it recently used
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrClosed
	}

	elem, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		return nil, false, nil
	}

	c.order.MoveToFront(elem)
	return entry.value, true, nil
}

// Set stores value under key, evicting the least recently used entry when full
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = stored
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return nil
	}

	for c.order.Len() >= c.maxItems {
		c.removeElement(c.order.Back())
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close drops all entries
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.order.Init()
	c.entries = make(map[string]*list.Element)
	return nil
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := c.order.Remove(elem).(*memoryEntry)
	delete(c.entries, entry.key)
}
