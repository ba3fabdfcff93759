package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/graphcheck/internal/resource"
)

// page is a cached page on the recency ring. The ring's sentinel has no key.
type page struct {
	key        PageKey
	data       []byte
	prev, next *page
}

// LRUPageCache is a PageCache with one lock and least-recently-used
// eviction. Cached bytes are reserved from the resource controller, when
// one is given, and a page the budget cannot admit is simply not cached.
type LRUPageCache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	pages    map[PageKey]*page
	ring     page
	rc       *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUPageCache creates a cache holding up to capacity bytes.
func NewLRUPageCache(capacity int64, rc *resource.Controller) *LRUPageCache {
	c := &LRUPageCache{capacity: capacity, pages: make(map[PageKey]*page), rc: rc}
	c.ring.prev, c.ring.next = &c.ring, &c.ring
	return c
}

func (c *LRUPageCache) unlink(p *page) {
	p.prev.next, p.next.prev = p.next, p.prev
}

func (c *LRUPageCache) pushFront(p *page) {
	p.prev, p.next = &c.ring, c.ring.next
	c.ring.next.prev = p
	c.ring.next = p
}

func (c *LRUPageCache) Get(_ context.Context, key PageKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.unlink(p)
	c.pushFront(p)
	return p.data, true
}

func (c *LRUPageCache) Contains(key PageKey) bool {
	c.mu.Lock()
	_, ok := c.pages[key]
	c.mu.Unlock()
	return ok
}

// Set caches b under key, replacing an older copy.
func (c *LRUPageCache) Set(_ context.Context, key PageKey, b []byte) {
	n := int64(len(b))
	if n > c.capacity {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.pages[key]; ok {
		c.drop(old)
	}
	// Evict first so that the released bytes return to the budget.
	for c.size+n > c.capacity && c.ring.prev != &c.ring {
		c.drop(c.ring.prev)
	}
	if c.rc != nil && !c.rc.TryAcquireMemory(n) {
		return
	}
	p := &page{key: key, data: b}
	c.pages[key] = p
	c.pushFront(p)
	c.size += n
}

func (c *LRUPageCache) drop(p *page) {
	c.unlink(p)
	delete(c.pages, p.key)
	n := int64(len(p.data))
	c.size -= n
	if c.rc != nil {
		c.rc.ReleaseMemory(n)
	}
}

func (c *LRUPageCache) Invalidate(match func(key PageKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range c.pages {
		if match(key) {
			c.drop(p)
		}
	}
}

// Close drops every page and returns its reservation.
func (c *LRUPageCache) Close() error {
	c.Invalidate(func(PageKey) bool { return true })
	return nil
}

func (c *LRUPageCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRUPageCache) Capacity() int64 { return c.capacity }

// Size returns the cached bytes.
func (c *LRUPageCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
