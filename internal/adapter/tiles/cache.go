package tiles

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb/maptile"

	"github.com/couchcryptid/bike-crash-explorer/internal/basemap"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
)

// CachedClient wraps a Fetcher with an in-memory LRU cache.
type CachedClient struct {
	inner   Fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedClient creates a cache decorator around a fetcher.
func NewCachedClient(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedClient {
	return &CachedClient{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedClient) Fetch(ctx context.Context, p basemap.Provider, t maptile.Tile) (Image, error) {
	key := fmt.Sprintf("%s|%d/%d/%d", p.Name, t.Z, t.X, t.Y)
	if img, ok := c.cache.get(key); ok {
		c.metrics.TileCache.WithLabelValues("hit").Inc()
		return img, nil
	}
	c.metrics.TileCache.WithLabelValues("miss").Inc()

	img, err := c.inner.Fetch(ctx, p, t)
	if err != nil {
		// Failures are not cached.
		return img, err
	}
	c.cache.put(key, img)
	return img, nil
}

// lruCache is a simple thread-safe LRU cache of tile images.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value Image
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Image{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
