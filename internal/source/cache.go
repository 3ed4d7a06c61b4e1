package source

import (
	"image"
	"sync"
)

type pageKey struct {
	index int
	dpi   int
}

type cacheEntry struct {
	once sync.Once
	img  image.Image
	err  error
}

// PageCache memoizes rendered pages of a Source. It is owned by whoever
// drives rendering; entries live until Invalidate or Reset.
type PageCache struct {
	Source

	mu    sync.Mutex
	items map[pageKey]*cacheEntry
}

// NewPageCache wraps src
func NewPageCache(src Source) *PageCache {
	return &PageCache{
		Source: src,
		items:  make(map[pageKey]*cacheEntry),
	}
}

// RenderPage returns the cached raster, rendering it on first use.
// Concurrent callers for the same page share one render. Failed renders are
// not cached.
func (c *PageCache) RenderPage(index int, dpi int) (image.Image, error) {
	key := pageKey{index: index, dpi: dpi}

	c.mu.Lock()
	entry, ok := c.items[key]
	if !ok {
		entry = &cacheEntry{}
		c.items[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.img, entry.err = c.Source.RenderPage(index, dpi)
	})

	if entry.err != nil {
		c.mu.Lock()
		if c.items[key] == entry {
			delete(c.items, key)
		}
		c.mu.Unlock()
	}

	return entry.img, entry.err
}

// Invalidate drops every cached raster of a page
func (c *PageCache) Invalidate(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if key.index == index {
			delete(c.items, key)
		}
	}
}

// Reset drops all cached rasters
func (c *PageCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[pageKey]*cacheEntry)
}

// Len returns the number of cached rasters
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
