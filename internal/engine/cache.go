// cache.go provides the in-memory caches for pipeline output.
// Rendered first-pass markup and compiled second-pass render functions
// live in two deliberately separate maps, both keyed by resource
// identity (the logical name qualified with its default extension).
// Keeping the namespaces apart means a page render and a view compile
// for the same logical name can never overwrite each other.
package engine

import (
	"log/slog"
	"sync"
)

// pageCache is a concurrency-safe cache of rendered first-pass output.
type pageCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newPageCache() *pageCache {
	return &pageCache{entries: make(map[string]string)}
}

// get retrieves rendered markup. The second return is false on miss.
func (c *pageCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.entries[key]
	return out, ok
}

// put stores rendered markup. An existing entry is kept: the first
// fully computed result wins and is never replaced.
func (c *pageCache) put(key, out string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = out
	slog.Debug("page cached", "key", key, "size", len(out), "entries", len(c.entries))
}

// viewCache is a concurrency-safe cache of compiled render functions.
type viewCache struct {
	mu      sync.RWMutex
	entries map[string]RenderFunc
}

func newViewCache() *viewCache {
	return &viewCache{entries: make(map[string]RenderFunc)}
}

// get retrieves a compiled view. Returns nil on miss.
func (c *viewCache) get(key string) RenderFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// put stores a compiled view, keeping any existing entry.
func (c *viewCache) put(key string, fn RenderFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = fn
	slog.Debug("view cached", "key", key, "entries", len(c.entries))
}
