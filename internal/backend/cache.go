package backend

import (
	"strings"
	"sync"

	"github.com/lewtec/imgreader/internal/domain"
)

// imageCache holds decoded projections keyed by "project/image name".
// When full it drops an arbitrary entry to make room.
type imageCache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	limit int
}

func newImageCache[T any](limit int) *imageCache[T] {
	return &imageCache[T]{items: make(map[string]T), limit: limit}
}

func cacheKey(project, name string) string {
	return project + domain.NameSeparator + name
}

// Get returns a cached entry if available
func (c *imageCache[T]) Get(project, name string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[cacheKey(project, name)]
	return item, ok
}

// Set caches an entry
func (c *imageCache[T]) Set(project, name string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(project, name)
	if _, ok := c.items[key]; !ok && c.limit > 0 && len(c.items) >= c.limit {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[key] = item
}

// Invalidate drops the entries of the given images
func (c *imageCache[T]) Invalidate(project string, names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		delete(c.items, cacheKey(project, name))
	}
}

// InvalidateProject drops every entry of a project
func (c *imageCache[T]) InvalidateProject(project string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := project + domain.NameSeparator
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// Len returns the number of cached entries
func (c *imageCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
