package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/pelles/backend/internal/domain"
)

// MemoryCache is a thread-safe in-memory search cache keyed by
// (store, normalized query). Entries are kept until replaced or cleared:
// stale entries must stay retrievable so they can serve as a fallback when
// a rescrape fails. Staleness is judged by the caller.
type MemoryCache struct {
	data  map[string]*domain.CacheEntry
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory search cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*domain.CacheEntry),
	}
}

func cacheKey(storeID, normalizedQuery string) string {
	return storeID + ":" + normalizedQuery
}

// Get retrieves the cached entry for (storeID, normalizedQuery), regardless
// of its age.
func (c *MemoryCache) Get(ctx context.Context, storeID, normalizedQuery string) (*domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.data[cacheKey(storeID, normalizedQuery)]
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

// Put stores an entry, replacing any previous snapshot for the same key.
func (c *MemoryCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[cacheKey(entry.StoreID, entry.NormalizedQuery)] = entry
	return nil
}

// Clear removes all entries for storeID, or every entry when storeID is
// empty. Returns the number of entries removed.
func (c *MemoryCache) Clear(ctx context.Context, storeID string) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if storeID == "" {
		removed := len(c.data)
		c.data = make(map[string]*domain.CacheEntry)
		return removed, nil
	}

	removed := 0
	prefix := storeID + ":"
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			removed++
		}
	}
	return removed, nil
}

// Size returns the current number of entries (for debugging/monitoring).
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
