package domain

import "context"

// SearchCache stores scraped candidates per (store, normalized query).
// Get returns the entry regardless of age; staleness is the caller's call so
// a stale snapshot can still serve as a fallback after a failed rescrape.
type SearchCache interface {
	Get(ctx context.Context, storeID, normalizedQuery string) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	// Clear removes cached entries for one store, or all entries when
	// storeID is empty. Returns the number of entries removed.
	Clear(ctx context.Context, storeID string) (int, error)
}

// Scraper is the search capability of a single store.
type Scraper interface {
	StoreID() string
	StoreName() string
	Search(ctx context.Context, query string, maxResults int) ([]RawProduct, error)
}

// SessionStore holds completed comparisons by id so later overrides can be
// applied to them. Update serializes mutations per comparison id.
type SessionStore interface {
	Get(id string) (*ComparisonResult, error)
	Put(result *ComparisonResult) error
	Update(id string, fn func(*ComparisonResult) error) (*ComparisonResult, error)
}
