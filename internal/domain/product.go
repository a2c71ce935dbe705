package domain

import "time"

// Confidence classifies how certain the matcher is about a selected product.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Product is an immutable snapshot of a scraped store offer.
// Identity is ID, which is scoped to the store (storeID + external id).
type Product struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	URL            string    `json:"url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	SizeDescriptor string    `json:"size_descriptor,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// RawProduct is what a store scraper returns before it is stamped
// with store identity and fetch time.
type RawProduct struct {
	ExternalID     string
	Name           string
	Price          float64
	URL            string
	ImageURL       string
	SizeDescriptor string
}

// CacheEntry holds the scraped candidates for one (store, normalized query)
// pair. Entries are read-only snapshots: they are replaced, never mutated.
type CacheEntry struct {
	StoreID         string
	NormalizedQuery string
	Products        []Product
	FetchedAt       time.Time
}

// Stale reports whether the entry is older than ttl at the given time.
func (e *CacheEntry) Stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.FetchedAt) > ttl
}

// StoreMatch is the matching outcome for one (item, store) pair.
// Product is nil when no candidate cleared the minimum score.
type StoreMatch struct {
	Product      *Product   `json:"product"`
	Confidence   Confidence `json:"confidence,omitempty"`
	Overridden   bool       `json:"overridden,omitempty"`
	Alternatives []Product  `json:"alternatives"`
	Warning      string     `json:"warning,omitempty"`
	MatchScore   float64    `json:"match_score"`
}

// ItemMatch holds the per-store matches for one shopping list line.
type ItemMatch struct {
	Query   string                 `json:"query"`
	Matches map[string]*StoreMatch `json:"matches"`
}

// StoreSummary aggregates one store's matches across all list items.
// It is derived data, recomputed whenever any constituent match changes.
type StoreSummary struct {
	StoreID       string     `json:"store_id"`
	StoreName     string     `json:"store_name"`
	TotalPrice    float64    `json:"total_price"`
	MatchedCount  int        `json:"matched_count"`
	MissingCount  int        `json:"missing_count"`
	WarnedCount   int        `json:"warned_count"`
	IsRecommended bool       `json:"is_recommended"`
	AsOf          *time.Time `json:"as_of,omitempty"`
}

// ComparisonResult is the full outcome of one compare call. It is stored by
// id so later overrides can mutate it in place.
type ComparisonResult struct {
	ComparisonID string         `json:"comparison_id"`
	Stores       []StoreSummary `json:"stores"`
	Items        []*ItemMatch   `json:"items"`
}

// StoreInfo identifies a configured store.
type StoreInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
