package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/pelles/backend/internal/domain"
	"golang.org/x/time/rate"
)

// SearchConfig holds configuration for the search service.
type SearchConfig struct {
	CacheTTL      time.Duration
	ScrapeDelay   time.Duration
	ScrapeTimeout time.Duration
	MaxResults    int
}

// storeGate serializes scrape calls to a single store and enforces the
// politeness delay between consecutive calls. Gates for different stores
// are independent, so cross-store scrapes run in parallel.
type storeGate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// SearchService answers (store, query) lookups cache-first and orchestrates
// scraping on misses. Scraper failures degrade to the last cached snapshot
// or an empty candidate list, never to an error.
type SearchService struct {
	cache         domain.SearchCache
	scrapers      map[string]domain.Scraper
	storeOrder    []string
	gates         map[string]*storeGate
	cacheTTL      time.Duration
	scrapeTimeout time.Duration
	maxResults    int
}

// NewSearchService creates a search service over the given scrapers,
// falling back to defaults for unset configuration.
func NewSearchService(cache domain.SearchCache, scrapers []domain.Scraper, config SearchConfig) *SearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	delay := config.ScrapeDelay
	if delay == 0 {
		delay = 1500 * time.Millisecond
	}
	timeout := config.ScrapeTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	byID := make(map[string]domain.Scraper, len(scrapers))
	gates := make(map[string]*storeGate, len(scrapers))
	order := make([]string, 0, len(scrapers))
	for _, s := range scrapers {
		byID[s.StoreID()] = s
		gates[s.StoreID()] = &storeGate{
			limiter: rate.NewLimiter(rate.Every(delay), 1),
		}
		order = append(order, s.StoreID())
	}
	sort.Strings(order)

	return &SearchService{
		cache:         cache,
		scrapers:      byID,
		storeOrder:    order,
		gates:         gates,
		cacheTTL:      cacheTTL,
		scrapeTimeout: timeout,
		maxResults:    maxResults,
	}
}

// StoreIDs returns the configured store ids in deterministic order.
func (s *SearchService) StoreIDs() []string {
	return s.storeOrder
}

// StoreName returns the display name for a store id.
func (s *SearchService) StoreName(storeID string) string {
	if scraper, ok := s.scrapers[storeID]; ok {
		return scraper.StoreName()
	}
	return storeID
}

// Stores lists the configured stores.
func (s *SearchService) Stores() []domain.StoreInfo {
	stores := make([]domain.StoreInfo, 0, len(s.storeOrder))
	for _, id := range s.storeOrder {
		stores = append(stores, domain.StoreInfo{ID: id, Name: s.scrapers[id].StoreName()})
	}
	return stores
}

// ClearCache removes cached results for one store (all stores when storeID
// is empty) and returns the number of entries removed.
func (s *SearchService) ClearCache(ctx context.Context, storeID string) (int, error) {
	if storeID != "" {
		if _, ok := s.scrapers[storeID]; !ok {
			return 0, fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeID)
		}
	}
	return s.cache.Clear(ctx, storeID)
}

// Search returns the candidate products for (storeID, query) plus a warning
// describing any degradation (stale fallback, failed scrape). The error
// return is reserved for unknown stores, invalid queries and corrupt cache
// entries; scraper failures never surface.
//
// Flow: fresh cache hit -> return; miss or stale -> scrape under the store
// gate -> write through on success; on failure fall back to the stale
// snapshot if one exists.
func (s *SearchService) Search(ctx context.Context, storeID, query string) ([]domain.Product, string, error) {
	scraper, ok := s.scrapers[storeID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeID)
	}

	normalizedQuery := NormalizeText(query)
	if normalizedQuery == "" {
		return nil, "", domain.ErrInvalidRequest
	}

	cached, err := s.cache.Get(ctx, storeID, normalizedQuery)
	if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
		// A corrupt entry means the cache can no longer be trusted for this
		// key; that is a core bug, not a degradation to paper over.
		if errors.Is(err, domain.ErrInvariantViolation) {
			return nil, "", err
		}
		log.Printf("[SEARCH] Cache read failed for %s:%q: %v", storeID, normalizedQuery, err)
	}
	if cached != nil && !cached.Stale(s.cacheTTL, time.Now()) {
		log.Printf("[SEARCH] Cache hit for %s:%q (%d products)", storeID, normalizedQuery, len(cached.Products))
		return cached.Products, "", nil
	}

	products, scrapeErr := s.scrape(ctx, scraper, query)
	if scrapeErr != nil {
		log.Printf("[SEARCH] %s search failed for %q: %v", storeID, query, scrapeErr)
		if cached != nil {
			age := time.Since(cached.FetchedAt).Round(time.Hour)
			return cached.Products, fmt.Sprintf("store refresh failed; using cached results from %s ago", age), nil
		}
		return nil, "store search failed", nil
	}

	entry := &domain.CacheEntry{
		StoreID:         storeID,
		NormalizedQuery: normalizedQuery,
		Products:        products,
		FetchedAt:       time.Now(),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		// Caching failures are not worth degrading the response for.
		log.Printf("[SEARCH] Failed to cache results for %s:%q: %v", storeID, normalizedQuery, err)
	}

	return products, "", nil
}

// scrape runs one store search under the store's gate: calls to the same
// store are serialized and spaced by the politeness delay.
func (s *SearchService) scrape(ctx context.Context, scraper domain.Scraper, query string) ([]domain.Product, error) {
	gate := s.gates[scraper.StoreID()]
	gate.mu.Lock()
	defer gate.mu.Unlock()

	if err := gate.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScraperFailure, err)
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, s.scrapeTimeout)
	defer cancel()

	raw, err := scraper.Search(scrapeCtx, query, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScraperFailure, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no results", domain.ErrScraperFailure)
	}

	now := time.Now()
	storeID := scraper.StoreID()
	products := make([]domain.Product, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		if len(products) >= s.maxResults {
			break
		}
		id := fmt.Sprintf("%s_%s", storeID, r.ExternalID)
		if r.ExternalID == "" || seen[id] {
			continue
		}
		seen[id] = true
		products = append(products, domain.Product{
			ID:             id,
			StoreID:        storeID,
			Name:           r.Name,
			Price:          r.Price,
			URL:            r.URL,
			ImageURL:       r.ImageURL,
			SizeDescriptor: r.SizeDescriptor,
			FetchedAt:      now,
		})
	}
	log.Printf("[SCRAPE] %s returned %d products for %q", storeID, len(products), query)
	return products, nil
}
