package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pelles/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ComparisonConfig holds configuration for the comparison service.
type ComparisonConfig struct {
	MinCoverageForRecommendation float64
}

// ComparisonService compares a shopping list across all configured stores
// and applies user overrides to stored comparisons.
type ComparisonService struct {
	search      *SearchService
	matcher     *Matcher
	sessions    domain.SessionStore
	minCoverage float64
}

// NewComparisonService creates a comparison service with dependencies.
func NewComparisonService(
	search *SearchService,
	matcher *Matcher,
	sessions domain.SessionStore,
	config ComparisonConfig,
) *ComparisonService {
	minCoverage := config.MinCoverageForRecommendation
	if minCoverage <= 0 {
		minCoverage = 0.70
	}

	return &ComparisonService{
		search:      search,
		matcher:     matcher,
		sessions:    sessions,
		minCoverage: minCoverage,
	}
}

// Compare searches every store for every list item, matches candidates,
// aggregates per-store summaries and picks a recommendation. Partial store
// failures degrade to warnings on the affected matches; the call fails only
// on invalid input or when no store can be evaluated at all.
func (s *ComparisonService) Compare(ctx context.Context, items []string) (*domain.ComparisonResult, error) {
	queries := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		// Catch items with no searchable text (e.g. bare niqqud marks)
		// before any scraping starts.
		if NormalizeText(trimmed) == "" {
			return nil, fmt.Errorf("%w: item %q has no searchable text", domain.ErrInvalidRequest, trimmed)
		}
		queries = append(queries, trimmed)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no items provided", domain.ErrInvalidRequest)
	}

	storeIDs := s.search.StoreIDs()
	if len(storeIDs) == 0 {
		return nil, domain.ErrNoStores
	}

	// One goroutine per (item, store) pair. Each writes its own grid slot,
	// so no locking is needed; the store gates inside SearchService keep
	// same-store scrapes serialized while stores proceed in parallel.
	grid := make([][]*domain.StoreMatch, len(queries))
	for i := range grid {
		grid[i] = make([]*domain.StoreMatch, len(storeIDs))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		for j, storeID := range storeIDs {
			i, j, query, storeID := i, j, query, storeID
			g.Go(func() error {
				candidates, warning, err := s.search.Search(gctx, storeID, query)
				if err != nil {
					return err
				}
				match := s.matcher.Match(query, candidates)
				if warning != "" {
					if match.Warning != "" {
						match.Warning += "; " + warning
					} else {
						match.Warning = warning
					}
				}
				grid[i][j] = match
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	itemMatches := make([]*domain.ItemMatch, len(queries))
	for i, query := range queries {
		matches := make(map[string]*domain.StoreMatch, len(storeIDs))
		for j, storeID := range storeIDs {
			matches[storeID] = grid[i][j]
		}
		itemMatches[i] = &domain.ItemMatch{Query: query, Matches: matches}
	}

	stores := make([]domain.StoreInfo, 0, len(storeIDs))
	for _, id := range storeIDs {
		stores = append(stores, domain.StoreInfo{ID: id, Name: s.search.StoreName(id)})
	}

	summaries, err := calculateSummaries(itemMatches, stores)
	if err != nil {
		return nil, err
	}
	determineRecommendation(summaries, len(itemMatches), s.minCoverage)

	result := &domain.ComparisonResult{
		ComparisonID: uuid.NewString()[:8],
		Stores:       summaries,
		Items:        itemMatches,
	}

	if err := s.sessions.Put(result); err != nil {
		return nil, fmt.Errorf("storing comparison: %w", err)
	}

	log.Printf("[COMPARE] %s: %d items across %d stores", result.ComparisonID, len(queries), len(storeIDs))
	return result, nil
}

// Override replaces the selected product for one (item, store) pair with a
// listed alternative (or re-selects the current product), then recomputes
// that store's summary and the global recommendation. All preconditions are
// validated before any mutation, so a failed override leaves the stored
// comparison untouched. Overrides on the same comparison are serialized by
// the session store.
func (s *ComparisonService) Override(ctx context.Context, comparisonID, itemQuery, storeID, productID string) (*domain.ComparisonResult, error) {
	return s.sessions.Update(comparisonID, func(c *domain.ComparisonResult) error {
		var item *domain.ItemMatch
		for _, im := range c.Items {
			if im.Query == itemQuery {
				item = im
				break
			}
		}
		if item == nil {
			return fmt.Errorf("%w: %q", domain.ErrUnknownItem, itemQuery)
		}

		match, ok := item.Matches[storeID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeID)
		}

		var chosen *domain.Product
		if match.Product != nil && match.Product.ID == productID {
			chosen = match.Product
		} else {
			for i := range match.Alternatives {
				if match.Alternatives[i].ID == productID {
					chosen = &match.Alternatives[i]
					break
				}
			}
		}
		if chosen == nil {
			return fmt.Errorf("%w: %s", domain.ErrUnknownProduct, productID)
		}

		product := *chosen
		alternatives := make([]domain.Product, 0, maxAlternatives)
		if match.Product != nil && match.Product.ID != product.ID {
			alternatives = append(alternatives, *match.Product)
		}
		for _, alt := range match.Alternatives {
			if len(alternatives) >= maxAlternatives {
				break
			}
			if alt.ID == product.ID {
				continue
			}
			alternatives = append(alternatives, alt)
		}

		// A manual override is a terminal state: confidence is no longer
		// derived from the score until the next compare or override.
		match.Product = &product
		match.Alternatives = alternatives
		match.Confidence = domain.ConfidenceHigh
		match.Overridden = true
		match.Warning = ""
		match.MatchScore = 1.0

		stores := make([]domain.StoreInfo, 0, len(c.Stores))
		for _, summary := range c.Stores {
			stores = append(stores, domain.StoreInfo{ID: summary.StoreID, Name: summary.StoreName})
		}
		summaries, err := calculateSummaries(c.Items, stores)
		if err != nil {
			return err
		}
		determineRecommendation(summaries, len(c.Items), s.minCoverage)
		c.Stores = summaries

		log.Printf("[OVERRIDE] %s: %s/%q -> %s", comparisonID, storeID, itemQuery, productID)
		return nil
	})
}

// calculateSummaries derives per-store totals and counts from the matches.
// The counts are reconciled against the item count; a mismatch means a
// core-logic bug and is returned as an invariant violation.
func calculateSummaries(items []*domain.ItemMatch, stores []domain.StoreInfo) ([]domain.StoreSummary, error) {
	summaries := make([]domain.StoreSummary, 0, len(stores))

	for _, store := range stores {
		summary := domain.StoreSummary{
			StoreID:   store.ID,
			StoreName: store.Name,
		}

		for _, item := range items {
			match := item.Matches[store.ID]
			if match == nil || match.Product == nil {
				summary.MissingCount++
				continue
			}
			summary.MatchedCount++
			summary.TotalPrice += match.Product.Price
			if match.Warning != "" || match.Confidence != domain.ConfidenceHigh {
				summary.WarnedCount++
			}
			fetched := match.Product.FetchedAt
			if summary.AsOf == nil || fetched.Before(*summary.AsOf) {
				asOf := fetched
				summary.AsOf = &asOf
			}
		}

		summary.TotalPrice = math.Round(summary.TotalPrice*100) / 100

		if summary.MatchedCount+summary.MissingCount != len(items) {
			return nil, fmt.Errorf("%w: store %s counts %d+%d != %d items",
				domain.ErrInvariantViolation, store.ID, summary.MatchedCount, summary.MissingCount, len(items))
		}
		if summary.WarnedCount > summary.MatchedCount {
			return nil, fmt.Errorf("%w: store %s warned %d > matched %d",
				domain.ErrInvariantViolation, store.ID, summary.WarnedCount, summary.MatchedCount)
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// determineRecommendation marks the cheapest store among those covering
// enough of the list. Ties go to the store matching more items, then to the
// lower store id for determinism. No eligible store means no recommendation.
func determineRecommendation(summaries []domain.StoreSummary, totalItems int, minCoverage float64) {
	if totalItems == 0 {
		return
	}

	best := -1
	for i := range summaries {
		summaries[i].IsRecommended = false
		coverage := float64(summaries[i].MatchedCount) / float64(totalItems)
		if coverage < minCoverage {
			continue
		}
		if best == -1 || cheaperThan(&summaries[i], &summaries[best]) {
			best = i
		}
	}

	if best == -1 {
		log.Printf("[COMPARE] No store meets the %.0f%% coverage floor; nothing recommended", minCoverage*100)
		return
	}
	summaries[best].IsRecommended = true
}

func cheaperThan(a, b *domain.StoreSummary) bool {
	if a.TotalPrice != b.TotalPrice {
		return a.TotalPrice < b.TotalPrice
	}
	if a.MatchedCount != b.MatchedCount {
		return a.MatchedCount > b.MatchedCount
	}
	return a.StoreID < b.StoreID
}
