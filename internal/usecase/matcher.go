package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelles/backend/internal/domain"
)

// Scoring weights and bounds
const (
	tokenCoverageWeight = 0.7  // fraction of query tokens found in the product name
	substringBonus      = 0.3  // normalized query is a substring of the product name
	positionBonus       = 0.1  // first query token matches first product token
	ambiguityDelta      = 0.05 // top two scores this close → ambiguous pick
	maxAlternatives     = 4
)

// Price outlier bounds relative to the median price of the alternatives
const (
	priceOutlierHighFactor = 2.0
	priceOutlierLowFactor  = 0.5
)

// MatcherConfig holds the confidence thresholds for the matcher.
type MatcherConfig struct {
	HighThreshold   float64
	MediumThreshold float64
	MinScore        float64
}

// Matcher scores scraped candidates against a free-text query and selects
// the best one with a confidence bucket and ranked alternatives.
type Matcher struct {
	highThreshold   float64
	mediumThreshold float64
	minScore        float64
}

// NewMatcher creates a matcher with the given thresholds, falling back to
// defaults for unset values.
func NewMatcher(config MatcherConfig) *Matcher {
	high := config.HighThreshold
	if high <= 0 {
		high = 0.85
	}
	medium := config.MediumThreshold
	if medium <= 0 {
		medium = 0.60
	}
	minScore := config.MinScore
	if minScore <= 0 {
		minScore = 0.30
	}

	return &Matcher{
		highThreshold:   high,
		mediumThreshold: medium,
		minScore:        minScore,
	}
}

// MatchScore computes how well a product's text matches the query.
// Returns a score in [0, 1]. Exact normalized equality scores 1.0.
func MatchScore(query, productText string) float64 {
	queryNorm := NormalizeText(query)
	productNorm := NormalizeText(productText)

	if queryNorm == "" || productNorm == "" {
		return 0
	}
	if queryNorm == productNorm {
		return 1
	}

	var bonus float64
	if strings.Contains(productNorm, queryNorm) {
		bonus = substringBonus
	}

	queryTokens := Tokenize(query)
	productTokens := Tokenize(productText)
	if len(queryTokens) == 0 {
		return bonus
	}

	matched := 0
	for _, qt := range queryTokens {
		for _, pt := range productTokens {
			if qt == pt || strings.Contains(pt, qt) || strings.Contains(qt, pt) {
				matched++
				break
			}
		}
	}
	coverage := float64(matched) / float64(len(queryTokens))

	var position float64
	if len(productTokens) > 0 {
		first, firstProduct := queryTokens[0], productTokens[0]
		if strings.Contains(firstProduct, first) || strings.Contains(first, firstProduct) {
			position = positionBonus
		}
	}

	score := coverage*tokenCoverageWeight + bonus + position
	if score > 1 {
		score = 1
	}
	return score
}

// scoredCandidate pairs a candidate with its score for ranking.
type scoredCandidate struct {
	product domain.Product
	score   float64
}

// Match scores all candidates against the query and builds the StoreMatch
// for one (item, store) pair. A best score below the minimum leaves the
// product unselected but still ranks alternatives.
func (m *Matcher) Match(query string, candidates []domain.Product) *domain.StoreMatch {
	if len(candidates) == 0 {
		return &domain.StoreMatch{
			Warning:      "no products found",
			Alternatives: []domain.Product{},
		}
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		text := c.Name
		if c.SizeDescriptor != "" {
			text += " " + c.SizeDescriptor
		}
		scored = append(scored, scoredCandidate{product: c, score: MatchScore(query, text)})
	}

	// Rank by score, ties by id so results are deterministic.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].product.ID < scored[j].product.ID
	})

	best := scored[0]
	if best.score < m.minScore {
		return &domain.StoreMatch{
			Warning:      "no match found",
			Alternatives: rankAlternatives(scored, ""),
		}
	}

	confidence := m.confidenceFor(best.score)
	warning := m.buildWarning(best, scored, confidence)

	product := best.product
	return &domain.StoreMatch{
		Product:      &product,
		Confidence:   confidence,
		Alternatives: rankAlternatives(scored, product.ID),
		Warning:      warning,
		MatchScore:   best.score,
	}
}

// confidenceFor buckets a score. Boundaries are inclusive: a score exactly
// at the high threshold is high confidence.
func (m *Matcher) confidenceFor(score float64) domain.Confidence {
	switch {
	case score >= m.highThreshold:
		return domain.ConfidenceHigh
	case score >= m.mediumThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// buildWarning collects match quality warnings: weak confidence, an
// ambiguous pick, or a selected price that is an outlier versus the
// alternatives.
func (m *Matcher) buildWarning(best scoredCandidate, scored []scoredCandidate, confidence domain.Confidence) string {
	var warnings []string

	if confidence == domain.ConfidenceLow {
		warnings = append(warnings, "low confidence match")
	}

	if len(scored) > 1 && best.score-scored[1].score <= ambiguityDelta {
		warnings = append(warnings, "multiple similar products found")
	}

	if w := priceOutlierWarning(best.product.Price, scored); w != "" {
		warnings = append(warnings, w)
	}

	return strings.Join(warnings, "; ")
}

// priceOutlierWarning flags a selected price far off the median of the
// other candidates' prices. Needs at least two other candidates to say
// anything meaningful.
func priceOutlierWarning(price float64, scored []scoredCandidate) string {
	prices := make([]float64, 0, len(scored)-1)
	for _, sc := range scored[1:] {
		if sc.score > 0 {
			prices = append(prices, sc.product.Price)
		}
	}
	if len(prices) < 2 {
		return ""
	}

	sort.Float64s(prices)
	median := prices[len(prices)/2]
	if len(prices)%2 == 0 {
		median = (prices[len(prices)/2-1] + prices[len(prices)/2]) / 2
	}
	if median <= 0 {
		return ""
	}

	if price > median*priceOutlierHighFactor || price < median*priceOutlierLowFactor {
		return fmt.Sprintf("price %.2f differs sharply from similar products (median %.2f)", price, median)
	}
	return ""
}

// rankAlternatives returns the non-trivial candidates other than the
// selected product, already sorted by descending score, capped.
func rankAlternatives(scored []scoredCandidate, selectedID string) []domain.Product {
	alternatives := make([]domain.Product, 0, maxAlternatives)
	for _, sc := range scored {
		if len(alternatives) >= maxAlternatives {
			break
		}
		if sc.product.ID == selectedID || sc.score <= 0 {
			continue
		}
		alternatives = append(alternatives, sc.product)
	}
	return alternatives
}
