package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pelles/backend/internal/domain"
)

// superHeferIDRegex extracts the numeric id from aria-labelledby values
// like "product_2909971_name".
var superHeferIDRegex = regexp.MustCompile(`product_(\d+)_name`)

// SuperHefer scrapes Super Hefer Large, which runs on the shopo platform.
// Results are sp-product custom elements; the price lives in an itemprop
// meta tag with the rendered span as fallback.
type SuperHefer struct {
	baseURL string
	timeout time.Duration
}

// NewSuperHefer creates a Super Hefer scraper. baseURL is overridable for
// tests; empty means production.
func NewSuperHefer(config Config, baseURL string) *SuperHefer {
	if baseURL == "" {
		baseURL = "https://superhefer.shopo.co.il"
	}
	return &SuperHefer{
		baseURL: baseURL,
		timeout: config.Timeout,
	}
}

func (s *SuperHefer) StoreID() string   { return "super_hefer" }
func (s *SuperHefer) StoreName() string { return "Super Hefer Large" }

// Search runs one search page fetch and extracts up to maxResults products.
func (s *SuperHefer) Search(ctx context.Context, query string, maxResults int) ([]domain.RawProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var products []domain.RawProduct
	seen := make(map[string]bool)

	c := newCollector(s.timeout)
	c.OnHTML("sp-product[aria-labelledby]", func(e *colly.HTMLElement) {
		if len(products) >= maxResults {
			return
		}

		m := superHeferIDRegex.FindStringSubmatch(e.Attr("aria-labelledby"))
		if m == nil {
			return
		}
		externalID := m[1]
		if seen[externalID] {
			return
		}

		name := e.ChildAttr(".name[aria-label]", "aria-label")
		if name == "" {
			name = e.ChildText(".name")
		}
		if name == "" {
			return
		}

		price := parsePrice(e.ChildAttr("meta[itemprop=price]", "content"))
		if price <= 0 {
			price = parsePrice(e.ChildText(".sp-product-price .price"))
		}
		if price <= 0 {
			return
		}

		seen[externalID] = true
		products = append(products, domain.RawProduct{
			ExternalID:     externalID,
			Name:           name,
			Price:          price,
			ImageURL:       e.ChildAttr("img", "src"),
			SizeDescriptor: e.ChildText(".unit"),
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	searchURL := fmt.Sprintf("%s/search/%s", s.baseURL, url.PathEscape(query))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("super hefer search: %w", err)
	}
	if visitErr != nil {
		return nil, fmt.Errorf("super hefer search: %w", visitErr)
	}

	return products, nil
}
