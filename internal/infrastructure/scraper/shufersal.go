package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pelles/backend/internal/domain"
)

// Shufersal scrapes Shufersal Online. Search result tiles are
// li[data-product-code] elements carrying code, name and price as data
// attributes.
type Shufersal struct {
	baseURL string
	timeout time.Duration
}

// NewShufersal creates a Shufersal scraper. baseURL is overridable for
// tests; empty means production.
func NewShufersal(config Config, baseURL string) *Shufersal {
	if baseURL == "" {
		baseURL = "https://www.shufersal.co.il"
	}
	return &Shufersal{
		baseURL: baseURL,
		timeout: config.Timeout,
	}
}

func (s *Shufersal) StoreID() string   { return "shufersal" }
func (s *Shufersal) StoreName() string { return "Shufersal" }

// Search runs one search page fetch and extracts up to maxResults products.
func (s *Shufersal) Search(ctx context.Context, query string, maxResults int) ([]domain.RawProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var products []domain.RawProduct
	seen := make(map[string]bool)

	c := newCollector(s.timeout)
	c.OnHTML("li[data-product-code]", func(e *colly.HTMLElement) {
		if len(products) >= maxResults {
			return
		}

		code := e.Attr("data-product-code")
		name := e.Attr("data-product-name")
		if code == "" || name == "" || seen[code] {
			return
		}

		price := parsePrice(e.Attr("data-product-price"))
		if price <= 0 {
			return
		}

		productURL := e.ChildAttr("a[href]", "href")
		if productURL != "" {
			productURL = e.Request.AbsoluteURL(productURL)
		}

		seen[code] = true
		products = append(products, domain.RawProduct{
			ExternalID:     code,
			Name:           name,
			Price:          price,
			URL:            productURL,
			ImageURL:       e.ChildAttr("img", "src"),
			SizeDescriptor: e.ChildText(".weightUnit"),
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	searchURL := fmt.Sprintf("%s/online/he/search?text=%s", s.baseURL, url.QueryEscape(query))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("shufersal search: %w", err)
	}
	if visitErr != nil {
		return nil, fmt.Errorf("shufersal search: %w", visitErr)
	}

	return products, nil
}
