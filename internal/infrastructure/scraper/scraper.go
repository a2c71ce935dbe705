// Package scraper implements the per-store search capability over the
// stores' public web search pages.
package scraper

import (
	"regexp"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var priceRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Config holds shared scraper settings.
type Config struct {
	Timeout time.Duration
}

// newCollector builds a collector with shared defaults. A fresh collector
// per search keeps the callbacks and their captured state call-local.
func newCollector(timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	return c
}

// parsePrice extracts a price from text like "₪9.90" or "9.90 ש\"ח".
// Returns 0 when no number is present.
func parsePrice(text string) float64 {
	m := priceRegex.FindString(text)
	if m == "" {
		return 0
	}
	price, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return price
}
