package scraper

import "github.com/pelles/backend/internal/domain"

// All returns the configured store scrapers with production base URLs.
func All(config Config) []domain.Scraper {
	return []domain.Scraper{
		NewShufersal(config, ""),
		NewSuperHefer(config, ""),
	}
}
