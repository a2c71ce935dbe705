package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pelles/backend/config"
	httpDelivery "github.com/pelles/backend/internal/delivery/http"
	"github.com/pelles/backend/internal/domain"
	"github.com/pelles/backend/internal/infrastructure/cache"
	"github.com/pelles/backend/internal/infrastructure/scraper"
	"github.com/pelles/backend/internal/infrastructure/session"
	"github.com/pelles/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Pelles Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	// Initialize infrastructure dependencies
	var searchCache domain.SearchCache
	if cfg.Cache.Type == "sqlite" {
		sqliteCache, err := cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			log.Fatalf("Failed to open cache database: %v", err)
		}
		defer sqliteCache.Close()
		searchCache = sqliteCache
		log.Printf("Cache database: %s", cfg.Cache.Path)
	} else {
		searchCache = cache.NewMemoryCache()
	}

	scrapers := scraper.All(scraper.Config{Timeout: cfg.Scraper.Timeout})
	sessions := session.NewMemoryStore(cfg.Session.TTL)

	// Initialize usecase layer
	searchService := usecase.NewSearchService(searchCache, scrapers, usecase.SearchConfig{
		CacheTTL:      cfg.Cache.TTL,
		ScrapeDelay:   cfg.Scraper.Delay,
		ScrapeTimeout: cfg.Scraper.Timeout,
		MaxResults:    cfg.Scraper.MaxResults,
	})

	matcher := usecase.NewMatcher(usecase.MatcherConfig{
		HighThreshold:   cfg.Matching.HighThreshold,
		MediumThreshold: cfg.Matching.MediumThreshold,
		MinScore:        cfg.Matching.MinScore,
	})

	comparisonService := usecase.NewComparisonService(searchService, matcher, sessions, usecase.ComparisonConfig{
		MinCoverageForRecommendation: cfg.Recommendation.MinCoverage,
	})

	log.Printf("Stores: %v", searchService.StoreIDs())
	log.Printf("Matching: high=%.2f medium=%.2f floor=%.2f, coverage floor=%.2f",
		cfg.Matching.HighThreshold,
		cfg.Matching.MediumThreshold,
		cfg.Matching.MinScore,
		cfg.Recommendation.MinCoverage)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(comparisonService, searchService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
