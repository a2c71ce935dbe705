package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pelles/backend/config"
	"github.com/pelles/backend/internal/domain"
	"github.com/pelles/backend/internal/infrastructure/cache"
	"github.com/pelles/backend/internal/infrastructure/session"
	"github.com/pelles/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubScraper is a scripted store standing in for the real web scrapers.
type stubScraper struct {
	id      string
	name    string
	results map[string][]domain.RawProduct
}

func (s *stubScraper) StoreID() string   { return s.id }
func (s *stubScraper) StoreName() string { return s.name }

func (s *stubScraper) Search(ctx context.Context, query string, maxResults int) ([]domain.RawProduct, error) {
	return s.results[query], nil
}

// setupTestRouter builds the real service stack over scripted stores.
func setupTestRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Cache: config.CacheConfig{Type: "memory", TTL: 168 * time.Hour},
	}

	scrapers := []domain.Scraper{
		&stubScraper{
			id: "shufersal", name: "Shufersal",
			results: map[string][]domain.RawProduct{
				"חלב": {{ExternalID: "1", Name: "חלב", Price: 6.0}},
				"לחם": {{ExternalID: "2", Name: "לחם", Price: 5.0}},
			},
		},
		&stubScraper{
			id: "super_hefer", name: "Super Hefer Large",
			results: map[string][]domain.RawProduct{
				"חלב": {
					{ExternalID: "a", Name: "חלב", Price: 7.0},
					{ExternalID: "b", Name: "חלב תנובה", Price: 4.0},
				},
			},
		},
	}

	searchService := usecase.NewSearchService(cache.NewMemoryCache(), scrapers, usecase.SearchConfig{
		CacheTTL:    cfg.Cache.TTL,
		ScrapeDelay: time.Millisecond,
		MaxResults:  10,
	})
	comparisonService := usecase.NewComparisonService(
		searchService,
		usecase.NewMatcher(usecase.MatcherConfig{}),
		session.NewMemoryStore(time.Hour),
		usecase.ComparisonConfig{},
	)

	handler := NewHandler(comparisonService, searchService)
	return SetupRouter(cfg, handler)
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pelles-backend" {
			t.Errorf("service = %v, want pelles-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestCompareEndpoint tests shopping list comparison over the full stack
func TestCompareEndpoint(t *testing.T) {
	t.Run("compares a list across stores", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare", `{"items":["חלב","לחם"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if result.ComparisonID == "" {
			t.Error("comparison_id is empty")
		}
		if len(result.Stores) != 2 {
			t.Fatalf("stores = %d, want 2", len(result.Stores))
		}
		if len(result.Items) != 2 {
			t.Fatalf("items = %d, want 2", len(result.Items))
		}

		for _, s := range result.Stores {
			if s.StoreID == "shufersal" {
				if s.TotalPrice != 11.0 || !s.IsRecommended {
					t.Errorf("shufersal summary = %+v, want total 11.0 recommended", s)
				}
			}
		}
	})

	t.Run("rejects an empty item list", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare", `{"items":["", "  "]}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare", `{"items":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestOverrideEndpoint tests manual match overrides over the full stack
func TestOverrideEndpoint(t *testing.T) {
	t.Run("applies an override and returns the updated comparison", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare", `{"items":["חלב","לחם"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("compare Status = %d: %s", w.Code, w.Body.String())
		}
		var result domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		w = postJSON(router, "/api/v1/compare/"+result.ComparisonID+"/override",
			`{"item_query":"חלב","store_id":"super_hefer","product_id":"super_hefer_b"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("override Status = %d: %s", w.Code, w.Body.String())
		}

		var updated domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		for _, s := range updated.Stores {
			if s.StoreID == "super_hefer" && s.TotalPrice != 4.0 {
				t.Errorf("super_hefer total = %v, want 4.0 after override", s.TotalPrice)
			}
		}
		match := updated.Items[0].Matches["super_hefer"]
		if match == nil || match.Product == nil || match.Product.ID != "super_hefer_b" {
			t.Errorf("match = %+v, want super_hefer_b selected", match)
		}
		if match != nil && !match.Overridden {
			t.Error("match should be flagged overridden")
		}
	})

	t.Run("unknown comparison id returns 404", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare/nope1234/override",
			`{"item_query":"חלב","store_id":"super_hefer","product_id":"super_hefer_b"}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("unknown product returns 400", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare", `{"items":["חלב"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("compare Status = %d: %s", w.Code, w.Body.String())
		}
		var result domain.ComparisonResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		w = postJSON(router, "/api/v1/compare/"+result.ComparisonID+"/override",
			`{"item_query":"חלב","store_id":"super_hefer","product_id":"no_such_product"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing body fields return 400", func(t *testing.T) {
		router := setupTestRouter()

		w := postJSON(router, "/api/v1/compare/abc123/override", `{"item_query":"חלב"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestStoresEndpoint tests the store listing
func TestStoresEndpoint(t *testing.T) {
	router := setupTestRouter()

	req, _ := http.NewRequest("GET", "/api/v1/stores", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Stores []domain.StoreInfo `json:"stores"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Stores) != 2 {
		t.Fatalf("stores = %d, want 2", len(response.Stores))
	}
	if response.Stores[0].ID != "shufersal" || response.Stores[1].ID != "super_hefer" {
		t.Errorf("stores = %+v, want sorted shufersal, super_hefer", response.Stores)
	}
}

// TestCacheEndpoints tests the cache management endpoints
func TestCacheEndpoints(t *testing.T) {
	t.Run("clears the whole cache", func(t *testing.T) {
		router := setupTestRouter()

		// Warm the cache with a comparison first.
		if w := postJSON(router, "/api/v1/compare", `{"items":["חלב"]}`); w.Code != http.StatusOK {
			t.Fatalf("compare Status = %d", w.Code)
		}

		req, _ := http.NewRequest("DELETE", "/api/v1/cache", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		// One entry per (store, item) pair.
		if response["deleted_count"].(float64) != 2 {
			t.Errorf("deleted_count = %v, want 2", response["deleted_count"])
		}
	})

	t.Run("clears one store's cache", func(t *testing.T) {
		router := setupTestRouter()

		if w := postJSON(router, "/api/v1/compare", `{"items":["חלב"]}`); w.Code != http.StatusOK {
			t.Fatalf("compare Status = %d", w.Code)
		}

		req, _ := http.NewRequest("DELETE", "/api/v1/cache/shufersal", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["deleted_count"].(float64) != 1 {
			t.Errorf("deleted_count = %v, want 1", response["deleted_count"])
		}
	})
}
