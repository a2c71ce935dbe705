package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pelles/backend/internal/domain"
	"github.com/pelles/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	comparisonService *usecase.ComparisonService
	searchService     *usecase.SearchService
}

// NewHandler creates a new HTTP handler
func NewHandler(comparisonService *usecase.ComparisonService, searchService *usecase.SearchService) *Handler {
	return &Handler{
		comparisonService: comparisonService,
		searchService:     searchService,
	}
}

// CompareRequest is the body of a compare call
type CompareRequest struct {
	Items []string `json:"items" binding:"required"`
}

// OverrideRequest is the body of an override call
type OverrideRequest struct {
	ItemQuery string `json:"item_query" binding:"required"`
	StoreID   string `json:"store_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pelles-backend",
		"version": "1.0.0",
	})
}

// Compare handles shopping list comparison requests
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.comparisonService.Compare(c.Request.Context(), req.Items)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Override handles manual match override requests
func (h *Handler) Override(c *gin.Context) {
	comparisonID := c.Param("id")

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.comparisonService.Override(
		c.Request.Context(),
		comparisonID,
		req.ItemQuery,
		req.StoreID,
		req.ProductID,
	)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListStores returns the configured stores
func (h *Handler) ListStores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stores": h.searchService.Stores()})
}

// ClearCache removes all cached search results
func (h *Handler) ClearCache(c *gin.Context) {
	h.clearCache(c, "")
}

// ClearStoreCache removes cached search results for one store
func (h *Handler) ClearStoreCache(c *gin.Context) {
	h.clearCache(c, c.Param("storeID"))
}

func (h *Handler) clearCache(c *gin.Context, storeID string) {
	deleted, err := h.searchService.ClearCache(c.Request.Context(), storeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared", "deleted_count": deleted})
}

// writeError maps domain errors to HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrUnknownStore),
		errors.Is(err, domain.ErrUnknownProduct):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrComparisonNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("[HTTP] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
