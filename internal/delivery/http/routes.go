package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pelles/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/compare", handler.Compare)
		v1.POST("/compare/:id/override", handler.Override)
		v1.GET("/stores", handler.ListStores)
		v1.DELETE("/cache", handler.ClearCache)
		v1.DELETE("/cache/:storeID", handler.ClearStoreCache)
	}

	return router
}
