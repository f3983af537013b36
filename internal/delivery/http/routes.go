package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nutriscan/backend/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		barcode := v1.Group("/barcode")
		{
			barcode.POST("/lookup", handler.LookupBarcode)
		}

		scanner := v1.Group("/scanner")
		{
			scanner.GET("", handler.ScannerSnapshot)
			scanner.POST("/start", handler.ScannerStart)
			scanner.POST("/stop", handler.ScannerStop)
			scanner.POST("/torch", handler.ScannerTorch)
			scanner.POST("/device", handler.ScannerDevice)
			scanner.GET("/events", handler.ServeEvents(cfg.Server.AllowedOrigins))
		}

		v1.GET("/scans", handler.RecentScans)
	}

	return router
}
