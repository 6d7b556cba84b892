// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"protocolo/internal/domain/dashboard"
	"protocolo/internal/domain/docnumber"
	"protocolo/internal/domain/series"
	"protocolo/internal/infrastructure/http/v1/handlers"
	"protocolo/internal/infrastructure/http/v1/middleware"
	"protocolo/internal/infrastructure/metrics"
	"protocolo/internal/infrastructure/storage/postgres"
	"protocolo/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// SeriesService manages the series registry.
	SeriesService *series.Service

	// NumberService manages the number lifecycle.
	NumberService *docnumber.Service

	// DashboardService aggregates statistics.
	DashboardService *dashboard.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no actor required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	base := handlers.NewBaseHandler()
	seriesHandler := handlers.NewSeriesHandler(base, cfg.SeriesService)
	numbersHandler := handlers.NewNumbersHandler(base, cfg.NumberService)
	dashboardHandler := handlers.NewDashboardHandler(base, cfg.DashboardService)

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Actor())
	{
		seriesGroup := v1.Group("/series")
		{
			seriesGroup.POST("", seriesHandler.Create)
			seriesGroup.GET("", seriesHandler.List)
			seriesGroup.GET("/:id", seriesHandler.Get)
			seriesGroup.PATCH("/:id", seriesHandler.Update)
			seriesGroup.DELETE("/:id", seriesHandler.Deactivate)
		}

		numbersGroup := v1.Group("/numbers")
		{
			numbersGroup.POST("/reserve", numbersHandler.Reserve)
			numbersGroup.GET("", numbersHandler.List)
			numbersGroup.GET("/:id", numbersHandler.Get)
			numbersGroup.POST("/:id/issue", numbersHandler.Issue)
			numbersGroup.POST("/:id/void", numbersHandler.Void)
		}

		v1.GET("/dashboard/stats", dashboardHandler.Stats)
		v1.GET("/dashboard/series-stats", dashboardHandler.SeriesStats)
	}

	return router
}
