// Package api provides the HTTP API for the Gatekeep server.
package api

import (
	"github.com/MacJediWizard/gatekeep/internal/api/handlers"
	"github.com/MacJediWizard/gatekeep/internal/api/middleware"
	"github.com/MacJediWizard/gatekeep/internal/billing"
	"github.com/MacJediWizard/gatekeep/internal/config"
	"github.com/MacJediWizard/gatekeep/internal/db"
	"github.com/MacJediWizard/gatekeep/internal/entitlement"
	"github.com/MacJediWizard/gatekeep/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MacJediWizard/gatekeep/docs/api"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment controls CORS strictness.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine  *gin.Engine
	Metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, database *db.DB, logger zerolog.Logger) (*Router, error) {
	engine := gin.New()

	// Global middleware
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	engine.Use(rateLimiter)

	// Prometheus registry with process/runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Health check endpoint (no auth required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(engine)

	// Swagger API documentation
	engine.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/api/docs/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	// Version endpoint
	engine.GET("/api/v1/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    cfg.Version,
			"commit":     cfg.Commit,
			"build_date": cfg.BuildDate,
		})
	})

	// Core services
	lifecycle := entitlement.NewEngine(database, logger)
	aggregator := billing.NewAggregator(database, logger)

	v1 := engine.Group("/api/v1")
	{
		handlers.NewUsersHandler(database, logger).RegisterRoutes(v1)
		handlers.NewSubscriptionsHandler(lifecycle, database, m, logger).RegisterRoutes(v1)
		handlers.NewStatsHandler(aggregator, m, logger).RegisterRoutes(v1)
	}

	return &Router{
		Engine:  engine,
		Metrics: m,
		logger:  logger.With().Str("component", "router").Logger(),
	}, nil
}
