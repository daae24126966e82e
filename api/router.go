package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/prodex/api/handler"
	"github.com/use-agent/prodex/api/middleware"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/engine"
	"github.com/use-agent/prodex/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → AccessLog
//	API:     Auth (if enabled) → RateLimit
//	Relay:   RateLimit (shared buckets, no auth)
//
// relay may be nil when the relay endpoint is disabled.
func NewRouter(sc *scraper.Scraper, relay engine.Engine, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())

	limiter := middleware.RateLimit(cfg.RateLimit)

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(sc, startTime, cfg.Scraper.DegradedInFlight))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(limiter)

	protected.GET("/product", handler.Product(sc))
	protected.POST("/product", handler.Product(sc))
	protected.POST("/product/batch", handler.PostBatch(sc))

	// Relay is reachable from browsers without a key, as the web client
	// calls it directly.
	if relay != nil {
		r.GET("/api/fetch", limiter, handler.Relay(relay))
	}

	return r
}
