package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/prodex/models"
	"github.com/use-agent/prodex/scraper"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "degraded" once in-flight extractions exceed maxInFlight;
// a non-positive maxInFlight disables that check.
func Health(sc *scraper.Scraper, startTime time.Time, maxInFlight int) gin.HandlerFunc {
	return func(c *gin.Context) {
		inFlight := sc.InFlight()

		status := "healthy"
		if maxInFlight > 0 && inFlight > maxInFlight {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Fetcher:  sc.FetcherName(),
			InFlight: inFlight,
			Version:  Version,
		})
	}
}
