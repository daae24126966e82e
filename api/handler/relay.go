package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/prodex/engine"
)

// Relay returns a handler for GET /api/fetch?url=.
//
// It retrieves the target page server-side and returns the raw HTML, so
// browser clients can read pages they could not fetch cross-origin. The
// upstream status is mirrored on failure.
func Relay(eng engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")

		target := c.Query("url")
		if target == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing ?url= parameter"})
			return
		}

		res, err := eng.Fetch(c.Request.Context(), &engine.FetchRequest{URL: target})
		if err != nil {
			if status := engine.StatusOf(err); status != 0 {
				c.JSON(status, gin.H{"error": fmt.Sprintf("Upstream returned %d", status)})
				return
			}
			slog.Debug("relay fetch failed", "url", target, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
	}
}
