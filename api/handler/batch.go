package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/prodex/models"
	"github.com/use-agent/prodex/scraper"
)

// batchConcurrency bounds simultaneous extractions within one batch.
const batchConcurrency = 5

// PostBatch returns a handler for POST /api/v1/product/batch.
//
// URLs are extracted concurrently and independently: one failing URL
// never fails the batch. Results are returned in request order.
func PostBatch(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ProductResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		ctx := c.Request.Context()
		results := make([]*models.ProductResponse, len(req.URLs))

		var g errgroup.Group
		g.SetLimit(batchConcurrency)
		for i, u := range req.URLs {
			g.Go(func() error {
				results[i], _ = run(ctx, sc, &models.ProductRequest{URL: u, Timeout: req.Timeout})
				return nil
			})
		}
		_ = g.Wait()

		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}

		c.JSON(http.StatusOK, models.BatchResponse{
			Total:     len(results),
			Succeeded: succeeded,
			Results:   results,
		})
	}
}
