package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/prodex/models"
	"github.com/use-agent/prodex/scraper"
)

// statusClientClosedRequest is the de-facto status for a caller that went
// away before the response was ready.
const statusClientClosedRequest = 499

// Product returns a handler for GET and POST /api/v1/product.
//
// GET takes ?url=&timeout=; POST takes a JSON models.ProductRequest.
func Product(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ProductRequest
		var bindErr error
		if c.Request.Method == http.MethodGet {
			bindErr = c.ShouldBindQuery(&req)
		} else {
			bindErr = c.ShouldBindJSON(&req)
		}
		if bindErr != nil {
			c.JSON(http.StatusBadRequest, models.ProductResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: bindErr.Error(),
				},
				Timing: models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
			})
			return
		}

		// ── 2. Extract and respond ──────────────────────────────────
		resp, status := run(c.Request.Context(), sc, &req)
		c.JSON(status, resp)
	}
}

// run executes one extraction and shapes the API response.
func run(ctx context.Context, sc *scraper.Scraper, req *models.ProductRequest) (*models.ProductResponse, int) {
	start := time.Now()
	ext, err := sc.Do(ctx, req)
	if err != nil {
		ee := asExtractError(err)
		return &models.ProductResponse{
			Success: false,
			Error:   ee.ToDetail(),
			Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		}, mapErrorToStatus(ee)
	}
	return &models.ProductResponse{
		Success:  true,
		Product:  ext.Product,
		Strategy: ext.Strategy,
		Timing: models.TimingInfo{
			TotalMs: time.Since(start).Milliseconds(),
			FetchMs: ext.FetchDuration.Milliseconds(),
		},
	}, http.StatusOK
}

func asExtractError(err error) *models.ExtractError {
	var ee *models.ExtractError
	if errors.As(err, &ee) {
		return ee
	}
	return models.NewExtractError(models.ErrCodeInternal, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ExtractError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNetwork:
		return http.StatusBadGateway // 502
	case models.ErrCodeUpstream:
		if e.UpstreamStatus == http.StatusNotFound {
			return http.StatusNotFound // 404
		}
		return http.StatusBadGateway // 502
	case models.ErrCodeCancelled:
		if errors.Is(e, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout // 504
		}
		return statusClientClosedRequest // 499
	case models.ErrCodeExtractionFailure:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
