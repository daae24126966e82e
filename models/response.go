package models

// ProductResponse is the response for /api/v1/product.
type ProductResponse struct {
	// Success indicates whether a product record was extracted.
	Success bool `json:"success"`

	// Product is the normalized record; nil when Success is false.
	Product *Product `json:"product,omitempty"`

	// Strategy names the extraction strategy that produced Product
	// (e.g. "jsonld", "nike", "nextdata", "opengraph").
	Strategy string `json:"strategy,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// BatchResponse is the response for POST /api/v1/product/batch.
// Results are in request order.
type BatchResponse struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Results   []*ProductResponse `json:"results"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent retrieving the page HTML.
	FetchMs int64 `json:"fetch_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Fetcher  string `json:"fetcher"`
	InFlight int    `json:"in_flight"`
	Version  string `json:"version"`
}
