package models

// ProductRequest is the payload for POST /api/v1/product.
type ProductRequest struct {
	// URL is the product page to extract. Required. Scheme and host checks
	// happen in the pipeline so that every caller gets the same error.
	URL string `json:"url" form:"url" binding:"required"`

	// Timeout is the maximum duration in seconds for the whole extraction.
	// Default: server setting. Max: 120.
	Timeout int `json:"timeout,omitempty" form:"timeout" binding:"omitempty,min=1,max=120"`
}

// BatchRequest is the payload for POST /api/v1/product/batch.
type BatchRequest struct {
	// URLs is the list of product pages to extract. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=50"`

	// Timeout applies to each URL individually.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}
