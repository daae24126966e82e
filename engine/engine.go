package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "relay", "rod").
	Name() string

	// Fetch retrieves the raw HTML for the given request. An upstream
	// non-2xx answer is reported as *StatusError; any other error is a
	// transport failure or the context ending.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports that the product page (or the relay in front of it)
// answered with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: upstream returned HTTP %d for %s", e.StatusCode, e.URL)
}

// StatusOf returns the upstream status carried by err, or 0 when err is
// not a *StatusError.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
