// Package scraper runs the product extraction pipeline: validate the URL,
// retrieve the page through an engine, then walk the strategy chain for the
// page's host until one yields a named product.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/engine"
	"github.com/use-agent/prodex/extractor"
	"github.com/use-agent/prodex/models"
)

// Router maps a page host to the ordered strategies to try.
type Router func(host string) []extractor.Strategy

// Scraper is safe for concurrent use; each call owns its own page state.
type Scraper struct {
	engine   engine.Engine
	cfg      config.ScraperConfig
	route    Router
	inFlight atomic.Int32
}

// NewScraper creates a Scraper that fetches through eng.
func NewScraper(eng engine.Engine, cfg config.ScraperConfig) *Scraper {
	return &Scraper{
		engine: eng,
		cfg:    cfg,
		route:  extractor.Route,
	}
}

// SetRouter replaces the host routing table. Intended for tests and for
// deployments that register extra vendor strategies.
func (s *Scraper) SetRouter(r Router) {
	s.route = r
}

// FetcherName reports the engine in use.
func (s *Scraper) FetcherName() string { return s.engine.Name() }

// InFlight reports the number of extractions currently running.
func (s *Scraper) InFlight() int { return int(s.inFlight.Load()) }

// Extract runs the pipeline for rawURL with the default timeout.
func (s *Scraper) Extract(ctx context.Context, rawURL string) (*models.Extraction, error) {
	return s.Do(ctx, &models.ProductRequest{URL: rawURL})
}

// Do runs the pipeline for req. Errors are always *models.ExtractError.
//
// Lifecycle:
//
//  1. Validate    : absolute http(s) URL with a host
//  2. Timeout     : request value or default, clamped to MaxTimeout
//  3. Fetch       : one engine call; no strategy runs without HTML
//  4. Parse       : a single parse shared by every strategy
//  5. Strategies  : in route order; first record with a name wins
func (s *Scraper) Do(ctx context.Context, req *models.ProductRequest) (*models.Extraction, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	// ── 1. Validate ───────────────────────────────────────────────────
	target, err := validateURL(req.URL)
	if err != nil {
		return nil, err
	}

	// ── 2. Timeout guard ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(ctx, s.timeout(req.Timeout))
	defer cancel()

	// ── 3. Fetch ──────────────────────────────────────────────────────
	fetchStart := time.Now()
	res, err := s.engine.Fetch(ctx, &engine.FetchRequest{URL: target.String()})
	fetchDur := time.Since(fetchStart)
	if err != nil {
		return nil, classifyFetchError(ctx, err)
	}

	// ── 4. Parse ──────────────────────────────────────────────────────
	page, err := extractor.NewPage(res.HTML, req.URL)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeExtractionFailure, "could not parse product page", err)
	}

	// ── 5. Strategy chain ─────────────────────────────────────────────
	var lastErr error
	for _, st := range s.route(target.Hostname()) {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}

		prod, err := runStrategy(st, page)
		if err != nil {
			slog.Debug("strategy failed", "strategy", st.Name(), "url", req.URL, "error", err)
			lastErr = err
			continue
		}
		if prod == nil || strings.TrimSpace(prod.Name) == "" {
			slog.Debug("strategy found no product name", "strategy", st.Name(), "url", req.URL)
			lastErr = fmt.Errorf("%s: %w", st.Name(), extractor.ErrNoCandidate)
			continue
		}

		slog.Info("product extracted", "strategy", st.Name(), "url", req.URL, "engine", res.EngineName)
		return &models.Extraction{Product: prod, Strategy: st.Name(), FetchDuration: fetchDur}, nil
	}

	return nil, models.NewExtractError(
		models.ErrCodeExtractionFailure,
		"Could not extract product data from this page",
		lastErr,
	)
}

func (s *Scraper) timeout(seconds int) time.Duration {
	timeout := s.cfg.DefaultTimeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	if s.cfg.MaxTimeout > 0 && timeout > s.cfg.MaxTimeout {
		timeout = s.cfg.MaxTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return timeout
}

// runStrategy isolates one strategy: a panic inside it becomes an error.
func runStrategy(st extractor.Strategy, p *extractor.Page) (prod *models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			prod, err = nil, fmt.Errorf("strategy %s panicked: %v", st.Name(), r)
		}
	}()
	return st.Extract(p)
}

func validateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput, "Please enter a valid URL", nil)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput, "Invalid URL format", err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput, "URL must use http or https", nil)
	}
	if u.Hostname() == "" {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput, "Invalid URL format", nil)
	}
	return u, nil
}

// classifyFetchError maps an engine error onto the pipeline's error kinds.
// A finished context always wins: a transport error caused by cancellation
// is reported as cancellation.
func classifyFetchError(ctx context.Context, err error) *models.ExtractError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(err)
	}

	if status := engine.StatusOf(err); status != 0 {
		msg := fmt.Sprintf("Failed to fetch product page (HTTP %d)", status)
		if status == 404 {
			msg = "Product not found: check the URL or try another"
		}
		e := models.NewExtractError(models.ErrCodeUpstream, msg, err)
		e.UpstreamStatus = status
		return e
	}

	return models.NewExtractError(models.ErrCodeNetwork, "Network error: could not reach the product page", err)
}

func cancelled(err error) *models.ExtractError {
	msg := "request cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "extraction timed out"
	}
	return models.NewExtractError(models.ErrCodeCancelled, msg, err)
}
