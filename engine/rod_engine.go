package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/prodex/config"
)

// RodEngine renders pages in headless Chromium. It is meant for storefronts
// that only emit their product state from client-side JavaScript.
//
// The browser is launched on first use and shared by all fetches; tabs
// come from a bounded pool so concurrent fetches never exceed MaxPages.
type RodEngine struct {
	cfg   config.BrowserConfig
	proxy string

	once      sync.Once
	launchErr error
	browser   *rod.Browser
	pagePool  rod.Pool[rod.Page]
	newPage   func() (*rod.Page, error)
	blocked   map[proto.NetworkResourceType]struct{}
}

// NewRodEngine creates a RodEngine. No browser is started until the first
// Fetch.
func NewRodEngine(cfg config.BrowserConfig, proxy string) *RodEngine {
	return &RodEngine{
		cfg:     cfg,
		proxy:   proxy,
		blocked: blockedTypes(cfg.BlockedResourceTypes),
	}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) launch() {
	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.proxy != "" {
		l = l.Proxy(e.proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		e.launchErr = fmt.Errorf("rod_engine: launch browser: %w", err)
		return
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		e.launchErr = fmt.Errorf("rod_engine: connect browser: %w", err)
		return
	}
	slog.Info("browser launched", "controlURL", controlURL, "maxPages", e.cfg.MaxPages)

	e.browser = browser
	e.pagePool = rod.NewPagePool(e.cfg.MaxPages)
	e.newPage = func() (*rod.Page, error) {
		return browser.Page(proto.TargetCreateTarget{})
	}
}

// acquirePage takes a tab slot from the pool, creating the tab on first use
// of the slot. It gives up when ctx is done. A slot whose tab could not be
// created goes back to the pool empty.
func (e *RodEngine) acquirePage(ctx context.Context) (*rod.Page, error) {
	var page *rod.Page
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case page = <-e.pagePool:
	}
	if page != nil {
		return page, nil
	}

	page, err := e.newPage()
	if err != nil {
		e.pagePool.Put(nil)
		return nil, err
	}
	return page, nil
}

// Fetch navigates a pooled tab to req.URL and returns the rendered HTML.
//
// Stealth JS, extra headers and resource blocking are installed before
// navigation; they only apply to navigations that start afterwards.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	e.once.Do(e.launch)
	if e.launchErr != nil {
		return nil, e.launchErr
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// ── 1. Acquire page from pool ─────────────────────────────────────
	page, err := e.acquirePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("rod_engine: acquire page: %w", err)
	}

	// ── 2. Reset and return the tab, using the context-free handle so
	// cleanup still works after the request deadline.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		e.pagePool.Put(page)
	}()

	// ── 3. Stealth injection ──────────────────────────────────────────
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	// ── 4. Extra headers ──────────────────────────────────────────────
	headers := map[string]string{"Accept-Language": "en-US,en;q=0.9"}
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)

	// ── 5. Block heavy resources ──────────────────────────────────────
	if router := e.hijack(page); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 6. Navigate and wait ──────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("rod_engine: navigate: %w", contextCause(ctx, err))
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rod_engine: wait: %w", ctx.Err())
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}
	if statusCode >= 400 {
		return nil, &StatusError{StatusCode: statusCode, URL: req.URL}
	}

	// ── 7. Rendered HTML ──────────────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("rod_engine: read html: %w", contextCause(ctx, err))
	}

	finalURL := req.URL
	if res, err := p.Eval(`() => window.location.href`); err == nil && res.Value.Str() != "" {
		finalURL = res.Value.Str()
	}
	if statusCode == 0 {
		statusCode = 200
	}

	return &FetchResult{
		HTML:       rawHTML,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// Close drains the page pool and kills the browser process, if one was
// ever started.
func (e *RodEngine) Close() {
	if e.browser == nil {
		return
	}
	slog.Info("rod engine shutting down: draining page pool")
	e.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	if err := e.browser.Close(); err != nil {
		slog.Warn("rod engine: close browser", "error", err)
	}
}

// contextCause prefers the context's own error so callers can classify a
// rod failure caused by cancellation with errors.Is.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
