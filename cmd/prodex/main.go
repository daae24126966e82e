package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/prodex/api"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/engine"
	"github.com/use-agent/prodex/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("prodex starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"fetchMode", cfg.Fetch.Mode,
		"relayEnabled", cfg.Relay.Enabled,
	)

	// ── 3. Initialise fetch engine ──────────────────────────────────
	eng, closeEngine := newEngine(cfg)
	defer closeEngine()
	slog.Info("fetch engine ready", "engine", eng.Name())

	// ── 4. Initialise scraper ───────────────────────────────────────
	sc := scraper.NewScraper(eng, cfg.Scraper)

	// ── 4b. Relay endpoint always fetches directly ──────────────────
	var relay engine.Engine
	if cfg.Relay.Enabled {
		relay = engine.NewHTTPEngine(cfg.Fetch)
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, relay, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// closeEngine runs via defer; in browser modes it kills Chrome.
	slog.Info("prodex stopped")
}

// newEngine builds the engine for cfg.Fetch.Mode. The returned func
// releases engine resources and is always non-nil.
func newEngine(cfg *config.Config) (engine.Engine, func()) {
	noop := func() {}
	switch cfg.Fetch.Mode {
	case config.FetchModeRelay:
		client := &http.Client{Timeout: cfg.Fetch.Timeout}
		return engine.NewRelayEngine(cfg.Fetch.RelayBaseURL, client, cfg.Fetch.MaxBodyBytes), noop
	case config.FetchModeBrowser:
		rod := engine.NewRodEngine(cfg.Browser, cfg.Fetch.Proxy)
		return rod, rod.Close
	case config.FetchModeAuto:
		rod := engine.NewRodEngine(cfg.Browser, cfg.Fetch.Proxy)
		d := engine.NewDispatcher(
			[]engine.Engine{engine.NewHTTPEngine(cfg.Fetch), rod},
			[]time.Duration{0, cfg.Fetch.EscalationDelay},
		)
		return d, rod.Close
	default:
		return engine.NewHTTPEngine(cfg.Fetch), noop
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
