package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fetch modes select which engine retrieves product pages.
const (
	FetchModeHTTP    = "http"    // direct GET with a Chrome TLS fingerprint
	FetchModeRelay   = "relay"   // remote relay: GET <base>/api/fetch?url=
	FetchModeBrowser = "browser" // headless Chromium via rod
	FetchModeAuto    = "auto"    // http first, browser after EscalationDelay
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Relay     RelayConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls how raw page HTML is retrieved.
type FetchConfig struct {
	// Mode is one of the FetchMode constants. default: "http"
	Mode string

	// RelayBaseURL is the relay origin used in relay mode,
	// e.g. "https://relay.example.com".
	RelayBaseURL string

	// Proxy is an optional http(s) proxy for direct fetches.
	Proxy string

	// Timeout bounds a single fetch. default: 20s
	Timeout time.Duration

	// MaxBodyBytes caps the body read from upstream. default: 10 MiB
	MaxBodyBytes int64

	// UserAgent is sent on direct fetches.
	UserAgent string

	// EscalationDelay is how long auto mode waits on the HTTP engine
	// before also starting the browser. default: 3s
	EscalationDelay time.Duration
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 4

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types not worth loading for
	// product data. default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// ScraperConfig controls the extraction pipeline.
type ScraperConfig struct {
	// DefaultTimeout applies when the caller gives none. default: 30s
	DefaultTimeout time.Duration

	// MaxTimeout is the maximum allowed timeout from the client. default: 120s
	MaxTimeout time.Duration

	// DegradedInFlight is the in-flight extraction count above which the
	// health endpoint reports "degraded". 0 disables it. default: 50
	DegradedInFlight int
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// RelayConfig controls the built-in HTML relay endpoint.
type RelayConfig struct {
	// Enabled mounts GET /api/fetch. default: false
	Enabled bool
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRODEX_HOST", "0.0.0.0"),
			Port: envIntOr("PRODEX_PORT", 8080),
			Mode: envOr("PRODEX_MODE", "release"),
		},
		Fetch: FetchConfig{
			Mode:            strings.ToLower(envOr("PRODEX_FETCH_MODE", FetchModeHTTP)),
			RelayBaseURL:    strings.TrimRight(os.Getenv("PRODEX_RELAY_BASE_URL"), "/"),
			Proxy:           os.Getenv("PRODEX_PROXY"),
			Timeout:         envDurationOr("PRODEX_FETCH_TIMEOUT", 20*time.Second),
			MaxBodyBytes:    int64(envIntOr("PRODEX_MAX_BODY_BYTES", 10<<20)),
			UserAgent:       envOr("PRODEX_USER_AGENT", DefaultUserAgent),
			EscalationDelay: envDurationOr("PRODEX_ESCALATION_DELAY", 3*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PRODEX_HEADLESS", true),
			MaxPages:   envIntOr("PRODEX_MAX_PAGES", 4),
			NoSandbox:  envBoolOr("PRODEX_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PRODEX_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("PRODEX_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:   envDurationOr("PRODEX_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:       envDurationOr("PRODEX_MAX_TIMEOUT", 120*time.Second),
			DegradedInFlight: envIntOr("PRODEX_DEGRADED_IN_FLIGHT", 50),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PRODEX_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PRODEX_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRODEX_RATE_RPS", 5.0),
			Burst:             envIntOr("PRODEX_RATE_BURST", 10),
		},
		Relay: RelayConfig{
			Enabled: envBoolOr("PRODEX_RELAY_ENABLED", false),
		},
		Log: LogConfig{
			Level:  envOr("PRODEX_LOG_LEVEL", "info"),
			Format: envOr("PRODEX_LOG_FORMAT", "json"),
		},
	}
}

// DefaultUserAgent is a current desktop Chrome UA.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Fetch.Mode {
	case FetchModeHTTP, FetchModeBrowser, FetchModeAuto:
	case FetchModeRelay:
		if c.Fetch.RelayBaseURL == "" {
			return fmt.Errorf("config: fetch mode %q requires PRODEX_RELAY_BASE_URL", FetchModeRelay)
		}
	default:
		return fmt.Errorf("config: unknown fetch mode %q", c.Fetch.Mode)
	}
	if c.Scraper.DefaultTimeout <= 0 || c.Scraper.MaxTimeout <= 0 {
		return fmt.Errorf("config: scraper timeouts must be positive")
	}
	if c.Scraper.DefaultTimeout > c.Scraper.MaxTimeout {
		return fmt.Errorf("config: default timeout %s exceeds max timeout %s", c.Scraper.DefaultTimeout, c.Scraper.MaxTimeout)
	}
	if c.Browser.MaxPages < 1 {
		return fmt.Errorf("config: PRODEX_MAX_PAGES must be at least 1")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
