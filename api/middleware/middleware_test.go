package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/prodex/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "caller-supplied")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "caller-supplied", w.Header().Get(HeaderRequestID))
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(Auth([]string{"k1", ""}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeyAPIKey))
	})

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "k1", http.StatusOK},
		{"bearer", "Authorization", "Bearer k1", http.StatusOK},
		{"bearer lowercase scheme", "Authorization", "bearer  k1 ", http.StatusOK},
		{"basic scheme", "Authorization", "Basic k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := gin.New()
	r.Use(Auth(nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// limitedRouter authenticates with Auth and limits with a 1-token bucket that
// refills every 30s.
func limitedRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth([]string{"alpha", "beta"}))
	r.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 1.0 / 30, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func getWithKey(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_RetryAfter(t *testing.T) {
	r := limitedRouter()

	assert.Equal(t, http.StatusNoContent, getWithKey(r, "alpha").Code)

	w := getWithKey(r, "alpha")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 30, secs, 1)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}

func TestRateLimit_BucketPerIdentity(t *testing.T) {
	r := limitedRouter()

	assert.Equal(t, http.StatusNoContent, getWithKey(r, "alpha").Code)
	assert.Equal(t, http.StatusTooManyRequests, getWithKey(r, "alpha").Code)
	// Another key has its own bucket.
	assert.Equal(t, http.StatusNoContent, getWithKey(r, "beta").Code)
}

func TestRateLimit_ClientIPFallback(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 1.0 / 30, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, from("198.51.100.7:1234"))
	assert.Equal(t, http.StatusTooManyRequests, from("198.51.100.7:5678"))
	assert.Equal(t, http.StatusNoContent, from("203.0.113.9:1234"))
}

func TestIdentityOf(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, "ip:198.51.100.7", identityOf(c))

	// A key that looks like an address must not share the address's bucket.
	c.Set(ContextKeyAPIKey, "198.51.100.7")
	assert.Equal(t, "198.51.100.7", identityOf(c))
}

func TestBuckets_EvictIdle(t *testing.T) {
	b := newBuckets(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	b.take("old", now.Add(-2*time.Hour))
	b.take("fresh", now)

	b.evictIdle(now.Add(-time.Hour))
	assert.NotContains(t, b.limiters, "old")
	assert.Contains(t, b.limiters, "fresh")
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 3, retryAfterSeconds(2100*time.Millisecond))
}
