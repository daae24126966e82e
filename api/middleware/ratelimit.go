package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/models"
)

const (
	limiterIdleTTL   = time.Hour
	limiterSweepTick = 5 * time.Minute
)

// buckets holds one token bucket per caller identity.
type buckets struct {
	cfg config.RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBuckets(cfg config.RateLimitConfig) *buckets {
	return &buckets{cfg: cfg, limiters: make(map[string]*bucket)}
}

// take consumes one token for identity. When the bucket is empty it reports
// how long until the next token is due.
func (b *buckets) take(identity string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.limiters[identity]
	if !ok {
		entry = &bucket{limiter: rate.NewLimiter(rate.Limit(b.cfg.RequestsPerSecond), b.cfg.Burst)}
		b.limiters[identity] = entry
	}
	entry.lastSeen = now

	r := entry.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// evictIdle drops buckets not used since cutoff.
func (b *buckets) evictIdle(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, entry := range b.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(b.limiters, id)
		}
	}
}

// RateLimit returns per-identity token-bucket rate limiting middleware.
//
// The identity is the API key set by Auth, or "ip:<client ip>" when the
// route is not authenticated. Rejected requests get 429 with a Retry-After
// header in whole seconds. The returned handler may be mounted on several
// groups; they then share one bucket per identity.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	b := newBuckets(cfg)

	go func() {
		ticker := time.NewTicker(limiterSweepTick)
		defer ticker.Stop()
		for now := range ticker.C {
			b.evictIdle(now.Add(-limiterIdleTTL))
		}
	}()

	return func(c *gin.Context) {
		if ok, wait := b.take(identityOf(c), time.Now()); !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ProductResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}
		c.Next()
	}
}

func identityOf(c *gin.Context) string {
	if key := c.GetString(ContextKeyAPIKey); key != "" {
		return key
	}
	return "ip:" + c.ClientIP()
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
