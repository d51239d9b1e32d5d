// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RateLimiter is a process-local token bucket per client, built on
// golang.org/x/time/rate. A throttled request is recorded as an operational
// 429 and rendered by ErrorHandler like any other failure; Retry-After says
// when the client's next token is due.
//
// Buckets idle for longer than the TTL are swept at most once a minute. The
// limiter is edge protection for a single process, not an authorization
// mechanism.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

const (
	apiKeyHeader = "X-API-Key"

	defaultBucketTTL = 10 * time.Minute
	sweepInterval    = time.Minute

	// Retry-After sent when the bucket will never refill (rate 0).
	maxRetryAfter = 60
)

// KeyFunc maps a request to the identity whose bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByAPIKeyOrIP keys by the X-API-Key header when present and by client
// IP otherwise. API keys are hashed so the bucket map never holds them.
func KeyByAPIKeyOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if k := c.GetHeader(apiKeyHeader); k != "" {
			sum := sha256.Sum256([]byte(k))
			return "key:" + hex.EncodeToString(sum[:8])
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter holds one token bucket per key. Safe for concurrent use.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

// NewRateLimiter allows rps requests per second per key with bursts of up
// to burst (coerced to at least 1). rps 0 allows only the initial burst.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		key:     key,
		ttl:     defaultBucketTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// bucketFor returns the limiter for key, creating it on first use.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !now.Before(rl.nextSweep) {
		rl.sweep(now)
		rl.nextSweep = now.Add(sweepInterval)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// sweep drops buckets idle for at least ttl. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, b := range rl.buckets {
		if now.Sub(b.seen) >= rl.ttl {
			delete(rl.buckets, k)
		}
	}
}

// retryAfter is the number of whole seconds until lim grants a token,
// never less than 1.
func retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return maxRetryAfter
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	if d == rate.InfDuration {
		return maxRetryAfter
	}
	return max(1, int(math.Ceil(d.Seconds())))
}

func errRateLimited() error {
	return apperr.New("Too many requests from this client, please try again later", http.StatusTooManyRequests)
}

// Handler returns the Gin middleware enforcing the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := rl.now()
		lim := rl.bucketFor(rl.key(c), now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(retryAfter(lim, now)))
		_ = c.Error(errRateLimited())
		c.Abort()
	}
}
