package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ──────────────────────────────────────────────────────────────────────────────
// Token Bucket Rate Limiter
// ──────────────────────────────────────────────────────────────────────────────

// visitor is one caller's token bucket and the last time it was used.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter holds per-caller buckets.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit // tokens per second
	burst    int        // maximum token capacity
}

// newRateLimiter creates a rate limiter with the given requests-per-second
// allowance.  The burst capacity is set to max(10, rate) so short spikes are
// absorbed.
func newRateLimiter(rps int) *rateLimiter {
	burst := rps
	if burst < 10 {
		burst = 10
	}
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// allow returns true when the given key is allowed to proceed at now and
// deducts one token from its bucket.
func (rl *rateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// evictBefore drops buckets that have not been touched since cutoff.
func (rl *rateLimiter) evictBefore(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// callerKey buckets authenticated callers by user id, so bidders behind one
// NAT do not share a budget, and falls back to the client IP otherwise.
func callerKey(c *gin.Context) string {
	if id := GetUserID(c); id != uuid.Nil {
		return "user:" + id.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware returns a gin.HandlerFunc that enforces a per-caller
// token bucket rate limit of rps requests per second. Place it after
// JWTMiddleware to key on the user rather than the IP. Callers exceeding the
// limit receive 429 Too Many Requests.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	rl := newRateLimiter(rps)

	// Background goroutine to evict stale buckets every 5 minutes to prevent
	// the map from growing without bound.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			rl.evictBefore(now.Add(-10 * time.Minute))
		}
	}()

	return func(c *gin.Context) {
		if !rl.allow(callerKey(c), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, please slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
