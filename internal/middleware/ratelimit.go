package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP. The most recently
// seen IPs are kept so memory stays bounded.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(rps float64, burst, maxVisitors int) *IPRateLimiter {
	if maxVisitors <= 0 {
		maxVisitors = 10000
	}
	visitors, _ := lru.New[string, *rate.Limiter](maxVisitors) // only fails for size <= 0
	return &IPRateLimiter{visitors: visitors, rps: rate.Limit(rps), burst: burst}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.visitors.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors.Add(ip, limiter)
	}
	return limiter
}

func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			AbortError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please wait")
			return
		}
		c.Next()
	}
}
