package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/voxelpilot/throttle"
	"golang.org/x/time/rate"
)

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	return RateLimitWith(throttle.New(r, b))
}

// RateLimitWith limits requests per client IP through lim. Buckets idle for
// ten minutes are pruned as requests arrive.
func RateLimitWith(lim *throttle.Limiter) gin.HandlerFunc {
	var lastPrune atomic.Int64
	return func(c *gin.Context) {
		now := time.Now()
		if last := lastPrune.Load(); now.UnixNano()-last > int64(5*time.Minute) && lastPrune.CompareAndSwap(last, now.UnixNano()) {
			lim.Prune(now.Add(-10 * time.Minute))
		}
		if !lim.AllowAt("ip:"+c.ClientIP(), now) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
