package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterPruneEvery = 5 * time.Minute
	limiterIdleTTL    = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-IP token bucket. rps is the steady-state rate and
// burst the bucket size. Idle entries are pruned while serving requests.
func rateLimiter(rps, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)
	lastPrune := time.Now()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastPrune) > limiterPruneEvery {
			for k, l := range limiters {
				if now.Sub(l.lastSeen) > limiterIdleTTL {
					delete(limiters, k)
				}
			}
			lastPrune = now
		}
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = l
		}
		l.lastSeen = now
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"request_id": requestIDFrom(c),
			})
			return
		}
		c.Next()
	}
}
