package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"sopbot/internal/transport/http/response"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
}

func newLimiterPool(requests int, window time.Duration) *limiterPool {
	p := &limiterPool{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
	}
	go p.janitor(window)
	return p
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (p *limiterPool) janitor(window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-2 * window)
		p.mu.Lock()
		for ip, entry := range p.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(p.limiters, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit allows up to requests per window per client IP. Buckets refill
// continuously rather than resetting at window edges.
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	if requests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	pool := newLimiterPool(requests, window)
	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			response.Error(c, http.StatusTooManyRequests, "Too many requests, please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
