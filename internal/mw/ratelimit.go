package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// MessageTooManyRequests is returned with 429 responses.
const MessageTooManyRequests = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."

// DefaultLimiterIdle is how long a client's limiter survives without traffic.
const DefaultLimiterIdle = 10 * time.Minute

// IPRateLimiter hands out one token bucket per client IP. Buckets of clients
// that stay quiet for the idle period are dropped.
type IPRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewIPRateLimiter creates a limiter allowing r requests per second with burst b.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: cache.New(DefaultLimiterIdle, DefaultLimiterIdle),
		r:        r,
		b:        b,
	}
}

// AddIP returns the limiter for ip, creating it if no other request has.
func (i *IPRateLimiter) AddIP(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	if v, ok := i.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(i.r, i.b)
	i.limiters.SetDefault(ip, limiter)
	return limiter
}

// GetLimiter returns the limiter for ip and pushes back its idle expiry.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	v, ok := i.limiters.Get(ip)
	if !ok {
		return i.AddIP(ip)
	}
	limiter := v.(*rate.Limiter)
	i.limiters.SetDefault(ip, limiter)
	return limiter
}

// Len reports how many clients currently hold a bucket.
func (i *IPRateLimiter) Len() int {
	return i.limiters.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting. A zero rate
// disables limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewIPRateLimiter(r, b)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			log.Warn().Str("client_ip", ip).Str("path", c.FullPath()).Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": MessageTooManyRequests,
			})
			return
		}
		c.Next()
	}
}
