package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

// RateLimiter keeps one token bucket per client. A bucket holds limit tokens
// and refills at limit per window.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    int
	window   time.Duration
	every    rate.Limit
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts a limiter and its idle-bucket sweeper. Call Stop when done.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		every:   rate.Every(window / time.Duration(limit)),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go rl.sweep()
	return rl
}

// Stop ends the sweeper
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(2 * rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops buckets unused for two windows; they would be full anyway.
func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-2 * rl.window)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Allow takes a token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.every, rl.limit)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// Remaining reports the whole tokens left in key's bucket
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		return rl.limit
	}
	return int(math.Floor(b.lim.TokensAt(rl.now())))
}

// RetryAfter is how long a rejected client waits for its next token
func (rl *RateLimiter) RetryAfter() time.Duration {
	return rl.window / time.Duration(rl.limit)
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey limits requests per keyFunc(c)
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if !limiter.Allow(key) {
			wait := int(math.Ceil(limiter.RetryAfter().Seconds()))
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Failure(
				dto.ErrCodeRateLimited, "Too many requests, retry later", getRequestID(c)))
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
