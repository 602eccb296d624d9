package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portfolio/internal/metrics"
	"portfolio/internal/redis"
)

const maxTrackedClients = 4096

// RateLimiter implements sliding window rate limiting. Counters live in redis
// when it is enabled and in process memory otherwise.
type RateLimiter struct {
	cache  *redis.Client
	logger zerolog.Logger

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewRateLimiter creates a new rate limiter. cache may be nil.
func NewRateLimiter(cache *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		logger: logger,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records one hit for key and reports whether it is within limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if rl.cache.Enabled() {
		count, err := rl.cache.SlidingWindow(ctx, "ratelimit:"+key, window)
		if err == nil {
			return count <= int64(limit)
		}
		rl.logger.Warn().Err(err).Msg("redis rate limit failed, using memory")
	}
	return rl.allowLocal(key, limit, window, time.Now())
}

func (rl *RateLimiter) allowLocal(key string, limit int, window time.Duration, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := now.Add(-window)
	if len(rl.hits) > maxTrackedClients {
		rl.sweepLocked(cutoff)
	}
	queue := rl.hits[key]
	idx := 0
	for _, t := range queue {
		if t.After(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		queue = queue[idx:]
	}
	if len(queue) >= limit {
		rl.hits[key] = queue
		return false
	}
	queue = append(queue, now)
	rl.hits[key] = queue
	return true
}

// sweepLocked forgets clients with no hit inside the window.
func (rl *RateLimiter) sweepLocked(cutoff time.Time) {
	for key, queue := range rl.hits {
		if len(queue) == 0 || !queue[len(queue)-1].After(cutoff) {
			delete(rl.hits, key)
		}
	}
}

// Limit returns middleware allowing limit requests per window per client IP.
// Forwarding headers only count when the peer is a configured trusted proxy.
func (rl *RateLimiter) Limit(endpoint string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := endpoint + ":" + c.ClientIP()
		if !rl.Allow(c.Request.Context(), key, limit, window) {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			rl.logger.Debug().Str("endpoint", endpoint).Str("client", c.ClientIP()).Msg("rate limited")
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "Rate limit exceeded: " + strconv.Itoa(limit) + " per " + window.String(),
			})
			return
		}
		c.Next()
	}
}
