package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"ebook-assistant/internal/config"
	"ebook-assistant/internal/logger"
	"ebook-assistant/utils"
)

// RateLimitMiddleware limits requests per IP + endpoint with a Redis fixed
// window. Without Redis it falls back to an in-process token bucket.
func RateLimitMiddleware(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	if rdb == nil {
		return LocalRateLimit(cfg.RateLimitReqs, cfg.RateLimitWindow)
	}

	window := time.Duration(cfg.RateLimitWindow) * time.Second
	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()

		ctx, cancel := context.WithTimeout(c.Request.Context(), utils.ShortTimeout)
		defer cancel()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Fail open - don't block requests if Redis is down
			logger.Warn("Rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(cfg.RateLimitReqs) {
			rejectRateLimited(c, cfg.RateLimitReqs, cfg.RateLimitWindow)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.RateLimitReqs-int(count)))
		c.Next()
	}
}

// LocalRateLimit allows reqs requests per windowSecs per client IP.
func LocalRateLimit(reqs, windowSecs int) gin.HandlerFunc {
	l := newLocalLimiter(reqs, windowSecs, time.Now)

	return func(c *gin.Context) {
		if !l.allow(c.ClientIP() + ":" + c.FullPath()) {
			rejectRateLimited(c, reqs, windowSecs)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(reqs))
		c.Next()
	}
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// localLimiter keeps one token bucket per key. A bucket idle for a whole
// window is full again, so it is dropped and recreated on demand.
type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(reqs, windowSecs int, now func() time.Time) *localLimiter {
	return &localLimiter{
		entries:   make(map[string]*limiterEntry),
		every:     rate.Limit(float64(reqs) / float64(windowSecs)),
		burst:     reqs,
		idle:      time.Duration(windowSecs) * time.Second,
		lastSweep: now(),
		now:       now,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.prune(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// prune must be called with mu held.
func (l *localLimiter) prune(now time.Time) int {
	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.seen) >= l.idle {
			delete(l.entries, key)
			removed++
		}
	}
	l.lastSweep = now
	return removed
}

func rejectRateLimited(c *gin.Context, limit, window int) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(time.Duration(window)*time.Second).Unix(), 10))

	utils.RespondWithError(c, http.StatusTooManyRequests,
		"rate_limit_exceeded",
		"Too many requests. Please try again later.",
		gin.H{
			"retry_after": window,
			"limit":       limit,
		})
	c.Abort()
}
