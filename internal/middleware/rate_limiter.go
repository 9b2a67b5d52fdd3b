package middleware

import (
	"net/http"
	"sync"
	"time"

	"qist/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window rate limiter ────────────────────────────────────────────────

// windowEntry tracks request counts for one client IP.
type windowEntry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter allows limit requests per window per client IP.
type RateLimiter struct {
	limit     int
	window    time.Duration
	message   string
	now       func() time.Time
	mu        sync.Mutex
	entries   map[string]*windowEntry
	nextPurge time.Time
}

const purgeInterval = 5 * time.Minute

func NewRateLimiter(limit int, window time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		message: message,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
}

// Allow records one request from ip and reports whether it is within the
// limit, plus the end of the current window.
func (l *RateLimiter) Allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextPurge) {
		l.purgeLocked(now)
	}

	entry, ok := l.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = entry
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

// purgeLocked drops expired entries so IPs that never return do not pile up.
func (l *RateLimiter) purgeLocked(now time.Time) {
	purged := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	l.nextPurge = now.Add(purgeInterval)
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
	}
}

func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(http.StatusTooManyRequests, l.message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(20, time.Minute, "Too many login attempts. Try again in a minute.").Handler()
}

// APIRateLimiter applies a general per-IP request budget.
func APIRateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(limit, window, "Too many requests. Try again shortly.").Handler()
}
