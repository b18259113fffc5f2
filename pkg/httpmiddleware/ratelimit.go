package httpmiddleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter counts requests per key over a sliding window approximated from
// the current and previous fixed windows.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	prev  float64
	curr  float64
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// NewLimiter allows up to limit requests per key in any window-long span.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		max:     limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// Allow records a request for key at now if it fits within the limit.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{start: now.Truncate(l.window)}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.start); elapsed >= l.window {
		b.prev = b.curr
		if elapsed >= 2*l.window {
			b.prev = 0
		}
		b.curr = 0
		b.start = now.Truncate(l.window)
	}

	// Weight the previous window by the share still inside the sliding span.
	weight := max(1-now.Sub(b.start).Seconds()/l.window.Seconds(), 0)
	count := b.prev*weight + b.curr
	d := Decision{Reset: b.start.Add(l.window)}
	if count >= float64(l.max) {
		return d
	}

	b.curr++
	d.Allowed = true
	d.Remaining = max(int(float64(l.max)-count-1), 0)
	return d
}

// Evict drops keys idle for at least two windows and returns how many were
// removed.
func (l *Limiter) Evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.window {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Run evicts idle keys every two windows until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.Evict(now)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429. Keys are
// client IPs as resolved by gin, which honours the engine's trusted proxies.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := l.Allow(c.ClientIP(), time.Now())

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if !d.Allowed {
			retry := max(time.Until(d.Reset), 0)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
