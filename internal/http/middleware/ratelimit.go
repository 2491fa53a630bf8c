package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTracked bounds the per-key limiter map before idle entries are pruned.
const maxTracked = 10000

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// keyedLimiter is a token bucket per caller: maxRequests burst, refilled
// evenly over window.
type keyedLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	window  time.Duration
	entries map[string]*limiterEntry
}

func newKeyedLimiter(maxRequests int, window time.Duration) *keyedLimiter {
	return &keyedLimiter{
		every:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
		window:  window,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *keyedLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= maxTracked {
			l.prune(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// prune drops callers idle for a full window; their bucket is full again.
func (l *keyedLimiter) prune(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.seen) > l.window {
			delete(l.entries, k)
		}
	}
}

// LocalRateLimit limits each caller to maxRequests per window inside this
// process. A non-positive limit disables it.
func LocalRateLimit(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lim := newKeyedLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if !lim.allow(rateIdentity(c)) {
			rejectRateLimited(c, name, window)
			return
		}
		RLRequests.WithLabelValues(name).Inc()
		c.Next()
	}
}

// rateIdentity keys authenticated callers by user and everyone else by IP.
func rateIdentity(c *gin.Context) string {
	if uid := c.GetString(UserIDKey); uid != "" {
		return "u:" + uid
	}
	return "ip:" + c.ClientIP()
}

func rejectRateLimited(c *gin.Context, name string, window time.Duration) {
	RLBlocked.WithLabelValues(name).Inc()
	c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "rate limit exceeded"})
}
