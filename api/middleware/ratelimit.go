package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ddevcap/fontprefs/config"
	"github.com/gin-gonic/gin"
)

// ipEntry tracks preference writes for a single IP.
type ipEntry struct {
	writes    int
	windowEnd time.Time // when the current window expires
}

// writeLimiter is an in-memory fixed-window limiter for the routes that set
// preference cookies.
type writeLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	max     int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
}

func newWriteLimiter(cfg config.Config) *writeLimiter {
	l := &writeLimiter{
		entries: make(map[string]*ipEntry),
		max:     cfg.SaveMaxPerWindow,
		window:  cfg.SaveWindow,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if l.window <= 0 {
		l.window = time.Minute
	}
	// Periodically clean up stale entries to prevent unbounded memory growth.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-l.stop:
				return
			}
		}
	}()
	return l
}

// cleanup removes entries whose window has expired.
func (l *writeLimiter) cleanup() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
		}
	}
}

// take records a write for ip. It returns false, with the time left in the
// window, once the IP has used up its writes.
func (l *writeLimiter) take(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		l.entries[ip] = &ipEntry{writes: 1, windowEnd: now.Add(l.window)}
		return true, 0
	}
	if e.writes >= l.max {
		return false, e.windowEnd.Sub(now)
	}
	e.writes++
	return true, 0
}

// SaveRateLimiter returns a middleware that caps preference writes per
// client IP, and a stop function to clean up the background goroutine on
// shutdown. SaveMaxPerWindow <= 0 disables the limit.
func SaveRateLimiter(cfg config.Config) (gin.HandlerFunc, func()) {
	limiter := newWriteLimiter(cfg)

	mw := func(c *gin.Context) {
		if limiter.max <= 0 {
			c.Next()
			return
		}
		ok, retry := limiter.take(ClientIP(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many preference updates. Please try again later.",
			})
			return
		}
		c.Next()
	}

	var once sync.Once
	stop := func() { once.Do(func() { close(limiter.stop) }) }

	return mw, stop
}

// ClientIP extracts the client IP using Gin's built-in ClientIP method,
// which honours the engine's trusted-proxy configuration and safely handles
// X-Forwarded-For chains. Falls back to RemoteAddr when no proxy is trusted.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}
