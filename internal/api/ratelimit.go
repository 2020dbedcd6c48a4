package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-IP request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // idle buckets older than twice this are dropped
}

// DefaultRateLimitConfig is generous enough for a busy game client
// polling the relay, tight enough to blunt floods.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

// clientBucket is one IP's token bucket plus the last time it was used,
// so the reaper can drop buckets for clients that went away.
type clientBucket struct {
	lim     *rate.Limiter
	touched time.Time
}

// IPRateLimiter gives each client IP its own token bucket and reaps
// idle ones in the background. Stop the limiter when the server shuts
// down or the reaper goroutine leaks.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	cfg     RateLimitConfig

	allowed  atomic.Uint64
	rejected atomic.Uint64

	done     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter builds a limiter and starts its reaper.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		buckets: make(map[string]*clientBucket),
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	go rl.reap()
	return rl
}

// Stop shuts the reaper down. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Allow reports whether a request from ip fits its budget.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	b, found := rl.buckets[ip]
	if !found {
		b = &clientBucket{lim: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.buckets[ip] = b
	}
	b.touched = time.Now()
	rl.mu.Unlock()

	if b.lim.Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

func (rl *IPRateLimiter) reap() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * rl.cfg.CleanupInterval)
			rl.mu.Lock()
			for ip, b := range rl.buckets {
				if b.touched.Before(cutoff) {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects over-budget requests with 429 before they reach
// the router.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns cumulative allow/reject counts.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowed.Load(),
		"rejected": rl.rejected.Load(),
	}
}

// GetClientIP resolves the client address, trusting proxy headers when
// present. X-Forwarded-For wins, then X-Real-IP, then the socket peer.
// Header values are spoofable unless a trusted proxy sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WebSocketRateLimiter caps concurrent subscription sockets per IP.
// Unlike the request limiter this counts live connections, not events,
// so slots must be released when a socket closes.
type WebSocketRateLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	maxPerIP int

	rejected atomic.Uint64
}

// NewWebSocketRateLimiter caps each IP at maxPerIP live sockets.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{open: make(map[string]int), maxPerIP: maxPerIP}
}

// Allow reserves a connection slot for ip, or reports false at the cap.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	if wrl.open[ip] >= wrl.maxPerIP {
		wrl.rejected.Add(1)
		return false
	}
	wrl.open[ip]++
	return true
}

// Release gives an ip's slot back once its socket closes.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	if n := wrl.open[ip]; n > 1 {
		wrl.open[ip] = n - 1
	} else {
		delete(wrl.open, ip)
	}
}

// GetConnectionCount is the number of live sockets charged to ip.
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	return wrl.open[ip]
}

// GetStats returns the cumulative rejection count.
func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{"rejected": wrl.rejected.Load()}
}

// AllowedOrigins lists origins that may open subscriptions. Game
// clients run locally or in desktop shells, so localhost on any port
// is accepted; anything else must arrive via ALLOWED_ORIGINS.
var AllowedOrigins = []string{
	"http://localhost",
	"http://127.0.0.1",
}

// IsAllowedOrigin reports whether origin may open a subscription.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// AddAllowedOrigins appends extra origins, typically parsed from
// ALLOWED_ORIGINS at startup. Blank entries are skipped.
func AddAllowedOrigins(origins []string) {
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			AllowedOrigins = append(AllowedOrigins, o)
		}
	}
}
