package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures RateLimiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// Visitors idle for longer than TTL are forgotten. Zero means 3 minutes.
	TTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket
// (golang.org/x/time/rate) for each address.
//
// TOKEN BUCKET IN ONE PARAGRAPH:
// Each client has a bucket holding up to Burst tokens, refilled at
// RequestsPerSecond. Every request takes one token; an empty bucket means 429.
// Short bursts are fine, sustained hammering is not.
//
// Idle visitors are swept lazily, at most once per TTL, on the request path,
// so the limiter owns no goroutine.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RateLimiter{
		cfg:       cfg,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiterFor(ip).Allow()
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.cfg.TTL {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.cfg.TTL {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Len returns the number of tracked visitors.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects over-limit requests with 429 and a JSON error body in
// the same shape the API handlers use.
//
// The client address comes from r.RemoteAddr. Put chi's RealIP in front of
// this middleware when running behind a proxy.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. RealIP may already have
// replaced RemoteAddr with a bare address, in which case it is used as is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
