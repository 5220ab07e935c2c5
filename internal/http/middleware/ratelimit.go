package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// RateLimiter throttles callers per client address with a token bucket. The
// limit covers the whole surface; auth and booking endpoints are the ones
// that attract bursts.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	refill   float64 // tokens per second
	burst    float64
	now      func() time.Time
}

type visitor struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows rps sustained requests per second per address, with
// bursts up to burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		refill:   rps,
		burst:    float64(burst),
		now:      time.Now,
	}
	go rl.evictStale()
	return rl
}

// Allow spends one token for addr, refilling for the time elapsed since the
// address was last seen.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[addr]
	if !ok {
		rl.visitors[addr] = &visitor{tokens: rl.burst - 1, seen: now}
		return true
	}

	v.tokens += now.Sub(v.seen).Seconds() * rl.refill
	if v.tokens > rl.burst {
		v.tokens = rl.burst
	}
	v.seen = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

// evictStale drops addresses idle for 10 minutes so the visitor map does not
// grow without bound.
func (rl *RateLimiter) evictStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := rl.now().Add(-10 * time.Minute)
		for addr, v := range rl.visitors {
			if v.seen.Before(cutoff) {
				delete(rl.visitors, addr)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects callers over the configured rate with 429 and the
// standard error envelope.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := r.RemoteAddr
			// chi's RealIP middleware runs first and sets this header.
			if ip := r.Header.Get("X-Real-Ip"); ip != "" {
				addr = ip
			}
			if !limiter.Allow(addr) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
