package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	clock := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")

	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled after a second")
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterAddressesAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	clock := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.9")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many requests")
}
