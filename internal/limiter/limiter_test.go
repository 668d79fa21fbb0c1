package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/stretchr/testify/assert"
)

func limiterConfig(enabled bool, rps, burst int) *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.Throttling.RateLimit.Enabled = enabled
	cfg.HTTP.Throttling.RateLimit.MaxRequestsPerSecond = rps
	cfg.HTTP.Throttling.RateLimit.BurstSize = burst
	return cfg
}

func TestAllowWithinBurst(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 1, 3))
	defer rl.Stop()

	// the burst is consumed, then requests are rejected
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// a different client has its own bucket
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestAllowDisabled(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(false, 1, 1))
	defer rl.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestAllowEmptyClientIP(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 1, 1))
	defer rl.Stop()

	assert.True(t, rl.Allow(""))
	assert.True(t, rl.Allow(""))
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 1, 1))
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/servers", nil)
	req.RemoteAddr = "10.0.0.1:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:40000"
	assert.Equal(t, "192.168.1.5", ClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	// the first forwarded address wins over everything else
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(req))
}

func TestCleanupKeepsActiveClients(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 10, 10))
	defer rl.Stop()

	rl.Allow("10.0.0.1")
	rl.Cleanup()

	rl.mutex.Lock()
	_, exists := rl.clients["10.0.0.1"]
	rl.mutex.Unlock()
	assert.True(t, exists)
}
