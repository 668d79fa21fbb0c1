package limiter

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientEntry tracks the limiter and last activity for a single client IP
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles HTTP requests per client IP
type RateLimiter struct {
	clients map[string]*clientEntry
	mutex   sync.Mutex
	rate    rate.Limit
	burst   int
	enabled bool
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a per-client rate limiter from config
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rlCfg := cfg.HTTP.Throttling.RateLimit

	rl := &RateLimiter{
		clients: make(map[string]*clientEntry),
		rate:    rate.Limit(rlCfg.MaxRequestsPerSecond),
		burst:   rlCfg.BurstSize,
		enabled: rlCfg.Enabled,
		done:    make(chan struct{}),
	}
	if rl.burst < 1 {
		rl.burst = 1
	}

	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request from the given client should proceed
func (rl *RateLimiter) Allow(clientIP string) bool {
	if !rl.enabled || clientIP == "" {
		return true
	}

	rl.mutex.Lock()
	entry, exists := rl.clients[clientIP]
	if !exists {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rl.rate, rl.burst),
		}
		rl.clients[clientIP] = entry
	}
	entry.lastSeen = time.Now()
	rl.mutex.Unlock()

	allowed := entry.limiter.Allow()
	if !allowed {
		logger.Debug("Rate limit exceeded",
			zap.String("client_ip", clientIP),
			zap.Float64("rate", float64(rl.rate)),
			zap.Int("burst", rl.burst))
	}
	return allowed
}

// Middleware rejects over-limit requests with 429 before they reach the handler
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client address from a request, honoring proxies
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First address is the original client
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// cleanupLoop evicts clients that have been idle for an hour
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Cleanup removes expired client entries
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for ip, entry := range rl.clients {
		if now.Sub(entry.lastSeen) > time.Hour {
			delete(rl.clients, ip)
		}
	}
}

// Stop terminates the background cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		close(rl.done)
	})
}

// String returns a string representation of the rate limiter state
func (rl *RateLimiter) String() string {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	var result string
	for ip, entry := range rl.clients {
		result += fmt.Sprintf("Client: %s\n", ip)
		result += fmt.Sprintf("  Tokens: %.1f\n", entry.limiter.Tokens())
		result += fmt.Sprintf("  Last Seen: %v\n", entry.lastSeen)
		result += "---\n"
	}
	return result
}
