package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/constants"
	"github.com/codecurrent-sandbox/pgregistry/internal/domain"
	"github.com/codecurrent-sandbox/pgregistry/internal/errors"
	"github.com/codecurrent-sandbox/pgregistry/internal/health"
	"github.com/codecurrent-sandbox/pgregistry/internal/limiter"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"github.com/codecurrent-sandbox/pgregistry/internal/web"
	"go.uber.org/zap"
)

// Server holds references to the configuration and registry logic.
type Server struct {
	cfg           *config.Config
	node          domain.AppInterface
	webHandler    *web.Handler
	healthChecker *health.HealthChecker
	rateLimiter   *limiter.RateLimiter
}

// NewServer constructs a new Server exposing the registry API.
func NewServer(cfg *config.Config, node domain.AppInterface, rl *limiter.RateLimiter) *Server {
	webHandler := web.NewHandler(cfg, logger.New("web"), node)

	var prober health.ProberInterface
	if p := node.Prober(); p != nil {
		prober = p
	}

	healthChecker := health.NewHealthChecker(
		node.Registry(),
		prober,
		cfg,
		logger.New("health"),
		config.Version,
	)

	return &Server{
		cfg:           cfg,
		node:          node,
		webHandler:    webHandler,
		healthChecker: healthChecker,
		rateLimiter:   rl,
	}
}

// ListenAndServe starts the registry HTTP API and blocks until ctx is canceled
// or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	validation := web.APIInputValidation()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		metrics.IncrementHTTPRequests()
		start := time.Now()
		defer func() {
			metrics.HTTPRequestDuration.Observe(time.Since(start).Seconds())
		}()

		switch {
		case r.URL.Path == "/servers":
			web.ValidationMiddleware(validation)(http.HandlerFunc(s.webHandler.HandleServers)).ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/servers/"):
			web.ValidationMiddleware(validation)(http.HandlerFunc(s.webHandler.HandleServerByID)).ServeHTTP(w, r)
		case r.URL.Path == "/probes":
			web.ValidationMiddleware(validation)(http.HandlerFunc(s.webHandler.HandleProbes)).ServeHTTP(w, r)
		case r.URL.Path == "/api/stats":
			web.ValidationMiddleware(validation)(http.HandlerFunc(s.webHandler.HandleStatsAPI)).ServeHTTP(w, r)
		case r.URL.Path == "/health":
			// No validation needed for basic health checks
			s.healthChecker.HandleHealth(w, r)
		default:
			// Log invalid requests for security monitoring
			logger.Warn("Invalid request path",
				zap.String("path", r.URL.Path),
				zap.String("client_ip", r.RemoteAddr),
				zap.String("user_agent", r.Header.Get("User-Agent")))
			http.NotFound(w, r)
		}
	})

	// Recovery outermost, then per-client throttling
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(handler)
	handler = errors.RecoveryMiddleware(handler)

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown when context is canceled
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down registry API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("Registry API server listening", zap.String("address", addr))
	return httpSrv.ListenAndServe()
}
