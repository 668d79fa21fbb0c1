package application

import (
	"context"
	"fmt"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/api"
	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/constants"
	"github.com/codecurrent-sandbox/pgregistry/internal/domain"
	"github.com/codecurrent-sandbox/pgregistry/internal/limiter"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/storage"
	"github.com/codecurrent-sandbox/pgregistry/internal/workers"
	"go.uber.org/zap"
)

// Node ties together the components needed to serve the profile registry.
type Node struct {
	ctx    context.Context
	cancel context.CancelFunc

	config     *config.Config
	registry   *registry.Registry
	prober     *storage.Prober
	WorkerPool *workers.WorkerPool

	rateLimiter *limiter.RateLimiter
	startTime   time.Time
}

// Ensure Node implements domain.AppInterface
var _ domain.AppInterface = (*Node)(nil)

// New creates and configures a Node using the NodeBuilder pattern.
func New(ctx context.Context, cfg *config.Config) (*Node, error) {
	// 1) Construct a NodeBuilder
	builder := NewNodeBuilder(ctx, cfg)

	// 2) Load and validate the registry first; bad configuration fails here
	if err := builder.BuildRegistry(); err != nil {
		return nil, err
	}

	// 3) Build worker pool
	builder.BuildWorkers()

	// 4) Build prober
	builder.BuildProber()

	// 5) Build rate limiter
	builder.BuildRateLimiter()

	// 6) Finally assemble the Node
	node, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build node: %w", err)
	}
	return node, nil
}

// Start begins the main loops for the node: the registry API server and,
// when enabled, an initial reachability sweep of every profile.
func (n *Node) Start(ctx context.Context) error {
	if n.prober != nil {
		go func() {
			results := n.prober.ProbeAll(n.ctx, n.registry, n.WorkerPool)
			reachable, unreachable := n.prober.Summary()
			logger.Info("Initial reachability sweep complete",
				zap.Int("probed", len(results)),
				zap.Int("reachable", reachable),
				zap.Int("unreachable", unreachable))
		}()
	}

	if n.config.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(n.ctx, n.config.Metrics.Port); err != nil {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	go func() {
		addr := n.config.HTTP.ListenAddr
		server := api.NewServer(n.config, n, n.rateLimiter)
		if err := server.ListenAndServe(n.ctx, addr); err != nil {
			// Don't log "Server closed" as an error - it's expected during graceful shutdown
			if err.Error() != "http: Server closed" {
				logger.Error("Server error", zap.Error(err))
			} else {
				logger.Debug("Server closed gracefully", zap.Error(err))
			}
		}
	}()

	logger.Debug("Node started with registry API server")
	return nil
}

// Shutdown gracefully shuts down the node.
func (n *Node) Shutdown() {
	logger.Info("Initiating graceful shutdown...")
	shutdownTimeout := constants.ShutdownTimeout

	// Create a timeout context for shutdown operations
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrors []error

	// Step 1: Stop the rate limiter's background cleanup
	if n.rateLimiter != nil {
		logger.Debug("Stopping rate limiter...")
		n.rateLimiter.Stop()
		logger.Debug("✅ Rate limiter stopped")
	}

	// Step 2: Wait for in-flight probe jobs to finish with timeout
	logger.Debug("Waiting for worker pool to finish...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.WorkerPool.Wait()
	}()

	select {
	case <-done:
		logger.Debug("✅ Worker pool finished")
	case <-shutdownCtx.Done():
		shutdownErrors = append(shutdownErrors, fmt.Errorf("worker pool shutdown timed out after %v", shutdownTimeout))
		logger.Warn("Worker pool shutdown timed out", zap.Duration("timeout", shutdownTimeout))
	}

	// Step 3: Cancel the node context; this also shuts the API server down
	if n.cancel != nil {
		logger.Debug("Canceling node context...")
		n.cancel()
		logger.Debug("✅ Node context canceled")
	}

	// Report final shutdown status
	if len(shutdownErrors) > 0 {
		logger.Warn("Node shutdown completed with errors",
			zap.Int("error_count", len(shutdownErrors)),
			zap.Errors("errors", shutdownErrors),
			zap.Duration("shutdown_timeout", shutdownTimeout))
	} else {
		logger.Info("✅ Node shutdown completed successfully",
			zap.Duration("shutdown_timeout", shutdownTimeout))
	}
}

// Registry returns the node's loaded profile registry.
func (n *Node) Registry() domain.ProfileProvider {
	return n.registry
}

// Prober returns the node's reachability prober, or nil when probing is disabled.
func (n *Node) Prober() domain.ReachabilityChecker {
	if n.prober == nil {
		return nil
	}
	return n.prober
}

// GetStartTime returns when the node was started (for health checks)
func (n *Node) GetStartTime() time.Time {
	return n.startTime
}
