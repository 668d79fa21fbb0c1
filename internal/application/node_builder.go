package application

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/errors"
	"github.com/codecurrent-sandbox/pgregistry/internal/limiter"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/storage"
	"github.com/codecurrent-sandbox/pgregistry/internal/workers"

	"go.uber.org/zap"
)

// NodeBuilder is used to incrementally construct a Node instance.
type NodeBuilder struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config

	registry    *registry.Registry
	prober      *storage.Prober
	workerPool  *workers.WorkerPool
	rateLimiter *limiter.RateLimiter
}

// NewNodeBuilder creates a new NodeBuilder with its own cancelable context.
func NewNodeBuilder(ctx context.Context, cfg *config.Config) *NodeBuilder {
	c, cancel := context.WithCancel(ctx)
	return &NodeBuilder{
		ctx:    c,
		cancel: cancel,
		config: cfg,
	}
}

// BuildRegistry loads and validates the connection profile registry.
// Any schema, range, or duplicate-key violation aborts startup here.
func (b *NodeBuilder) BuildRegistry() error {
	logger.Info("Loading connection profile registry",
		zap.String("path", b.config.Registry.Path))

	opts := []registry.Option{registry.WithLogger(logger.New("registry"))}
	if b.config.Registry.StrictSecrets {
		opts = append(opts, registry.WithStrictSecrets())
	}

	reg, err := registry.Load(b.config.Registry.Path, opts...)
	if err != nil {
		b.cancel()
		return fmt.Errorf("failed to load registry: %w", err)
	}
	b.registry = reg

	logger.Info("Registry loaded",
		zap.Int("profiles", reg.Len()),
		zap.Strings("ids", reg.IDs()))
	return nil
}

// BuildWorkers initializes the probe worker pool.
func (b *NodeBuilder) BuildWorkers() {
	workerCount := b.config.Registry.ProbeWorkers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	queueSize := b.config.Registry.ProbeQueueSize
	if queueSize <= 0 {
		queueSize = workerCount * 16
	}
	b.workerPool = workers.NewWorkerPool(workerCount, queueSize)
}

// BuildProber sets up the reachability prober when probing is enabled.
func (b *NodeBuilder) BuildProber() {
	if !b.config.Registry.ProbeOnLoad {
		logger.Debug("Reachability probing disabled")
		return
	}
	b.prober = storage.NewProber(logger.New("prober"))
}

// BuildRateLimiter sets up the per-client HTTP rate limiter.
func (b *NodeBuilder) BuildRateLimiter() {
	b.rateLimiter = limiter.NewRateLimiter(b.config)
}

// Build finalizes the node construction.
func (b *NodeBuilder) Build() (*Node, error) {
	// Initialize error handling system early
	errors.InitErrorHandling()
	logger.Info("Error handling system initialized", zap.String("component", "node_builder"))

	// Validate required components
	if b.registry == nil {
		return nil, fmt.Errorf("registry must be built before calling Build()")
	}
	if b.workerPool == nil {
		return nil, fmt.Errorf("worker pool must be built before calling Build()")
	}
	if b.rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter must be built before calling Build()")
	}

	node := &Node{
		ctx:         b.ctx,
		cancel:      b.cancel,
		config:      b.config,
		registry:    b.registry,
		prober:      b.prober,
		WorkerPool:  b.workerPool,
		rateLimiter: b.rateLimiter,
		startTime:   time.Now(),
	}

	logger.Debug("Node initialized successfully via builder")
	return node, nil
}
