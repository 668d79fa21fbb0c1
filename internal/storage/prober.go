package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/constants"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/workers"
	"github.com/jackc/pgx/v5/pgxpool"

	"go.uber.org/zap"
)

// ProbeState represents the current reachability state of a profile's server
type ProbeState int

const (
	ProbeStateInitial ProbeState = iota
	ProbeStateConnecting
	ProbeStateReachable
	ProbeStateUnreachable
)

// String implements fmt.Stringer
func (s ProbeState) String() string {
	switch s {
	case ProbeStateConnecting:
		return "connecting"
	case ProbeStateReachable:
		return "reachable"
	case ProbeStateUnreachable:
		return "unreachable"
	default:
		return "initial"
	}
}

// ProbeResult records the outcome of one reachability check. The HTTP
// surface serializes it through models.ProbeReport, never directly.
type ProbeResult struct {
	ProfileID     string
	Name          string
	Address       string
	State         ProbeState
	Status        string
	ServerVersion string
	Database      string
	Latency       time.Duration
	Attempts      int
	Error         string
	CheckedAt     time.Time
}

// Prober checks whether the servers behind connection profiles are reachable.
// The registry itself stays pure data; all dialing happens here, with each
// profile's own ssl_mode and connect_timeout honored.
type Prober struct {
	log *zap.Logger

	mu      sync.RWMutex
	results map[string]ProbeResult
}

// NewProber creates a prober with no recorded results.
func NewProber(log *zap.Logger) *Prober {
	if log == nil {
		log = logger.New("prober")
	}
	return &Prober{
		log:     log,
		results: make(map[string]ProbeResult),
	}
}

// Probe dials the profile's maintenance database, retrying with exponential
// backoff, and records the outcome.
func (pr *Prober) Probe(ctx context.Context, p registry.Profile) ProbeResult {
	result := ProbeResult{
		ProfileID: p.ID,
		Name:      p.Name,
		Address:   p.Address(),
		State:     ProbeStateConnecting,
	}

	start := time.Now()
	backoff := time.Duration(constants.ProbeRetryDelay) * time.Second
	var lastErr error

	for i := 0; i < constants.MaxProbeRetries; i++ {
		result.Attempts++

		version, database, err := pr.dial(ctx, p)
		if err == nil {
			result.State = ProbeStateReachable
			result.Status = result.State.String()
			result.ServerVersion = version
			result.Database = database
			result.Latency = time.Since(start)
			result.CheckedAt = time.Now()

			pr.log.Info("✅ Server reachable",
				zap.String("profile", p.ID),
				zap.String("address", result.Address),
				zap.Int("attempts", result.Attempts),
				zap.Duration("latency", result.Latency))
			metrics.ProbeDuration.Observe(time.Since(start).Seconds())
			metrics.IncrementProbeResult(true)

			pr.store(result)
			return result
		}
		lastErr = err

		// The last attempt reports straight away, no point backing off
		if i == constants.MaxProbeRetries-1 {
			break
		}

		pr.log.Warn("Failed to reach server, retrying...",
			zap.String("profile", p.ID),
			zap.String("address", result.Address),
			zap.Error(err),
			zap.Int("attempt", result.Attempts),
			zap.Duration("backoff", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			lastErr = ctx.Err()
			i = constants.MaxProbeRetries // Stop retrying
		}
		backoff *= 2 // Exponential backoff (1s, 2s, 4s...)
	}

	result.State = ProbeStateUnreachable
	result.Status = result.State.String()
	result.Latency = time.Since(start)
	result.CheckedAt = time.Now()
	result.Error = fmt.Sprintf("unreachable after %d attempts: %v", result.Attempts, lastErr)

	metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	metrics.IncrementProbeResult(false)
	metrics.ErrorsCount.WithLabelValues("probe").Inc()

	pr.store(result)
	return result
}

// dial opens a short-lived pool against the profile's maintenance database
// and fetches the server version.
func (pr *Prober) dial(ctx context.Context, p registry.Profile) (version, database string, err error) {
	cfg, err := pgxpool.ParseConfig(p.ConnString())
	if err != nil {
		return "", "", fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = constants.ProbePoolMaxConns
	cfg.MinConns = constants.ProbePoolMinConns
	cfg.MaxConnLifetime = constants.ProbeConnMaxLifetime
	cfg.MaxConnIdleTime = constants.ProbeConnMaxIdleTime
	if p.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = time.Duration(p.ConnectTimeout) * time.Second
	} else {
		cfg.ConnConfig.ConnectTimeout = constants.DefaultConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return "", "", err
	}
	defer pool.Close()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnConfig.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(dialCtx); err != nil {
		return "", "", err
	}

	row := pool.QueryRow(dialCtx, `SELECT version(), current_database()`)
	if err := row.Scan(&version, &database); err != nil {
		return "", "", fmt.Errorf("server reached but version query failed: %w", err)
	}
	return version, database, nil
}

// ProbeAll checks every profile in the registry concurrently through the
// worker pool and returns results in id order.
func (pr *Prober) ProbeAll(ctx context.Context, reg *registry.Registry, pool *workers.WorkerPool) []ProbeResult {
	profiles := reg.Profiles()

	var wg sync.WaitGroup
	for _, p := range profiles {
		p := p
		wg.Add(1)
		job := func() {
			defer wg.Done()
			pr.Probe(ctx, p)
		}
		if !pool.AddJob(job) {
			// Queue full, run inline rather than skip the profile
			job()
		}
	}
	wg.Wait()

	results := make([]ProbeResult, 0, len(profiles))
	pr.mu.RLock()
	for _, p := range profiles {
		if r, ok := pr.results[p.ID]; ok {
			results = append(results, r)
		}
	}
	pr.mu.RUnlock()
	return results
}

// Results returns a snapshot of the last recorded probe results in no
// particular order.
func (pr *Prober) Results() []ProbeResult {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	out := make([]ProbeResult, 0, len(pr.results))
	for _, r := range pr.results {
		out = append(out, r)
	}
	return out
}

// Summary returns how many probed servers are currently reachable.
func (pr *Prober) Summary() (reachable, unreachable int) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	for _, r := range pr.results {
		switch r.State {
		case ProbeStateReachable:
			reachable++
		case ProbeStateUnreachable:
			unreachable++
		}
	}
	return reachable, unreachable
}

func (pr *Prober) store(r ProbeResult) {
	pr.mu.Lock()
	pr.results[r.ProfileID] = r
	pr.mu.Unlock()
}
