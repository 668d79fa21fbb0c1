package domain

import (
	"context"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/storage"
)

// ProfileProvider exposes read access to the loaded connection profiles.
// This abstraction is used by both the web and application packages.
type ProfileProvider interface {
	// Lookup by id
	Get(id string) (registry.Profile, bool)

	// Enumeration, in stable id order
	IDs() []string
	Profiles() []registry.Profile
	Len() int
}

// ReachabilityChecker reports on server reachability probes
type ReachabilityChecker interface {
	Probe(ctx context.Context, p registry.Profile) storage.ProbeResult
	Results() []storage.ProbeResult
	Summary() (reachable, unreachable int)
}

// AppInterface defines the core capabilities the HTTP layer needs.
type AppInterface interface {
	// Registry access
	Registry() ProfileProvider

	// Configuration access
	Config() *config.Config

	// Prober access, nil when probing is disabled
	Prober() ReachabilityChecker

	GetStartTime() time.Time // For health checks
}
