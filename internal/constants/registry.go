package constants

import "time"

// Default tool metadata constants
const (
	DefaultServiceDescription = "Connection profile registry for PostgreSQL administration tooling. Validates declarative server profiles at load time and serves them for bulk import."
	DefaultServiceSoftware    = "pgregistry"
	DefaultServiceVersion     = "1.0.0"
)

// RecognizedSSLModes lists the TLS negotiation policies accepted in a profile,
// ordered from least to most strict.
var RecognizedSSLModes = []string{
	"disable",
	"allow",
	"prefer",
	"require",
	"verify-ca",
	"verify-full",
}

// Profile field bounds
const (
	MinPort            = 1     // Lowest valid TCP port
	MaxPort            = 65535 // Highest valid TCP port
	DefaultPostgresPort = 5432 // Default PostgreSQL listen port

	MaxProfileNameLen = 128 // Display name length limit
	MaxGroupNameLen   = 128 // Group label length limit
	MaxHostLen        = 253 // RFC 1035 hostname length limit
)

// Probe constants
const (
	MaxProbeRetries  = 3 // Maximum connection attempts per profile
	ProbeRetryDelay  = 1 // Probe retry delay in seconds

	// Probe pool sizing. A probe needs exactly one connection per target;
	// the pool exists so repeated probes reuse the dial.
	ProbePoolMaxConns = 2
	ProbePoolMinConns = 0
)

// Duration constants
const (
	ProbeConnMaxLifetime  = 5 * time.Minute  // Probe connection max lifetime
	ProbeConnMaxIdleTime  = 1 * time.Minute  // Probe connection max idle time
	DefaultConnectTimeout = 10 * time.Second // Fallback when a profile omits connect_timeout
)

// HTTP server constants
const (
	HTTPReadTimeout  = 15 * time.Second
	HTTPWriteTimeout = 15 * time.Second
	HTTPIdleTimeout  = 60 * time.Second
	ShutdownTimeout  = 30 * time.Second

	HealthCheckTimeout = 5 // Health check timeout in seconds
)
