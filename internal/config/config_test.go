package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig drops a config file into a temp dir and returns its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8585", cfg.HTTP.ListenAddr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.IdleTimeout)
	assert.True(t, cfg.HTTP.Throttling.RateLimit.Enabled)
	assert.Equal(t, 50, cfg.HTTP.Throttling.RateLimit.MaxRequestsPerSecond)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 8181, cfg.Metrics.Port)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.Equal(t, "servers.yaml", cfg.Registry.Path)
	assert.False(t, cfg.Registry.ProbeOnLoad)
	assert.Equal(t, 4, cfg.Registry.ProbeWorkers)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
HTTP:
  LISTEN_ADDR: ":9090"
REGISTRY:
  PATH: /etc/pgregistry/servers.yaml
  PROBE_ON_LOAD: true
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, "/etc/pgregistry/servers.yaml", cfg.Registry.Path)
	assert.True(t, cfg.Registry.ProbeOnLoad)

	// untouched settings keep their defaults
	assert.Equal(t, 8181, cfg.Metrics.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PGREGISTRY_LOGGING_LEVEL", "debug")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidListenAddr(t *testing.T) {
	path := writeConfig(t, `
HTTP:
  LISTEN_ADDR: "not-an-address"
`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "':port' or 'host:port'")
}

func TestLoadInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
LOGGING:
  LEVEL: verbose
`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug, info, warn, error, fatal")
}

// The metrics listener may not share a port with the registry API
func TestLoadPortConflict(t *testing.T) {
	path := writeConfig(t, `
HTTP:
  LISTEN_ADDR: ":9000"
METRICS:
  PORT: 9000
`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with the HTTP listen port")
}

func TestLoadBurstBelowRate(t *testing.T) {
	path := writeConfig(t, `
HTTP:
  THROTTLING:
    RATE_LIMIT:
      MAX_REQUESTS_PER_SECOND: 100
      BURST_SIZE: 10
`)

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sustained request rate")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
