package config

import "time"

// HTTPConfig holds settings for the registry's HTTP API server.
type HTTPConfig struct {
	ListenAddr   string           `mapstructure:"LISTEN_ADDR"   json:"listen_addr"   validate:"required,listenaddr"`
	ReadTimeout  time.Duration    `mapstructure:"READ_TIMEOUT"  json:"read_timeout"  validate:"required,timeout_duration"`
	WriteTimeout time.Duration    `mapstructure:"WRITE_TIMEOUT" json:"write_timeout" validate:"required,timeout_duration"`
	IdleTimeout  time.Duration    `mapstructure:"IDLE_TIMEOUT"  json:"idle_timeout"  validate:"required,timeout_duration"`
	Throttling   ThrottlingConfig `mapstructure:"THROTTLING"    json:"throttling"    validate:"required"`
}

// ThrottlingConfig holds rate limiting settings.
type ThrottlingConfig struct {
	RateLimit      RateLimitConfig `mapstructure:"RATE_LIMIT"      json:"rate_limit"`
	MaxConnections int             `mapstructure:"MAX_CONNECTIONS" json:"max_connections" validate:"required,min=1,max=100000"`
}

// RateLimitConfig holds per-client request rate settings.
type RateLimitConfig struct {
	Enabled              bool `mapstructure:"ENABLED"                 json:"enabled"`
	MaxRequestsPerSecond int  `mapstructure:"MAX_REQUESTS_PER_SECOND" json:"max_requests_per_second" validate:"min=0,max=50000"`
	BurstSize            int  `mapstructure:"BURST_SIZE"              json:"burst_size"              validate:"min=0,max=1000"`
}
