package config

// MetricsConfig holds settings for the Prometheus metrics endpoint, which
// listens on its own port separate from the registry API.
type MetricsConfig struct {
	Enabled bool `mapstructure:"ENABLED" json:"enabled"`
	Port    int  `mapstructure:"PORT"    json:"port"    validate:"required,min=1024,max=65535"`
}
