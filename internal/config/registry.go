package config

// RegistryConfig holds settings for the profile registry source.
type RegistryConfig struct {
	// Path to the registry document (YAML or JSON).
	Path string `mapstructure:"PATH" json:"path" validate:"required"`

	// ProbeOnLoad checks every profile's server reachability right after
	// the registry is loaded.
	ProbeOnLoad bool `mapstructure:"PROBE_ON_LOAD" json:"probe_on_load"`

	// ProbeWorkers bounds how many servers are dialed concurrently.
	ProbeWorkers   int `mapstructure:"PROBE_WORKERS"    json:"probe_workers"    validate:"required,min=1,max=64"`
	ProbeQueueSize int `mapstructure:"PROBE_QUEUE_SIZE" json:"probe_queue_size" validate:"required,min=1,max=1024"`

	// StrictSecrets makes an unresolvable password_env a startup failure.
	StrictSecrets bool `mapstructure:"STRICT_SECRETS" json:"strict_secrets"`
}
