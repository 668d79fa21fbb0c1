package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Version is set at runtime from build information
var Version = "dev" // This will be set by the main package during initialization

var validate = validator.New()

// Config holds every sub‑config.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"     validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging"  validate:"required"`
	Registry RegistryConfig `mapstructure:"registry" validate:"required"`
}

func init() {
	registerCustomValidators()

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		performCrossFieldValidation(sl, cfg)
	}, Config{})
}

// registerCustomValidators registers custom validation functions
func registerCustomValidators() {
	// Validate listen address format (":port" or "host:port")
	if err := validate.RegisterValidation("listenaddr", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		if addr == "" {
			return false
		}

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return false
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return false
		}
		// Host may be empty (all interfaces), an IP, or a hostname
		if host != "" && net.ParseIP(host) == nil {
			for _, label := range strings.Split(host, ".") {
				if label == "" {
					return false
				}
			}
		}
		return true
	}); err != nil {
		logger.Error("Failed to register listenaddr validator", zap.Error(err))
	}

	// Validate timeout duration (reasonable range)
	if err := validate.RegisterValidation("timeout_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Interface().(time.Duration)
		// Should be between 1 second and 1 hour
		return duration >= time.Second && duration <= time.Hour
	}); err != nil {
		logger.Error("Failed to register timeout_duration validator", zap.Error(err))
	}

	// Validate log level
	if err := validate.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		validLevels := []string{"debug", "info", "warn", "error", "fatal"}
		for _, valid := range validLevels {
			if level == valid {
				return true
			}
		}
		return false
	}); err != nil {
		logger.Error("Failed to register log_level validator", zap.Error(err))
	}

	// Validate log format
	if err := validate.RegisterValidation("log_format", func(fl validator.FieldLevel) bool {
		format := fl.Field().String()
		return format == "console" || format == "json"
	}); err != nil {
		logger.Error("Failed to register log_format validator", zap.Error(err))
	}
}

// performCrossFieldValidation performs validation across multiple fields
func performCrossFieldValidation(sl validator.StructLevel, cfg Config) {
	// The metrics endpoint must not collide with the API listener
	if cfg.Metrics.Enabled {
		if _, portStr, err := net.SplitHostPort(cfg.HTTP.ListenAddr); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil && port == cfg.Metrics.Port {
				sl.ReportError(cfg.Metrics.Port, "Port", "Port", "port_conflict", "")
			}
		}
	}

	// A burst smaller than the sustained rate rejects steady traffic the
	// limiter is configured to allow
	rl := cfg.HTTP.Throttling.RateLimit
	if rl.Enabled && rl.BurstSize > 0 && rl.BurstSize < rl.MaxRequestsPerSecond {
		sl.ReportError(rl.BurstSize, "BurstSize", "BurstSize", "burst_below_rate", "")
	}
}

// SetVersion sets the version from build information
func SetVersion(v string) {
	Version = v
}

// Load merges defaults → file (optional) → env vars, validates, and returns cfg.
func Load(path string, log *zap.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PGREGISTRY") // PGREGISTRY_HTTP_LISTEN_ADDR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 1. defaults.yaml (embedded)
	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	// 2. optional user file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		// Check for config.yaml in current directory if no path specified
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err != nil {
			// Config file not found is okay, we'll use defaults
			if log != nil {
				log.Info("No config.yaml found, using defaults")
			}
		} else if log != nil {
			log.Info("Loaded config.yaml from current directory")
		}
	}

	// 3. env vars already merged by AutomaticEnv()

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}

	if err := initializeLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if log != nil {
		log.Info("Configuration loaded",
			zap.String("version", Version),
			zap.String("registry_path", cfg.Registry.Path))
	}
	return &cfg, nil
}

// initializeLogger initializes the logger using the LoggingConfig
func initializeLogger(loggingConfig LoggingConfig) error {
	return logger.Init(
		logger.WithLevel(loggingConfig.Level),
		logger.WithFormat(loggingConfig.Format),
		logger.WithFile(loggingConfig.FilePath),
		logger.WithVersion(Version),
		logger.WithComponent("pgregistry"),
		logger.WithRotation(loggingConfig.MaxSize, loggingConfig.MaxBackups, loggingConfig.MaxAge),
	)
}

// formatValidationError converts validator errors into user-friendly messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string

		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}

		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}

	return fmt.Errorf("configuration validation failed: %w", err)
}

// getFieldErrorMessage returns a user-friendly error message for a field validation error
func getFieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	value := fe.Value()
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required but not provided", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, param, value)
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, param, value)
	case "listenaddr":
		return fmt.Sprintf("%s must be a listen address in format ':port' or 'host:port' (got: %v)", field, value)
	case "timeout_duration":
		return fmt.Sprintf("%s must be between 1 second and 1 hour (got: %v)", field, value)
	case "log_level":
		return fmt.Sprintf("%s must be one of: debug, info, warn, error, fatal (got: %v)", field, value)
	case "log_format":
		return fmt.Sprintf("%s must be either 'console' or 'json' (got: %v)", field, value)
	case "port_conflict":
		return "metrics Port conflicts with the HTTP listen port, they must be different"
	case "burst_below_rate":
		return fmt.Sprintf("%s must be at least the sustained request rate (got: %v)", field, value)
	default:
		return fmt.Sprintf("%s validation failed: %s (got: %v)", field, tag, value)
	}
}
