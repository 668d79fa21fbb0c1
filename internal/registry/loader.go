package registry

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"reflect"
	"regexp"
	"strings"

	apperrors "github.com/codecurrent-sandbox/pgregistry/internal/errors"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

func init() {
	registerCustomValidators()

	// Report violations against document field names, not Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// registerCustomValidators registers custom validation functions
func registerCustomValidators() {
	// Validate TLS negotiation policy
	if err := validate.RegisterValidation("sslmode", func(fl validator.FieldLevel) bool {
		return ValidSSLMode(fl.Field().String())
	}); err != nil {
		logger.Error("Failed to register sslmode validator", zap.Error(err))
	}

	// Validate hostname or IP
	if err := validate.RegisterValidation("host", func(fl validator.FieldLevel) bool {
		host := fl.Field().String()
		if host == "" {
			return false
		}

		// Check if it's an IP address
		if ip := net.ParseIP(host); ip != nil {
			return true
		}

		// Check if it's a valid hostname
		return hostnameRe.MatchString(host)
	}); err != nil {
		logger.Error("Failed to register host validator", zap.Error(err))
	}
}

// LoadError aggregates every violation found in a registry document so the
// operator sees the full report at once instead of fixing entries one by one.
type LoadError struct {
	Violations []*apperrors.AppError
}

// Error implements the error interface
func (e *LoadError) Error() string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.Message)
	}
	return fmt.Sprintf("registry validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}

type loadOptions struct {
	strictSecrets bool
	log           *zap.Logger
}

// Option adjusts loader behavior.
type Option func(*loadOptions)

// WithStrictSecrets makes an unset password_env variable a load failure
// instead of a warning.
func WithStrictSecrets() Option {
	return func(o *loadOptions) { o.strictSecrets = true }
}

// WithLogger routes loader diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *loadOptions) { o.log = l }
}

// Load reads, parses and validates the registry document at path. The
// document is YAML or JSON; every violation is collected and returned in a
// single *LoadError so no invalid registry is ever partially accepted.
func Load(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RegistryLoads.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return Parse(data, opts...)
}

// Parse validates a registry document held in memory. See Load.
func Parse(data []byte, opts ...Option) (*Registry, error) {
	o := &loadOptions{log: logger.New("registry")}
	for _, apply := range opts {
		apply(o)
	}

	reg, err := parse(data, o)
	if err != nil {
		metrics.RegistryLoads.WithLabelValues("failure").Inc()
		if le, ok := err.(*LoadError); ok {
			for _, v := range le.Violations {
				metrics.ValidationFailures.WithLabelValues(apperrors.MetricKind(v.Code)).Inc()
			}
		}
		return nil, err
	}

	metrics.RegistryLoads.WithLabelValues("success").Inc()
	metrics.SetProfilesLoaded(int64(reg.Len()))
	o.log.Info("registry loaded",
		zap.Int("profiles", reg.Len()),
		zap.Strings("ids", reg.IDs()))
	return reg, nil
}

func parse(data []byte, o *loadOptions) (*Registry, error) {
	// Pass 1: scan the raw document for duplicate profile ids. The strict
	// decoder would reject them too, but with a parser error that doesn't
	// name the offending key the way operators need.
	if dupes := findDuplicateIDs(data); len(dupes) > 0 {
		le := &LoadError{}
		for _, id := range dupes {
			le.Violations = append(le.Violations, apperrors.DuplicateKeyError(id))
		}
		return nil, le
	}

	// Pass 2: strict decode. Unknown fields are schema violations.
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Violations: []*apperrors.AppError{
			apperrors.SchemaViolationError("document", "servers", fmt.Sprintf("could not be decoded: %v", err)),
		}}
	}

	if len(doc.Servers) == 0 {
		o.log.Warn("registry document contains no profiles")
		return newRegistry(map[string]Profile{}), nil
	}

	le := &LoadError{}
	profiles := make(map[string]Profile, len(doc.Servers))

	for id, p := range doc.Servers {
		if strings.TrimSpace(id) == "" {
			le.Violations = append(le.Violations,
				apperrors.SchemaViolationError(id, "id", "must not be empty"))
			continue
		}
		p.ID = id

		if err := validate.Struct(p); err != nil {
			if fieldErrors, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fieldErrors {
					le.Violations = append(le.Violations, fieldViolation(id, fe))
				}
			} else {
				le.Violations = append(le.Violations,
					apperrors.SchemaViolationError(id, "(struct)", fmt.Sprintf("failed validation: %v", err)))
			}
			continue
		}

		if v := checkSecret(&p, o); v != nil {
			le.Violations = append(le.Violations, v)
			continue
		}

		profiles[id] = p
	}

	if len(le.Violations) > 0 {
		return nil, le
	}
	return newRegistry(profiles), nil
}

// findDuplicateIDs walks the raw yaml tree and returns every profile id that
// appears more than once under the servers mapping.
func findDuplicateIDs(data []byte) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return nil // the strict decoder will report the parse failure
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	var servers *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "servers" {
			servers = doc.Content[i+1]
			break
		}
	}
	if servers == nil || servers.Kind != yaml.MappingNode {
		return nil
	}

	seen := make(map[string]bool)
	var dupes []string
	for i := 0; i+1 < len(servers.Content); i += 2 {
		id := servers.Content[i].Value
		if seen[id] {
			dupes = append(dupes, id)
			continue
		}
		seen[id] = true
	}
	return dupes
}

// fieldViolation converts a validator field error into a registry error
// kind: out-of-bounds numerics are range violations, everything else is a
// schema violation.
func fieldViolation(profileID string, fe validator.FieldError) *apperrors.AppError {
	field := fe.Field()
	value := fe.Value()
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		// Zero trips the required tag on numeric fields; that is an
		// out-of-bounds value, not a missing one
		switch fe.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			bounds := "greater than zero"
			if field == "port" {
				bounds = "between 1 and 65535"
			}
			return apperrors.RangeViolationError(profileID, field, value, bounds)
		default:
			return apperrors.SchemaViolationError(profileID, field, "is required but not provided")
		}
	case "min", "max":
		switch fe.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			bounds := fmt.Sprintf("at least %s", param)
			if tag == "max" {
				bounds = fmt.Sprintf("at most %s", param)
			}
			if field == "port" {
				bounds = "between 1 and 65535"
			}
			return apperrors.RangeViolationError(profileID, field, value, bounds)
		default:
			return apperrors.SchemaViolationError(profileID, field,
				fmt.Sprintf("must be between %s characters (got: %v)", param, value))
		}
	case "sslmode":
		return apperrors.SchemaViolationError(profileID, field,
			fmt.Sprintf("must be one of: disable, allow, prefer, require, verify-ca, verify-full (got: %v)", value))
	case "host":
		return apperrors.SchemaViolationError(profileID, field,
			fmt.Sprintf("must be a valid hostname or IP address (got: %v)", value))
	default:
		return apperrors.SchemaViolationError(profileID, field,
			fmt.Sprintf("failed %s validation (got: %v)", tag, value))
	}
}

// checkSecret enforces the password rules and resolves environment-sourced
// secrets in place.
func checkSecret(p *Profile, o *loadOptions) *apperrors.AppError {
	if p.Password != "" && p.PasswordEnv != "" {
		return apperrors.SchemaViolationError(p.ID, "password",
			"and password_env are mutually exclusive")
	}
	if p.Password != "" && !p.SavePassword {
		return apperrors.SchemaViolationError(p.ID, "password",
			"is present but save_password is false")
	}

	if p.PasswordEnv != "" {
		val, ok := os.LookupEnv(p.PasswordEnv)
		if !ok {
			if o.strictSecrets {
				return apperrors.SecretUnresolvedError(p.ID, p.PasswordEnv)
			}
			o.log.Warn("profile secret not found in environment",
				zap.String("profile", p.ID),
				zap.String("env_var", p.PasswordEnv))
			return nil
		}
		p.Password = val
		return nil
	}

	// Literal passwords may reference the environment with ${VAR}
	if strings.Contains(p.Password, "${") {
		p.Password = os.Expand(p.Password, func(key string) string {
			if val, ok := os.LookupEnv(key); ok {
				return val
			}
			o.log.Warn("unset variable in profile password",
				zap.String("profile", p.ID),
				zap.String("env_var", key))
			return ""
		})
	}
	return nil
}
