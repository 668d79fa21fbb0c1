package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Registry-specific error codes
const (
	CodeSchemaViolation = "SCHEMA_VIOLATION"
	CodeDuplicateKey    = "DUPLICATE_KEY"
	CodeRangeViolation  = "RANGE_VIOLATION"
	CodeProfileNotFound = "PROFILE_NOT_FOUND"
	CodeSecretUnresolved = "SECRET_UNRESOLVED"
	CodeProbeFailed     = "PROBE_FAILED"
)

// SchemaViolationError reports a missing or malformed field on a registry entry.
func SchemaViolationError(profileID, field, reason string) *AppError {
	return New(ErrorTypeValidation, CodeSchemaViolation,
		fmt.Sprintf("profile %q: field %q %s", profileID, field, reason)).
		WithSeverity(SeverityLow).
		WithUserMessage("The registry contains an invalid profile. Please correct the configuration.")
}

// DuplicateKeyError reports two registry entries sharing an id.
func DuplicateKeyError(profileID string) *AppError {
	return New(ErrorTypeValidation, CodeDuplicateKey,
		fmt.Sprintf("profile id %q appears more than once", profileID)).
		WithSeverity(SeverityLow).
		WithUserMessage("The registry contains duplicate profile ids. Please correct the configuration.")
}

// RangeViolationError reports a numeric field outside its permitted bounds.
func RangeViolationError(profileID, field string, value interface{}, bounds string) *AppError {
	return New(ErrorTypeValidation, CodeRangeViolation,
		fmt.Sprintf("profile %q: field %q must be %s (got: %v)", profileID, field, bounds, value)).
		WithSeverity(SeverityLow).
		WithUserMessage("The registry contains an out-of-range value. Please correct the configuration.")
}

// ProfileNotFoundError reports a lookup for an unknown profile id.
func ProfileNotFoundError(profileID string) *AppError {
	return New(ErrorTypeNotFound, CodeProfileNotFound,
		fmt.Sprintf("profile %q not found", profileID)).
		WithSeverity(SeverityLow).
		WithUserMessage("The requested connection profile does not exist.")
}

// SecretUnresolvedError reports a password_env variable that is not set.
func SecretUnresolvedError(profileID, envVar string) *AppError {
	return New(ErrorTypeValidation, CodeSecretUnresolved,
		fmt.Sprintf("profile %q: environment variable %q is not set", profileID, envVar)).
		WithSeverity(SeverityMedium).
		WithUserMessage("A profile secret could not be resolved from the environment.")
}

// ProbeError reports a failed reachability check against a profile's server.
func ProbeError(profileID string, cause error) *AppError {
	return Wrap(cause, ErrorTypeProbe, CodeProbeFailed,
		fmt.Sprintf("probe of profile %q failed", profileID)).
		WithSeverity(SeverityMedium).
		WithUserMessage("The target server could not be reached.")
}

// ValidationError creates a validation error with a custom code
func ValidationError(code, message string) *AppError {
	return New(ErrorTypeValidation, code, message).
		WithSeverity(SeverityLow)
}

// RateLimitError creates a rate limit error
func RateLimitError(resource string) *AppError {
	return New(ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED", fmt.Sprintf("Rate limit exceeded for %s", resource)).
		WithSeverity(SeverityMedium).
		WithUserMessage("Too many requests. Please wait before trying again.")
}

// TimeoutError creates a timeout error
func TimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, "TIMEOUT", fmt.Sprintf("%s operation timed out", operation)).
		WithSeverity(SeverityMedium).
		WithUserMessage("The request timed out. Please try again.")
}

// InternalError creates an internal error
func InternalError(message string, cause error) *AppError {
	return Wrap(cause, ErrorTypeInternal, "INTERNAL_ERROR", message).
		WithSeverity(SeverityHigh).
		WithUserMessage("An internal error occurred. Please try again.")
}

// CodeOf returns the AppError code of err, or "" when err carries none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// MetricKind maps a registry error code to its validation-failure metric label.
func MetricKind(code string) string {
	switch code {
	case CodeDuplicateKey:
		return "duplicate_key"
	case CodeRangeViolation:
		return "range_violation"
	default:
		return "schema_violation"
	}
}

// Global error middleware instance
var globalErrorMiddleware *ErrorMiddleware

// InitErrorHandling initializes the global error handling system
func InitErrorHandling() {
	globalErrorMiddleware = NewErrorMiddleware()
}

// GetErrorMiddleware returns the global error middleware instance
func GetErrorMiddleware() *ErrorMiddleware {
	if globalErrorMiddleware == nil {
		InitErrorHandling()
	}
	return globalErrorMiddleware
}

// HandleHTTPError is a convenience function for handling HTTP errors
func HandleHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	GetErrorMiddleware().HandleError(w, r, err)
}

// RecoveryMiddleware returns a middleware that recovers from panics
func RecoveryMiddleware(next http.Handler) http.Handler {
	return GetErrorMiddleware().RecoveryMiddleware(next)
}
