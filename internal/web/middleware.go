package web

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"go.uber.org/zap"
)

// SecurityHeaders defines the security headers to be applied to responses
type SecurityHeaders struct {
	// Content Security Policy - prevents XSS and other injection attacks
	CSP string
	// HTTP Strict Transport Security - enforces HTTPS
	HSTS string
	// X-Frame-Options - prevents clickjacking
	XFrameOptions string
	// X-Content-Type-Options - prevents MIME sniffing
	XContentTypeOptions string
	// Referrer-Policy - controls referrer information
	ReferrerPolicy string
}

// APISecurityHeaders returns security headers for the JSON API endpoints
func APISecurityHeaders() *SecurityHeaders {
	return &SecurityHeaders{
		// Restrictive CSP, no scripts or styles are ever served
		CSP: "default-src 'none'; " +
			"frame-ancestors 'none'",

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		HSTS:                "",
	}
}

// SecurityMiddleware wraps an http.Handler with security headers
func SecurityMiddleware(headers *SecurityHeaders) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applySecurityHeaders(w, headers)
			next.ServeHTTP(w, r)
		})
	}
}

// Apply applies the security headers directly to a ResponseWriter
func (sh *SecurityHeaders) Apply(w http.ResponseWriter) {
	applySecurityHeaders(w, sh)
}

// applySecurityHeaders applies the security headers to the response
func applySecurityHeaders(w http.ResponseWriter, headers *SecurityHeaders) {
	if headers.CSP != "" {
		w.Header().Set("Content-Security-Policy", headers.CSP)
	}

	if headers.HSTS != "" {
		w.Header().Set("Strict-Transport-Security", headers.HSTS)
	}

	if headers.XFrameOptions != "" {
		w.Header().Set("X-Frame-Options", headers.XFrameOptions)
	}

	if headers.XContentTypeOptions != "" {
		w.Header().Set("X-Content-Type-Options", headers.XContentTypeOptions)
	}

	if headers.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", headers.ReferrerPolicy)
	}
}

// InputValidation provides request validation and sanitization
type InputValidation struct {
	// MaxPathLength limits URL path length to prevent buffer overflow attacks
	MaxPathLength int
	// MaxQueryLength limits query string length
	MaxQueryLength int
	// MaxHeaderLength limits individual header length
	MaxHeaderLength int
	// AllowedQueryParams whitelist of allowed query parameter names
	AllowedQueryParams map[string]bool
	// PathPatterns allowed path patterns (regex)
	PathPatterns []*regexp.Regexp
}

// APIInputValidation returns input validation settings for the registry API
func APIInputValidation() *InputValidation {
	pathPatterns := []*regexp.Regexp{
		regexp.MustCompile(`^/servers$`),
		regexp.MustCompile(`^/servers/[a-zA-Z0-9._\-]+$`),
		regexp.MustCompile(`^/probes$`),
		regexp.MustCompile(`^/api/stats$`),
		regexp.MustCompile(`^/health$`),
	}

	allowedQueryParams := map[string]bool{
		"format": true,
	}

	return &InputValidation{
		MaxPathLength:      1024,
		MaxQueryLength:     1024,
		MaxHeaderLength:    4096,
		AllowedQueryParams: allowedQueryParams,
		PathPatterns:       pathPatterns,
	}
}

// ValidateRequest validates an HTTP request against the input validation rules
func (iv *InputValidation) ValidateRequest(r *http.Request) error {
	// Validate path length
	if len(r.URL.Path) > iv.MaxPathLength {
		return &ValidationError{
			Type:    "path_length",
			Message: "Request path too long",
			Field:   "url_path",
			Value:   r.URL.Path,
		}
	}

	// Validate query string length
	if len(r.URL.RawQuery) > iv.MaxQueryLength {
		return &ValidationError{
			Type:    "query_length",
			Message: "Query string too long",
			Field:   "query_string",
			Value:   r.URL.RawQuery,
		}
	}

	// Validate path pattern
	pathValid := false
	for _, pattern := range iv.PathPatterns {
		if pattern.MatchString(r.URL.Path) {
			pathValid = true
			break
		}
	}
	if !pathValid {
		return &ValidationError{
			Type:    "invalid_path",
			Message: "Invalid request path",
			Field:   "url_path",
			Value:   r.URL.Path,
		}
	}

	// Validate query parameters
	if len(iv.AllowedQueryParams) > 0 {
		queryValues := r.URL.Query()
		for param := range queryValues {
			if !iv.AllowedQueryParams[param] {
				return &ValidationError{
					Type:    "invalid_query_param",
					Message: "Invalid query parameter",
					Field:   param,
					Value:   queryValues.Get(param),
				}
			}
		}
	}

	// Validate header lengths
	for name, values := range r.Header {
		for _, value := range values {
			if len(value) > iv.MaxHeaderLength {
				return &ValidationError{
					Type:    "header_length",
					Message: "Header value too long",
					Field:   name,
					Value:   value,
				}
			}
		}
	}

	// Check for potential injection patterns in critical headers
	dangerousHeaders := []string{"Host", "X-Forwarded-For", "User-Agent", "Referer"}
	for _, headerName := range dangerousHeaders {
		if headerValue := r.Header.Get(headerName); headerValue != "" {
			if err := validateHeaderValue(headerName, headerValue); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidationError represents an input validation error
type ValidationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"` // Omit sensitive values in logs
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateHeaderValue checks header values for injection patterns
func validateHeaderValue(name, value string) error {
	// Check for null bytes and control characters
	if !utf8.ValidString(value) {
		return &ValidationError{
			Type:    "invalid_encoding",
			Message: "Invalid character encoding in header",
			Field:   name,
		}
	}

	// Check for null bytes and dangerous control characters
	if strings.ContainsAny(value, "\x00\r\n") {
		return &ValidationError{
			Type:    "header_injection",
			Message: "Potential header injection detected",
			Field:   name,
		}
	}

	// Additional validation for specific headers
	switch name {
	case "Host":
		// Basic hostname validation - should not contain spaces or special chars
		if strings.ContainsAny(value, " \t<>\"'") {
			return &ValidationError{
				Type:    "invalid_host",
				Message: "Invalid characters in Host header",
				Field:   name,
			}
		}
	case "User-Agent":
		// Reasonable length limit for User-Agent
		if len(value) > 1024 {
			return &ValidationError{
				Type:    "user_agent_length",
				Message: "User-Agent header too long",
				Field:   name,
			}
		}
	}

	return nil
}

// SanitizeQueryParam sanitizes a query or path parameter value
func SanitizeQueryParam(param string) string {
	// URL decode the parameter
	decoded, err := url.QueryUnescape(param)
	if err != nil {
		// If decoding fails, return empty string (reject the input)
		return ""
	}

	// Remove null bytes and control characters except space and tab
	sanitized := strings.Map(func(r rune) rune {
		// Allow printable ASCII characters and space/tab
		if r >= 32 && r <= 126 || r == '\t' {
			return r
		}
		return -1 // Remove the character
	}, decoded)

	// Trim whitespace
	sanitized = strings.TrimSpace(sanitized)

	// Limit length
	if len(sanitized) > 256 {
		sanitized = sanitized[:256]
	}

	return sanitized
}

// ValidationMiddleware wraps an http.Handler with input validation
func ValidationMiddleware(validation *InputValidation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validation.ValidateRequest(r); err != nil {
				if validationErr, ok := err.(*ValidationError); ok {
					logger.Warn("Input validation failed",
						zap.String("type", validationErr.Type),
						zap.String("field", validationErr.Field),
						zap.String("client_ip", r.RemoteAddr),
						zap.String("path", r.URL.Path),
						zap.String("user_agent", r.Header.Get("User-Agent")),
					)
				}
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
