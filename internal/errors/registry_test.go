package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaViolationError(t *testing.T) {
	err := SchemaViolationError("1", "username", "is required but not provided")

	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, CodeSchemaViolation, err.Code)
	assert.Equal(t, SeverityLow, err.Severity)
	assert.Contains(t, err.Message, `profile "1"`)
	assert.Contains(t, err.Message, `"username"`)
}

func TestRangeViolationError(t *testing.T) {
	err := RangeViolationError("1", "port", 99999, "between 1 and 65535")

	assert.Equal(t, CodeRangeViolation, err.Code)
	assert.Contains(t, err.Message, "between 1 and 65535")
	assert.Contains(t, err.Message, "99999")
}

func TestDuplicateKeyError(t *testing.T) {
	err := DuplicateKeyError("1")

	assert.Equal(t, CodeDuplicateKey, err.Code)
	assert.Contains(t, err.Message, "more than once")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeProfileNotFound, CodeOf(ProfileNotFoundError("9")))
	assert.Empty(t, CodeOf(errors.New("plain error")))
	assert.Empty(t, CodeOf(nil))

	// codes survive wrapping
	wrapped := fmt.Errorf("loading registry: %w", SecretUnresolvedError("1", "DB_PASS"))
	assert.Equal(t, CodeSecretUnresolved, CodeOf(wrapped))
}

func TestMetricKind(t *testing.T) {
	assert.Equal(t, "duplicate_key", MetricKind(CodeDuplicateKey))
	assert.Equal(t, "range_violation", MetricKind(CodeRangeViolation))
	assert.Equal(t, "schema_violation", MetricKind(CodeSchemaViolation))
	assert.Equal(t, "schema_violation", MetricKind("SOMETHING_ELSE"))
}

func TestProbeErrorWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ProbeError("1", cause)

	assert.Equal(t, ErrorTypeProbe, err.Type)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Details, "connection refused")
}

func TestHandleHTTPErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", ProfileNotFoundError("9"), http.StatusNotFound},
		{"validation", SchemaViolationError("1", "port", "bad"), http.StatusBadRequest},
		{"rate limit", RateLimitError("api"), http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/servers/9", nil)

			HandleHTTPError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/servers", nil)

	require.NotPanics(t, func() { handler.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
