package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPISecurityHeadersApplied(t *testing.T) {
	rec := httptest.NewRecorder()
	APISecurityHeaders().Apply(rec)

	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestValidateRequestPathPatterns(t *testing.T) {
	iv := APIInputValidation()

	valid := []string{
		"/servers",
		"/servers/1",
		"/servers/prod-db.east_2",
		"/probes",
		"/api/stats",
		"/health",
	}
	for _, path := range valid {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		assert.NoError(t, iv.ValidateRequest(r), path)
	}

	invalid := []string{
		"/",
		"/servers/",
		"/servers/1/extra",
		"/admin",
		"/servers/id%20with%20space",
	}
	for _, path := range invalid {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		assert.Error(t, iv.ValidateRequest(r), path)
	}
}

func TestValidateRequestQueryParams(t *testing.T) {
	iv := APIInputValidation()

	r := httptest.NewRequest(http.MethodGet, "/servers?format=json", nil)
	assert.NoError(t, iv.ValidateRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/servers?cmd=ls", nil)
	err := iv.ValidateRequest(r)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "invalid_query_param", ve.Type)
}

func TestValidateRequestPathTooLong(t *testing.T) {
	iv := APIInputValidation()

	r := httptest.NewRequest(http.MethodGet, "/servers/"+strings.Repeat("a", 2000), nil)
	err := iv.ValidateRequest(r)
	require.Error(t, err)
	assert.Equal(t, "path_length", err.(*ValidationError).Type)
}

func TestValidateRequestHeaderInjection(t *testing.T) {
	iv := APIInputValidation()

	r := httptest.NewRequest(http.MethodGet, "/servers", nil)
	r.Header.Set("User-Agent", "evil\r\nX-Injected: 1")
	err := iv.ValidateRequest(r)
	require.Error(t, err)
	assert.Equal(t, "header_injection", err.(*ValidationError).Type)
}

func TestValidateRequestOversizedHeader(t *testing.T) {
	iv := APIInputValidation()

	r := httptest.NewRequest(http.MethodGet, "/servers", nil)
	r.Header.Set("X-Custom", strings.Repeat("a", 5000))
	err := iv.ValidateRequest(r)
	require.Error(t, err)
	assert.Equal(t, "header_length", err.(*ValidationError).Type)
}

func TestSanitizeQueryParam(t *testing.T) {
	assert.Equal(t, "prod-db", SanitizeQueryParam("prod-db"))
	assert.Equal(t, "prod db", SanitizeQueryParam("prod%20db"))
	assert.Equal(t, "abc", SanitizeQueryParam(" abc\x00\x01 "))
	assert.Equal(t, "", SanitizeQueryParam("%zz"))

	long := SanitizeQueryParam(strings.Repeat("x", 500))
	assert.Len(t, long, 256)
}

func TestValidationMiddleware(t *testing.T) {
	called := false
	handler := ValidationMiddleware(APIInputValidation())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	called = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/etc/passwd", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
