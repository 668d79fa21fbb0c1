package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/domain"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"github.com/codecurrent-sandbox/pgregistry/internal/models"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const handlerTestDoc = `
servers:
  "1":
    name: nba-stats-db
    group_name: Servers
    host: postgres
    port: 5432
    maintenance_db: postgres
    username: postgres
    ssl_mode: prefer
    connect_timeout: 10
  "2":
    name: billing-db
    group_name: Production
    host: billing.internal
    port: 5433
    maintenance_db: billing
    username: app
    password: topsecret
    ssl_mode: require
    connect_timeout: 5
    save_password: true
`

// stubNode backs the handlers with a fixed registry and optional prober
type stubNode struct {
	reg    *registry.Registry
	prober domain.ReachabilityChecker
	start  time.Time
}

func (s *stubNode) Registry() domain.ProfileProvider   { return s.reg }
func (s *stubNode) Config() *config.Config             { return &config.Config{} }
func (s *stubNode) Prober() domain.ReachabilityChecker { return s.prober }
func (s *stubNode) GetStartTime() time.Time            { return s.start }

type stubProber struct {
	results []storage.ProbeResult
}

func (s *stubProber) Probe(ctx context.Context, p registry.Profile) storage.ProbeResult {
	return storage.ProbeResult{}
}

func (s *stubProber) Results() []storage.ProbeResult { return s.results }

func (s *stubProber) Summary() (int, int) {
	reachable, unreachable := 0, 0
	for _, r := range s.results {
		if r.Status == "reachable" {
			reachable++
		} else {
			unreachable++
		}
	}
	return reachable, unreachable
}

func newTestHandler(t *testing.T, prober domain.ReachabilityChecker) *Handler {
	t.Helper()
	reg, err := registry.Parse([]byte(handlerTestDoc))
	require.NoError(t, err)
	node := &stubNode{reg: reg, prober: prober, start: time.Now()}
	return NewHandler(&config.Config{}, zap.NewNop(), node)
}

func TestHandleServersImportDocument(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleServers(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc models.ImportDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Servers, 2)

	assert.Equal(t, "nba-stats-db", doc.Servers["1"].Name)
	assert.Empty(t, doc.Servers["1"].Password)

	// profile "2" opted into persistence, so its secret is served
	assert.Equal(t, "topsecret", doc.Servers["2"].Password)
	assert.True(t, doc.Servers["2"].SavePassword)
}

// Request counting belongs to the server mux; a handler incrementing the
// counter as well would double-count every request
func TestHandlersDoNotCountRequests(t *testing.T) {
	h := newTestHandler(t, nil)

	before := metrics.GetHTTPRequestCount()

	rec := httptest.NewRecorder()
	h.HandleServers(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleServerByID(rec, httptest.NewRequest(http.MethodGet, "/servers/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, before, metrics.GetHTTPRequestCount())
}

func TestHandleServersMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleServers(rec, httptest.NewRequest(http.MethodPost, "/servers", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "METHOD_NOT_ALLOWED")
}

func TestHandleServersOptions(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleServers(rec, httptest.NewRequest(http.MethodOptions, "/servers", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleServerByID(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleServerByID(rec, httptest.NewRequest(http.MethodGet, "/servers/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		ID     string             `json:"id"`
		Server models.ServerEntry `json:"server"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "1", response.ID)
	assert.Equal(t, "nba-stats-db", response.Server.Name)
	assert.Equal(t, 5432, response.Server.Port)
}

func TestHandleServerByIDNotFound(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleServerByID(rec, httptest.NewRequest(http.MethodGet, "/servers/99", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROFILE_NOT_FOUND")
}

func TestHandleProbesDisabled(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleProbes(rec, httptest.NewRequest(http.MethodGet, "/probes", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROBING_DISABLED")
}

func TestHandleProbes(t *testing.T) {
	prober := &stubProber{results: []storage.ProbeResult{
		{
			ProfileID: "1",
			Name:      "nba-stats-db",
			Address:   "postgres:5432",
			Status:    "reachable",
			Latency:   42 * time.Millisecond,
			Attempts:  1,
			CheckedAt: time.Now(),
		},
		{
			ProfileID: "2",
			Name:      "billing-db",
			Address:   "billing.internal:5433",
			Status:    "unreachable",
			Attempts:  3,
			Error:     "dial tcp: connection refused",
			CheckedAt: time.Now(),
		},
	}}
	h := newTestHandler(t, prober)

	rec := httptest.NewRecorder()
	h.HandleProbes(rec, httptest.NewRequest(http.MethodGet, "/probes", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Reachable   int                  `json:"reachable"`
		Unreachable int                  `json:"unreachable"`
		Probes      []models.ProbeReport `json:"probes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Reachable)
	assert.Equal(t, 1, response.Unreachable)
	require.Len(t, response.Probes, 2)
	assert.Equal(t, int64(42), response.Probes[0].LatencyMs)
	assert.Equal(t, 3, response.Probes[1].Attempts)
}

func TestHandleStatsAPI(t *testing.T) {
	h := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.HandleStatsAPI(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "instance_id")
	assert.Contains(t, stats, "profiles_loaded")
	assert.Contains(t, stats, "probes_reachable")
	assert.Contains(t, stats, "probes_unreachable")
	assert.Contains(t, stats, "uptime_seconds")
	assert.Contains(t, stats, "memory_usage")
	// probing is disabled on this instance
	assert.NotContains(t, stats, "servers_reachable")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5m", formatUptime(5*time.Minute))
	assert.Equal(t, "2h 30m", formatUptime(2*time.Hour+30*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatUptime(25*time.Hour))
}
