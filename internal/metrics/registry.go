package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global counters for health and report output (prometheus metrics can't be read directly)
var (
	profilesLoadedCount int64
	reachableCount      int64
	unreachableCount    int64
	httpRequestCount    int64
	errorCount          int64
	lastLoadTimestamp   int64
)

// SetProfilesLoaded records the number of profiles in the active registry.
func SetProfilesLoaded(n int64) {
	ProfilesLoaded.Set(float64(n))
	atomic.StoreInt64(&profilesLoadedCount, n)
	atomic.StoreInt64(&lastLoadTimestamp, time.Now().Unix())
}

// GetProfilesLoadedCount returns the number of profiles in the active registry.
func GetProfilesLoadedCount() int64 {
	return atomic.LoadInt64(&profilesLoadedCount)
}

// GetLastLoadTime returns when the registry was last loaded, or the zero time.
func GetLastLoadTime() time.Time {
	ts := atomic.LoadInt64(&lastLoadTimestamp)
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IncrementProbeResult increments the probe counters for the given outcome.
func IncrementProbeResult(reachable bool) {
	if reachable {
		ProbeResults.WithLabelValues("reachable").Inc()
		atomic.AddInt64(&reachableCount, 1)
	} else {
		ProbeResults.WithLabelValues("unreachable").Inc()
		atomic.AddInt64(&unreachableCount, 1)
	}
}

// GetProbeResultCounts returns the running reachable/unreachable totals.
func GetProbeResultCounts() (reachable, unreachable int64) {
	return atomic.LoadInt64(&reachableCount), atomic.LoadInt64(&unreachableCount)
}

// IncrementHTTPRequests increments both the prometheus counter and our local counter.
func IncrementHTTPRequests() {
	HTTPRequests.Inc()
	atomic.AddInt64(&httpRequestCount, 1)
}

// GetHTTPRequestCount returns the number of HTTP requests served since start.
func GetHTTPRequestCount() int64 {
	return atomic.LoadInt64(&httpRequestCount)
}

// IncrementErrorCount increments the error counter.
func IncrementErrorCount() {
	atomic.AddInt64(&errorCount, 1)
}

// GetErrorCount returns the current error count.
func GetErrorCount() int64 {
	return atomic.LoadInt64(&errorCount)
}

// Metrics for tracking registry loads, probes and the HTTP surface
var (
	// Registry metrics
	ProfilesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pgregistry_profiles_loaded",
		Help: "The number of connection profiles in the active registry",
	})

	RegistryLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgregistry_registry_loads_total",
		Help: "The total number of registry load attempts by status",
	}, []string{"status"}) // "success", "failure"

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgregistry_validation_failures_total",
		Help: "The total number of registry validation failures by kind",
	}, []string{"kind"}) // "schema_violation", "duplicate_key", "range_violation"

	// Probe metrics
	ProbeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgregistry_probe_results_total",
		Help: "The total number of server probes by outcome",
	}, []string{"outcome"}) // "reachable", "unreachable"

	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pgregistry_probe_duration_seconds",
		Help:    "Time to probe a server connection profile",
		Buckets: prometheus.ExponentialBuckets(0.01, 10, 5), // 0.01, 0.1, 1, 10, 100
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pgregistry_http_requests_total",
		Help: "The total number of HTTP requests",
	})

	HTTPRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pgregistry_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 10, 5), // 0.001, 0.01, 0.1, 1, 10
	})

	// Error metrics
	ErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pgregistry_errors_total",
		Help: "The total number of errors by type",
	}, []string{"type"}) // "validation", "probe", "http", etc.
)

// RegisterMetrics ensures all metric label combinations are registered with Prometheus
func RegisterMetrics() {
	// Pre-register load statuses
	for _, status := range []string{"success", "failure"} {
		RegistryLoads.WithLabelValues(status)
	}

	// Pre-register validation failure kinds
	for _, kind := range []string{"schema_violation", "duplicate_key", "range_violation"} {
		ValidationFailures.WithLabelValues(kind)
	}

	// Pre-register probe outcomes
	for _, outcome := range []string{"reachable", "unreachable"} {
		ProbeResults.WithLabelValues(outcome)
	}

	// Pre-register error types
	for _, errType := range []string{"validation", "probe", "http", "rate_limit", "timeout", "internal"} {
		ErrorsCount.WithLabelValues(errType)
	}
}
