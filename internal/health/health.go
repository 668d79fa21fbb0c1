package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/constants"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the status of a specific component
type ComponentStatus struct {
	Name    string                 `json:"name"`
	Status  HealthStatus           `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Components []*ComponentStatus     `json:"components"`
	Summary    map[string]interface{} `json:"summary"`
}

// RegistryInterface defines the registry operations needed for health checks
type RegistryInterface interface {
	Len() int
	IDs() []string
}

// ProberInterface defines the prober operations needed for health checks.
// A nil prober means reachability checks are disabled.
type ProberInterface interface {
	Summary() (reachable, unreachable int)
}

// HealthChecker performs comprehensive health checks
type HealthChecker struct {
	registry  RegistryInterface
	prober    ProberInterface
	cfg       *config.Config
	logger    *zap.Logger
	startTime time.Time
	version   string
	mu        sync.RWMutex
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(registry RegistryInterface, prober ProberInterface, cfg *config.Config, logger *zap.Logger, version string) *HealthChecker {
	return &HealthChecker{
		registry:  registry,
		prober:    prober,
		cfg:       cfg,
		logger:    logger.Named("health"),
		startTime: time.Now(),
		version:   version,
	}
}

// CheckHealth performs a comprehensive health check
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	startTime := time.Now()
	components := make([]*ComponentStatus, 0)

	// Check registry health
	regStatus := h.checkRegistry()
	components = append(components, regStatus)

	// Check server reachability, when probing is enabled
	if h.prober != nil {
		components = append(components, h.checkReachability())
	}

	// Check memory health
	memStatus := h.checkMemory()
	components = append(components, memStatus)

	// Check system resources
	systemStatus := h.checkSystemResources()
	components = append(components, systemStatus)

	// Determine overall status
	overallStatus := h.determineOverallStatus(components)

	// Calculate uptime
	uptime := time.Since(h.startTime)

	response := &HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    h.version,
		Uptime:     h.formatUptime(uptime),
		Components: components,
		Summary: map[string]interface{}{
			"total_components":     len(components),
			"healthy_components":   h.countComponentsByStatus(components, StatusHealthy),
			"degraded_components":  h.countComponentsByStatus(components, StatusDegraded),
			"unhealthy_components": h.countComponentsByStatus(components, StatusUnhealthy),
			"check_duration_ms":    time.Since(startTime).Milliseconds(),
		},
	}

	return response
}

// checkRegistry verifies that connection profiles are loaded
func (h *HealthChecker) checkRegistry() *ComponentStatus {
	status := &ComponentStatus{
		Name:    "registry",
		Details: make(map[string]interface{}),
	}

	count := h.registry.Len()
	status.Details["profiles_loaded"] = count
	status.Details["registry_path"] = h.cfg.Registry.Path

	if count == 0 {
		status.Status = StatusUnhealthy
		status.Message = "No connection profiles loaded"
		return status
	}

	status.Status = StatusHealthy
	status.Message = fmt.Sprintf("%d connection profiles loaded", count)
	return status
}

// checkReachability reports on the latest probe results
func (h *HealthChecker) checkReachability() *ComponentStatus {
	status := &ComponentStatus{
		Name:    "reachability",
		Details: make(map[string]interface{}),
	}

	reachable, unreachable := h.prober.Summary()
	status.Details["reachable"] = reachable
	status.Details["unreachable"] = unreachable

	switch {
	case reachable == 0 && unreachable == 0:
		status.Status = StatusHealthy
		status.Message = "No probes have run yet"
	case unreachable == 0:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("All %d probed servers reachable", reachable)
	case reachable == 0:
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("All %d probed servers unreachable", unreachable)
	default:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("%d of %d probed servers unreachable",
			unreachable, reachable+unreachable)
	}

	return status
}

// checkMemory checks memory usage
func (h *HealthChecker) checkMemory() *ComponentStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := &ComponentStatus{
		Name:    "memory",
		Details: make(map[string]interface{}),
	}

	// Convert to MB for readability
	allocMB := float64(m.Alloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024
	heapMB := float64(m.HeapAlloc) / 1024 / 1024

	status.Details["alloc_mb"] = allocMB
	status.Details["sys_mb"] = sysMB
	status.Details["heap_mb"] = heapMB
	status.Details["num_gc"] = m.NumGC
	status.Details["gc_cpu_fraction"] = m.GCCPUFraction

	// Memory thresholds (these should be configurable)
	const (
		memoryWarningMB  = 500  // 500MB
		memoryCriticalMB = 1000 // 1GB
	)

	if allocMB > memoryCriticalMB {
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("High memory usage: %.1f MB", allocMB)
	} else if allocMB > memoryWarningMB {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated memory usage: %.1f MB", allocMB)
	} else {
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Memory usage normal: %.1f MB", allocMB)
	}

	return status
}

// checkSystemResources checks system-level resources
func (h *HealthChecker) checkSystemResources() *ComponentStatus {
	status := &ComponentStatus{
		Name:    "system",
		Details: make(map[string]interface{}),
	}

	status.Details["goroutines"] = runtime.NumGoroutine()
	status.Details["cpus"] = runtime.NumCPU()

	goroutineCount := runtime.NumGoroutine()

	// Goroutine thresholds
	const (
		goroutineWarning  = 1000
		goroutineCritical = 5000
	)

	if goroutineCount > goroutineCritical {
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("High goroutine count: %d", goroutineCount)
	} else if goroutineCount > goroutineWarning {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated goroutine count: %d", goroutineCount)
	} else {
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("System resources normal: %d goroutines", goroutineCount)
	}

	return status
}

// determineOverallStatus determines the overall health status from components
func (h *HealthChecker) determineOverallStatus(components []*ComponentStatus) HealthStatus {
	unhealthyCount := 0
	degradedCount := 0

	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			unhealthyCount++
		case StatusDegraded:
			degradedCount++
		}
	}

	// If any component is unhealthy, overall status is unhealthy
	if unhealthyCount > 0 {
		return StatusUnhealthy
	}

	// If any component is degraded, overall status is degraded
	if degradedCount > 0 {
		return StatusDegraded
	}

	return StatusHealthy
}

// countComponentsByStatus counts components with a specific status
func (h *HealthChecker) countComponentsByStatus(components []*ComponentStatus, status HealthStatus) int {
	count := 0
	for _, comp := range components {
		if comp.Status == status {
			count++
		}
	}
	return count
}

// formatUptime formats uptime duration as a human-readable string
func (h *HealthChecker) formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// HandleHealth is the HTTP handler for health checks
func (h *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.HealthCheckTimeout*time.Second)
	defer cancel()

	// Check for ready parameter for readiness probes
	ready := r.URL.Query().Get("ready")

	healthResponse := h.CheckHealth(ctx)

	// Set appropriate HTTP status code
	statusCode := http.StatusOK
	if ready == "1" {
		// For readiness probes, return 200 only if healthy
		switch healthResponse.Status {
		case StatusHealthy:
			statusCode = http.StatusOK
		case StatusDegraded:
			statusCode = http.StatusOK // Still ready, just degraded
		case StatusUnhealthy:
			statusCode = http.StatusServiceUnavailable
		}
	} else {
		// For liveness probes, return 200 unless completely unhealthy
		switch healthResponse.Status {
		case StatusHealthy, StatusDegraded:
			statusCode = http.StatusOK
		case StatusUnhealthy:
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(healthResponse); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
		return
	}

	// Log health check results for monitoring
	h.logger.Debug("Health check completed",
		zap.String("status", string(healthResponse.Status)),
		zap.Int("status_code", statusCode),
		zap.String("client_ip", r.RemoteAddr),
		zap.Int64("duration_ms", healthResponse.Summary["check_duration_ms"].(int64)))
}
