package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/domain"
	"github.com/codecurrent-sandbox/pgregistry/internal/errors"
	"github.com/codecurrent-sandbox/pgregistry/internal/identity"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"github.com/codecurrent-sandbox/pgregistry/internal/models"
	"go.uber.org/zap"
)

// Handler provides the HTTP handlers for the registry API
type Handler struct {
	config    *config.Config
	logger    *zap.Logger
	node      domain.AppInterface
	startTime time.Time
}

// NewHandler creates a new registry API handler
func NewHandler(cfg *config.Config, logger *zap.Logger, node domain.AppInterface) *Handler {
	return &Handler{
		config:    cfg,
		logger:    logger,
		node:      node,
		startTime: time.Now(),
	}
}

// HandleServers serves the full import document for bulk import.
// Passwords are omitted unless the profile opts into persistence.
func (h *Handler) HandleServers(w http.ResponseWriter, r *http.Request) {
	apiHeaders := APISecurityHeaders()
	apiHeaders.Apply(w)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		methodErr := errors.ValidationError("METHOD_NOT_ALLOWED",
			"Only GET requests are allowed for this endpoint").
			WithUserMessage("Method not allowed.")
		errors.HandleHTTPError(w, r, methodErr)
		return
	}

	doc := models.BuildImportDocument(h.node.Registry())

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		h.logger.Error("Failed to encode import document", zap.Error(err))
	}
}

// HandleServerByID serves a single profile by its registry key
func (h *Handler) HandleServerByID(w http.ResponseWriter, r *http.Request) {
	apiHeaders := APISecurityHeaders()
	apiHeaders.Apply(w)

	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		methodErr := errors.ValidationError("METHOD_NOT_ALLOWED",
			"Only GET requests are allowed for this endpoint").
			WithUserMessage("Method not allowed.")
		errors.HandleHTTPError(w, r, methodErr)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/servers/")
	id = SanitizeQueryParam(id)
	if id == "" {
		validationErr := errors.ValidationError("MISSING_PROFILE_ID",
			"Profile id is required in the path").
			WithUserMessage("Profile id is required.")
		errors.HandleHTTPError(w, r, validationErr)
		return
	}

	profile, ok := h.node.Registry().Get(id)
	if !ok {
		errors.HandleHTTPError(w, r, errors.ProfileNotFoundError(id))
		return
	}

	response := struct {
		ID     string             `json:"id"`
		Server models.ServerEntry `json:"server"`
	}{
		ID:     id,
		Server: models.FromProfile(profile),
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode profile response", zap.Error(err))
	}
}

// HandleProbes serves the latest reachability results for all profiles
func (h *Handler) HandleProbes(w http.ResponseWriter, r *http.Request) {
	apiHeaders := APISecurityHeaders()
	apiHeaders.Apply(w)

	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		methodErr := errors.ValidationError("METHOD_NOT_ALLOWED",
			"Only GET requests are allowed for this endpoint").
			WithUserMessage("Method not allowed.")
		errors.HandleHTTPError(w, r, methodErr)
		return
	}

	prober := h.node.Prober()
	if prober == nil {
		probeErr := errors.New(errors.ErrorTypeProbe, "PROBING_DISABLED",
			"Reachability probing is not enabled").
			WithUserMessage("Reachability probing is disabled on this instance.")
		errors.HandleHTTPError(w, r, probeErr)
		return
	}

	results := prober.Results()
	reports := make([]models.ProbeReport, 0, len(results))
	for _, res := range results {
		reports = append(reports, models.ProbeReport{
			ProfileID:     res.ProfileID,
			Name:          res.Name,
			Address:       res.Address,
			Status:        res.Status,
			ServerVersion: res.ServerVersion,
			Database:      res.Database,
			LatencyMs:     res.Latency.Milliseconds(),
			Attempts:      res.Attempts,
			Error:         res.Error,
			CheckedAt:     res.CheckedAt,
		})
	}

	reachable, unreachable := prober.Summary()
	response := struct {
		Reachable   int                  `json:"reachable"`
		Unreachable int                  `json:"unreachable"`
		Probes      []models.ProbeReport `json:"probes"`
	}{
		Reachable:   reachable,
		Unreachable: unreachable,
		Probes:      reports,
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode probe response", zap.Error(err))
	}
}

// HandleStatsAPI serves runtime statistics about this instance
func (h *Handler) HandleStatsAPI(w http.ResponseWriter, r *http.Request) {
	apiHeaders := APISecurityHeaders()
	apiHeaders.Apply(w)

	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Stable instance identifier, for fleet dashboards
	instanceID := "unknown"
	if inst, err := identity.GetOrCreateInstanceIdentity(); err == nil {
		instanceID = inst.InstanceID
	}

	uptime := time.Since(h.startTime)
	probesReachable, probesUnreachable := metrics.GetProbeResultCounts()
	response := map[string]interface{}{
		"instance_id":         instanceID,
		"profiles_loaded":     metrics.GetProfilesLoadedCount(),
		"http_requests":       metrics.GetHTTPRequestCount(),
		"errors":              metrics.GetErrorCount(),
		"probes_reachable":    probesReachable,
		"probes_unreachable":  probesUnreachable,
		"last_load_timestamp": metrics.GetLastLoadTime().Unix(),
		"uptime_seconds":      int64(uptime.Seconds()),
		"uptime_human":        formatUptime(uptime),
		"memory_usage":        getMemoryUsage(),
		"timestamp":           time.Now().Unix(),
	}
	if prober := h.node.Prober(); prober != nil {
		reachable, unreachable := prober.Summary()
		response["servers_reachable"] = reachable
		response["servers_unreachable"] = unreachable
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode stats response", zap.Error(err))
	}
}

// formatUptime formats duration as a human-readable string
func formatUptime(duration time.Duration) string {
	days := int(duration.Hours()) / 24
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// getMemoryUsage returns current memory usage statistics
func getMemoryUsage() map[string]int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// Safe conversion function to prevent integer overflow
	safeUint64ToInt64 := func(val uint64) int64 {
		if val > 9223372036854775807 { // math.MaxInt64
			return 9223372036854775807
		}
		return int64(val)
	}

	return map[string]int64{
		"alloc":        safeUint64ToInt64(m.Alloc),
		"total_alloc":  safeUint64ToInt64(m.TotalAlloc),
		"sys":          safeUint64ToInt64(m.Sys),
		"heap_alloc":   safeUint64ToInt64(m.HeapAlloc),
		"heap_inuse":   safeUint64ToInt64(m.HeapInuse),
		"heap_objects": safeUint64ToInt64(m.HeapObjects),
		"stack_inuse":  safeUint64ToInt64(m.StackInuse),
		"num_gc":       int64(m.NumGC),
	}
}
