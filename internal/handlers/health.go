package handlers

import (
	"net/http"
	"runtime"
	"time"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Running   bool   `json:"running"`
	Pending   int    `json:"pending"`
	LastSweep string `json:"lastSweep,omitempty"`
	Error     string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	Tasks   int `json:"tasks"`
	Options int `json:"options"`
}

// HealthCheck returns the health status of the service. The task store
// being unreadable is the only degraded state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.store.GetStats()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Running:      h.runner.IsRunning(),
		Pending:      h.runner.Pending(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		Tasks:        stats.Tasks,
		Options:      stats.Options,
	}

	lastSweep, err := h.store.GetLastSweep(r.Context())
	if err != nil {
		logging.Warn("Health check could not read last sweep: %v", err)
		response.Status = statusDegraded
		response.Error = "task store unavailable"
	} else if !lastSweep.IsZero() {
		response.LastSweep = lastSweep.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status == statusDegraded {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
