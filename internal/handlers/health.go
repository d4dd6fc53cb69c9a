package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/logging"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// healthTimeout bounds the index probe made by HealthCheck.
const healthTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Index   string `json:"index"`
	Error   string `json:"error,omitempty"`

	// Set when the index was repaired while opening
	RecoveryStage string `json:"recoveryStage,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	TotalAssets int `json:"totalAssets"`
	TotalAlbums int `json:"totalAlbums"`
}

// HealthCheck returns 200 when the index answers queries, 503 otherwise.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Index:        h.repo.DBPath(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if report := h.repo.LastRecovery(); report != nil {
		response.RecoveryStage = string(report.Stage)
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	stats, err := h.repo.Stats(ctx)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		logging.Warn("Health check failed: %v", err)
		response.Status = statusDegraded
		response.Error = err.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, response)
		return
	}

	response.Status = statusHealthy
	response.Ready = true
	response.TotalAssets = stats.Total
	response.TotalAlbums = stats.Albums
	w.WriteHeader(http.StatusOK)
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
