// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker reports whether one dependency is reachable.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler serves liveness and readiness probes. Checkers are registered
// once during startup, before the server accepts traffic.
type Handler struct {
	checkers []Checker
}

// NewHandler creates a new health handler.
func NewHandler(checkers ...Checker) *Handler {
	return &Handler{checkers: checkers}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health returns basic health status for "is the process running" checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// Live returns liveness probe status.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{Status: "live"})
}

// Ready checks every registered dependency and returns 200 only when all
// of them are healthy. Use for Kubernetes readiness probes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string)
	healthy := true

	for _, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			results[checker.Name()] = err.Error()
			healthy = false
		} else {
			results[checker.Name()] = "ok"
		}
	}

	resp := HealthResponse{Status: "ready", Checks: results}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		resp.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(resp)
}
