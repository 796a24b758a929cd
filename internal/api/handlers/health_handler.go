package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelmagic/portal/internal/api/types"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler { return &HealthHandler{checks: checks} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

// Readiness runs every check with a short timeout and reports 503 if any fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := map[string]string{}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(types.APIResponse{
			Success: false,
			Data:    map[string]any{"status": "not_ready", "checks": results},
			Error:   &types.APIError{Code: "unavailable", Message: "dependency check failed"},
		})
		return
	}
	json.NewEncoder(w).Encode(types.APIResponse{Success: true, Data: map[string]any{"status": "ready", "checks": results}})
}
