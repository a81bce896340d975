package handlers

import (
	"net/http"

	"recipegraph/application/services"
	"recipegraph/pkg/common"
)

// HealthHandler reports liveness and store reachability
type HealthHandler struct {
	health *services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health *services.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health handles GET /health. A degraded store answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	status := http.StatusOK
	if !report.StoreReachable {
		status = http.StatusServiceUnavailable
	}
	common.RespondJSON(w, status, report)
}
