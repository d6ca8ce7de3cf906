package handlers

import (
	"net/http"

	"batch-size-optimizer/core/repository"
)

// HealthHandler answers liveness probes
type HealthHandler struct {
	db *repository.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *repository.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz handles GET /healthz. The database ping is included because
// the service cannot make decisions without its durable store.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
