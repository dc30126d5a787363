package handlers

import (
	"net/http"

	"github.com/benvon/identity-api/internal/database"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health responds 200 when the database is reachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Unhealthy", "Database unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
