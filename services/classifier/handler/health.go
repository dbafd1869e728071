package handler

import (
	"net/http"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
)

// HealthHandler exposes liveness/readiness, the readiness check
// reflecting the backing store's degrade state.
type HealthHandler struct {
	store *kvstore.DegradingStore
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(store *kvstore.DegradingStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "classifier"})
}

// Ready handles GET /readyz. Reports degraded (but still 200) rather
// than failing readiness entirely: the service keeps serving out of its
// in-process cache/queue when Redis is unavailable, per kvstore's
// degrade-on-failure design.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	degraded := h.store != nil && h.store.Degraded()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"degraded": degraded,
	})
}
