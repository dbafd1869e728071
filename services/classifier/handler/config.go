package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
)

// ConfigHandler exposes the hot-reloadable variant config for
// inspection and admin switching.
type ConfigHandler struct {
	mgr *configmgr.Manager
	log zerolog.Logger
}

// NewConfigHandler builds a ConfigHandler.
func NewConfigHandler(mgr *configmgr.Manager, log zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{mgr: mgr, log: log}
}

// Active handles GET /v1/config/variant.
func (h *ConfigHandler) Active(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Active())
}

type switchVariantRequest struct {
	Name string `json:"name"`
}

// Switch handles POST /v1/config/variant.
func (h *ConfigHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req switchVariantRequest
	if err := jsonDecode(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if err := h.mgr.SwitchVariant(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_variant", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.Active())
}
