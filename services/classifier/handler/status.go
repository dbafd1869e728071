package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
)

// StatusHandler exposes the async-request polling endpoint.
type StatusHandler struct {
	store *status.Store
	log   zerolog.Logger
}

// NewStatusHandler builds a StatusHandler.
func NewStatusHandler(store *status.Store, log zerolog.Logger) *StatusHandler {
	return &StatusHandler{store: store, log: log}
}

// Get handles GET /v1/status/{request_id}.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id is required")
		return
	}

	rec, ok, err := h.store.Get(r.Context(), requestID)
	if err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("status: lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to look up request status")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no request found with that id")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
