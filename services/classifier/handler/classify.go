// Package handler holds the classify service's HTTP adapters: thin
// wrappers that decode a request, call into pipeline/status/cache/
// configmgr, and encode the response. Adapted from the gateway's
// handler.ProxyHandler request/response shape (decode -> call ->
// writeJSON -> error envelope), same error envelope fields.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/pipeline"
)

// errorEnvelope is the JSON shape every failed request returns.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: code, Message: message})
}

func jsonDecode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// ClassifyHandler exposes the synchronous classification endpoint.
type ClassifyHandler struct {
	pipeline *pipeline.Service
	log      zerolog.Logger
}

// NewClassifyHandler builds a ClassifyHandler.
func NewClassifyHandler(p *pipeline.Service, log zerolog.Logger) *ClassifyHandler {
	return &ClassifyHandler{pipeline: p, log: log}
}

type classifyRequest struct {
	Query string `json:"query"`
}

// Classify handles POST /v1/classify.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := jsonDecode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a \"query\" field")
		return
	}

	result := h.pipeline.Classify(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, result)
}
