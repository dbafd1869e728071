package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/middleware"
)

// CacheHandler exposes admin endpoints over the response cache,
// adapted from the gateway's handler.CacheHandler (Stats/FlushAll/
// InvalidateEntry), narrowed to this service's single-namespace cache.
type CacheHandler struct {
	cache *cache.Engine
	log   zerolog.Logger
}

// NewCacheHandler builds a CacheHandler.
func NewCacheHandler(c *cache.Engine, log zerolog.Logger) *CacheHandler {
	return &CacheHandler{cache: c, log: log}
}

// Stats handles GET /v1/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	topK := middleware.ParseIntHeader(r.URL.Query().Get("top"), 10)
	writeJSON(w, http.StatusOK, h.cache.Stats(r.Context(), topK))
}

// Clear handles DELETE /v1/cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type invalidateRequest struct {
	NormalizedQuery string `json:"normalized_query"`
}

// Invalidate handles POST /v1/cache/invalidate.
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := jsonDecode(r, &req); err != nil || req.NormalizedQuery == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "normalized_query is required")
		return
	}
	h.cache.Invalidate(req.NormalizedQuery)
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
