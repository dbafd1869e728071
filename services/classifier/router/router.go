// Package router assembles the classify service's chi.Router: the
// middleware chain plus every mounted route. Structurally grounded on
// the gateway's router.go (CORS -> security headers -> request ID ->
// recoverer -> logger -> body limit, then a /v1 subrouter), narrowed
// from a multi-provider proxy to this service's single classify
// endpoint plus its support endpoints (status, cache, config, health).
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/cache"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/config"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/configmgr"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/handler"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/kvstore"
	clmw "github.com/indpro-interns-oct-25/chatnshop/services/classifier/middleware"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/pipeline"
	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/status"
)

// Dependencies bundles everything the router needs to wire handlers,
// kept as one struct so New's signature doesn't grow with every
// package this service adds.
type Dependencies struct {
	Pipeline   *pipeline.Service
	Status     *status.Store
	Cache      *cache.Engine
	ConfigMgr  *configmgr.Manager
	Store      *kvstore.DegradingStore
	AdminToken string
}

// New returns a configured chi Router with the full middleware chain
// and all API routes mounted.
func New(cfg *config.Config, deps Dependencies, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(clmw.CORS)
	r.Use(clmw.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(clmw.RequestLogger(log))
	r.Use(clmw.MaxBodySize(cfg.MaxBodyBytes))
	r.Use(clmw.Timeout(20 * time.Second))

	classifyHandler := handler.NewClassifyHandler(deps.Pipeline, log)
	statusHandler := handler.NewStatusHandler(deps.Status, log)
	cacheHandler := handler.NewCacheHandler(deps.Cache, log)
	configHandler := handler.NewConfigHandler(deps.ConfigMgr, log)
	healthHandler := handler.NewHealthHandler(deps.Store)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", classifyHandler.Classify)
		r.Get("/status/{request_id}", statusHandler.Get)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", cacheHandler.Stats)
			r.Group(func(r chi.Router) {
				r.Use(clmw.BearerAuth(deps.AdminToken))
				r.Delete("/", cacheHandler.Clear)
				r.Post("/invalidate", cacheHandler.Invalidate)
			})
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/variant", configHandler.Active)
			r.Group(func(r chi.Router) {
				r.Use(clmw.BearerAuth(deps.AdminToken))
				r.Post("/variant", configHandler.Switch)
			})
		})
	})

	return r
}
