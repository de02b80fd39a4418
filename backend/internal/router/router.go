package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itchan-dev/boardkeeper/backend/internal/setup"
	mw "github.com/itchan-dev/boardkeeper/shared/middleware"
)

// New creates the ops router: probes, metrics and read-only board inspection.
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(deps.HTTPMetrics.Middleware)
	r.Use(mw.SecurityHeadersWithCSP(mw.OpsCSP))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))

	r.Get("/debug/boards", h.DebugBoards)
	r.Get("/debug/boards/{board}", h.DebugBoard)

	return r
}
