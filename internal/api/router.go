// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter returns a Router. A nil middleware selects the defaults.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	return &Router{handler: handler, middleware: mw}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("No such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Upgraded connections bypass the JSON middleware.
		r.Get("/ws", router.handler.WebSocket(router.middleware.AllowsOrigin))

		r.Group(func(r chi.Router) {
			r.Use(SecurityHeaders())
			r.Use(PrometheusMetrics)

			r.Get("/health", router.handler.Health)
			r.Get("/storage/status", router.handler.StorageStatus)
			r.Get("/models", router.handler.ListModels)
			r.Get("/backups", router.handler.ListBackups)
			r.Get("/backups/inspect", router.handler.InspectBackup)

			// Every route below writes the storage medium.
			r.Group(func(r chi.Router) {
				r.Use(router.middleware.RateLimitMutating())

				r.Post("/storage/flush", router.handler.StorageFlush)
				r.Post("/storage/format", router.handler.StorageFormat)
				r.Post("/models", router.handler.CreateModel)
				r.Post("/models/select", router.handler.SelectModel)
				r.Post("/backups", router.handler.CreateBackup)
				r.Post("/backups/restore", router.handler.RestoreBackup)
			})
		})
	})

	return r
}
