package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Liveness probe outside the versioned tree for orchestrators
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Archive upload: project and timestamp resolved from the filename
		r.Post("/upload", s.handleUpload)

		// Project endpoints
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Get("/stats", s.handleProjectStats)
				r.Get("/devices", s.handleDeviceViews)

				r.Route("/captures", func(r chi.Router) {
					r.Get("/", s.handleListCaptures)
					r.Post("/", s.handleCreateCapture)
					r.Get("/{captureID}", s.handleGetCapture)
				})
			})
		})
	})

	return r
}

// handleHealth reports liveness, the build version, and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}
