package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// handleListProjects returns all projects, newest first.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		writeInternalError(w, "failed to list projects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleGetProject returns a single project by ID.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, capture.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("failed to get project", "project_id", projectID, "error", err)
		writeInternalError(w, "failed to get project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// handleProjectStats returns per-capture device and crash counts for a
// project's non-failed captures, newest first.
func (s *Server) handleProjectStats(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	stats, err := s.store.ProjectStats(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, capture.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("failed to get project stats", "project_id", projectID, "error", err)
		writeInternalError(w, "failed to get project stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
