package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// handleListCaptures returns a project's non-failed captures, newest
// first. Warnings persisted at ingestion time ride along on each capture.
func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	// ListCaptures returns an empty slice for unknown projects; resolve
	// the project first so missing ones get a 404 rather than [].
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, capture.ErrProjectNotFound) {
			writeNotFound(w, "project not found")
			return
		}
		s.logger.Error("failed to get project", "project_id", projectID, "error", err)
		writeInternalError(w, "failed to list captures")
		return
	}

	captures, err := s.store.ListCaptures(r.Context(), projectID)
	if err != nil {
		s.logger.Error("failed to list captures", "project_id", projectID, "error", err)
		writeInternalError(w, "failed to list captures")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"captures": captures,
		"count":    len(captures),
	})
}

// handleGetCapture returns one capture with its snapshots. Captures are
// scoped to their project: a capture reached through the wrong project
// is reported as not found.
func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	captureID := chi.URLParam(r, "captureID")

	c, err := s.store.GetCapture(r.Context(), captureID)
	if err != nil {
		if errors.Is(err, capture.ErrCaptureNotFound) {
			writeNotFound(w, "capture not found")
			return
		}
		s.logger.Error("failed to get capture", "capture_id", captureID, "error", err)
		writeInternalError(w, "failed to get capture")
		return
	}
	if c.ProjectID != projectID {
		writeNotFound(w, "capture not found")
		return
	}

	snapshots, err := s.store.GetCaptureSnapshots(r.Context(), captureID)
	if err != nil {
		s.logger.Error("failed to get capture snapshots", "capture_id", captureID, "error", err)
		writeInternalError(w, "failed to get capture")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"capture":   c,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
