package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// handleDeviceViews returns diff-annotated device views for a capture.
//
// Without a capture_id query parameter the project's latest complete
// capture is used; a project with no complete capture yields an empty
// listing. Devices whose state is anything other than "found" sort
// first, so troubled devices lead the response.
func (s *Server) handleDeviceViews(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	captureID := r.URL.Query().Get("capture_id")

	views, err := s.views.DeviceViews(r.Context(), projectID, captureID)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrProjectNotFound):
			writeNotFound(w, "project not found")
		case errors.Is(err, capture.ErrCaptureNotFound):
			writeNotFound(w, "capture not found")
		case errors.Is(err, capture.ErrCaptureNotReady):
			writeConflict(w, "capture has not finished ingesting")
		default:
			s.logger.Error("failed to build device views",
				"project_id", projectID,
				"capture_id", captureID,
				"error", err,
			)
			writeInternalError(w, "failed to build device views")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}
