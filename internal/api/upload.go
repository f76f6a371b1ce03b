package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
	"github.com/nerrad567/gray-logic-capture/internal/ingest"
)

// multipartMemoryLimit is how much of a multipart upload is held in
// memory before spilling to temp files. Archives larger than this are
// spooled to disk by the multipart reader and read back for ingestion.
const multipartMemoryLimit = 32 << 20

// handleUpload ingests a diagnostic archive uploaded as multipart form
// data under the "file" field. The filename carries the project name and
// capture timestamp:
//
//	<project>_<YYYY-MM-DD-HHMMSS>_DiagnosticReports.tgz
//
// The project is created on first upload. Responds 201 with the
// ingestion result, including the warnings persisted on the capture.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		if isBodyTooLarge(err) {
			writeTooLarge(w, "archive exceeds the upload size limit")
			return
		}
		writeBadRequest(w, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.logger.Error("upload: failed to get file from form",
			"error", err,
			"content_type", r.Header.Get("Content-Type"),
		)
		writeBadRequest(w, "missing required 'file' field in form data")
		return
	}
	defer file.Close()

	projectName, timestamp, err := ingest.ParseArchiveName(header.Filename)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	archive, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("upload: failed to read file", "error", err)
		writeBadRequest(w, "failed to read uploaded file")
		return
	}

	project, err := s.store.EnsureProject(r.Context(), projectName)
	if err != nil {
		s.logger.Error("upload: failed to resolve project",
			"project", projectName,
			"error", err,
		)
		writeInternalError(w, "failed to resolve project")
		return
	}

	s.logger.Info("archive upload received",
		"filename", header.Filename,
		"project_id", project.ID,
		"bytes", len(archive),
	)

	s.ingestArchive(w, r, project.ID, archive, timestamp)
}

// handleCreateCapture ingests a raw archive posted as the request body
// for an existing project. An optional timestamp query parameter
// (RFC 3339) positions the capture on the project timeline; when absent,
// ingestion time is used.
func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var timestamp time.Time
	if raw := r.URL.Query().Get("timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "invalid timestamp: expected RFC 3339")
			return
		}
		timestamp = ts.UTC()
	}

	archive, err := io.ReadAll(r.Body)
	if err != nil {
		if isBodyTooLarge(err) {
			writeTooLarge(w, "archive exceeds the upload size limit")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}
	if len(archive) == 0 {
		writeBadRequest(w, "request body is empty")
		return
	}

	s.ingestArchive(w, r, projectID, archive, timestamp)
}

// ingestArchive runs the ingestion pipeline and maps its error taxonomy
// onto HTTP statuses. Unpacker failures are client errors: the capture
// is recorded as failed and the response names the cause.
func (s *Server) ingestArchive(w http.ResponseWriter, r *http.Request, projectID string, archive []byte, timestamp time.Time) {
	result, err := s.engine.Ingest(r.Context(), projectID, archive, timestamp)
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrProjectNotFound):
			writeNotFound(w, "project not found")
		case errors.Is(err, ingest.ErrArchiveTooLarge):
			writeError(w, http.StatusBadRequest, "archive_too_large", err.Error())
		case errors.Is(err, ingest.ErrPathTraversal):
			writeError(w, http.StatusBadRequest, "path_traversal", err.Error())
		case errors.Is(err, ingest.ErrCorruptArchive):
			writeError(w, http.StatusBadRequest, "corrupt_archive", err.Error())
		case errors.Is(err, capture.ErrDuplicateCommit):
			writeConflict(w, "capture already committed")
		default:
			s.logger.Error("archive ingestion failed",
				"project_id", projectID,
				"error", err,
			)
			writeInternalError(w, "failed to ingest archive")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// isBodyTooLarge reports whether err came from the request body size limit.
func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
