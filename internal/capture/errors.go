package capture

import "errors"

// Domain errors for the capture package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, capture.ErrDuplicateCommit) {
//	    // capture was already committed by another writer
//	}
var (
	// ErrProjectNotFound is returned when a project ID does not exist.
	ErrProjectNotFound = errors.New("capture: project not found")

	// ErrProjectExists is returned when creating a project whose name is taken.
	ErrProjectExists = errors.New("capture: project already exists")

	// ErrCaptureNotFound is returned when a capture ID does not exist.
	ErrCaptureNotFound = errors.New("capture: not found")

	// ErrDuplicateCommit is returned when committing a capture that has
	// already left the pending state. The first writer wins; the capture
	// is immutable afterwards.
	ErrDuplicateCommit = errors.New("capture: already committed")

	// ErrCaptureNotReady is returned when querying device views for a
	// capture still in the pending state.
	ErrCaptureNotReady = errors.New("capture: not ready")

	// ErrInvalidStatus is returned when committing with a status other
	// than partial or complete.
	ErrInvalidStatus = errors.New("capture: invalid commit status")
)
