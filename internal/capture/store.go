package capture

import (
	"context"
	"time"
)

// Store defines the persistence contract for projects, captures, and device
// snapshots. This abstraction allows for different implementations (SQLite,
// mock, etc.) and enables unit testing without database dependencies.
//
// Timestamp ordering is the only required query shape beyond key lookups:
// ListSnapshots and ListCaptures order strictly by capture timestamp,
// newest first.
type Store interface {
	// EnsureProject returns the project with the given name, creating it
	// if it does not exist. Names are unique.
	EnsureProject(ctx context.Context, name string) (*Project, error)

	// GetProject retrieves a project by ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetProject(ctx context.Context, id string) (*Project, error)

	// ListProjects retrieves all projects, newest first.
	ListProjects(ctx context.Context) ([]Project, error)

	// BeginCapture creates a pending capture for a project. The timestamp
	// becomes the capture's position on the project timeline.
	// Returns ErrProjectNotFound if the project does not exist.
	BeginCapture(ctx context.Context, projectID string, timestamp time.Time) (*Capture, error)

	// CommitSnapshots atomically persists every snapshot of a capture and
	// transitions the capture from pending to the given status (partial or
	// complete). All snapshots are written or none are. A capture that has
	// already left pending fails with ErrDuplicateCommit.
	CommitSnapshots(ctx context.Context, captureID string, snapshots []DeviceSnapshot, status Status, warnings []Warning) error

	// MarkCaptureFailed transitions a pending capture to failed. Failed
	// captures own no snapshots and never appear in listings.
	MarkCaptureFailed(ctx context.Context, captureID string, warnings []Warning) error

	// GetCapture retrieves a capture by ID.
	// Returns ErrCaptureNotFound if the capture does not exist.
	GetCapture(ctx context.Context, id string) (*Capture, error)

	// GetCaptureSnapshots retrieves all snapshots of a capture, ordered by
	// device ID for deterministic output.
	GetCaptureSnapshots(ctx context.Context, captureID string) ([]DeviceSnapshot, error)

	// ListCaptures retrieves a project's non-failed captures, newest first.
	ListCaptures(ctx context.Context, projectID string) ([]Capture, error)

	// LatestCompleteCapture retrieves the newest capture with status
	// complete. Returns ErrCaptureNotFound when the project has none.
	LatestCompleteCapture(ctx context.Context, projectID string) (*Capture, error)

	// ListSnapshots retrieves a device's snapshots with capture timestamps
	// strictly earlier than before, newest first. Passing the zero time
	// returns the device's whole history.
	ListSnapshots(ctx context.Context, projectID, deviceID string, before time.Time) ([]DeviceSnapshot, error)

	// ProjectStats summarises per-capture device and crash counts for a
	// project's non-failed captures, newest first.
	// Returns ErrProjectNotFound if the project does not exist.
	ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error)
}
