package diff

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// Logger defines the logging interface used by the Service.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the read-side subset of the capture store the facade needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*capture.Project, error)
	GetCapture(ctx context.Context, id string) (*capture.Capture, error)
	LatestCompleteCapture(ctx context.Context, projectID string) (*capture.Capture, error)
	GetCaptureSnapshots(ctx context.Context, captureID string) ([]capture.DeviceSnapshot, error)
	ListSnapshots(ctx context.Context, projectID, deviceID string, before time.Time) ([]capture.DeviceSnapshot, error)
}

// HistoryTailLimit is the default number of lighting-history entries
// surfaced on a view when a device's state leaves "found".
const HistoryTailLimit = 5

// stateFound is the network state of a healthy, reachable device. Views
// sort devices in any other state first.
const stateFound = "found"

// DeviceView pairs one device's snapshot in a capture with its nearest
// earlier snapshot and the field-level diff between them.
type DeviceView struct {
	Snapshot capture.DeviceSnapshot  `json:"snapshot"`
	Previous *capture.DeviceSnapshot `json:"previous,omitempty"`
	Diff     Diff                    `json:"diff"`

	// RecentHistory holds the tail of the snapshot's lighting history,
	// newest first. It is set only when the device's state moved away
	// from "found" since the previous snapshot.
	RecentHistory []capture.LightingEvent `json:"recent_history,omitempty"`
}

// Service assembles diff-annotated device views from the capture store.
//
// Views are derived per request and never persisted, so they can never go
// stale against later captures.
type Service struct {
	store       Store
	logger      Logger
	historyTail int
}

// NewService creates a device view service backed by the given store.
func NewService(store Store) *Service {
	return &Service{
		store:       store,
		logger:      noopLogger{},
		historyTail: HistoryTailLimit,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetHistoryTail overrides the number of lighting-history entries
// attached on a found-departure. Values below 1 are ignored.
func (s *Service) SetHistoryTail(n int) {
	if n >= 1 {
		s.historyTail = n
	}
}

// DeviceViews returns one view per device snapshot in the requested
// capture, each annotated with its predecessor and diff.
//
// An empty captureID selects the project's most recent complete capture;
// a project with no complete capture yields an empty view. A pending
// capture fails with ErrCaptureNotReady. A failed capture owns no
// snapshots and yields an empty view.
//
// Devices are ordered with non-"found" states first, then by state, then
// by device ID, so troubled devices lead the listing deterministically.
func (s *Service) DeviceViews(ctx context.Context, projectID, captureID string) ([]DeviceView, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	c, err := s.resolveCapture(ctx, projectID, captureID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Status == capture.StatusFailed {
		return []DeviceView{}, nil
	}
	if c.Status == capture.StatusPending {
		return nil, fmt.Errorf("%w: %s", capture.ErrCaptureNotReady, c.ID)
	}

	snapshots, err := s.store.GetCaptureSnapshots(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for capture %s: %w", c.ID, err)
	}

	views := make([]DeviceView, 0, len(snapshots))
	for i := range snapshots {
		view, err := s.buildView(ctx, &snapshots[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	sortViews(views)

	s.logger.Debug("device views assembled",
		"capture_id", c.ID,
		"project_id", projectID,
		"devices", len(views),
	)
	return views, nil
}

// resolveCapture picks the capture to view. A nil capture with nil error
// means the project has nothing viewable yet.
func (s *Service) resolveCapture(ctx context.Context, projectID, captureID string) (*capture.Capture, error) {
	if captureID == "" {
		c, err := s.store.LatestCompleteCapture(ctx, projectID)
		if errors.Is(err, capture.ErrCaptureNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolving latest capture: %w", err)
		}
		return c, nil
	}

	c, err := s.store.GetCapture(ctx, captureID)
	if err != nil {
		return nil, fmt.Errorf("resolving capture: %w", err)
	}
	if c.ProjectID != projectID {
		return nil, fmt.Errorf("resolving capture: %w", capture.ErrCaptureNotFound)
	}
	return c, nil
}

// buildView resolves the snapshot's predecessor and computes its diff.
func (s *Service) buildView(ctx context.Context, snap *capture.DeviceSnapshot) (DeviceView, error) {
	history, err := s.store.ListSnapshots(ctx, snap.ProjectID, snap.DeviceID, snap.CaptureTimestamp)
	if err != nil {
		return DeviceView{}, fmt.Errorf("resolving previous snapshot for device %s: %w", snap.DeviceID, err)
	}

	var previous *capture.DeviceSnapshot
	if len(history) > 0 {
		previous = &history[0]
	}

	view := DeviceView{
		Snapshot: *snap,
		Previous: previous,
		Diff:     Compute(snap, previous),
	}
	if leftFound(previous, snap) {
		view.RecentHistory = historyTail(snap.LightingHistory, s.historyTail)
	}
	return view, nil
}

// leftFound reports whether the device's state moved away from "found"
// between the two snapshots.
func leftFound(previous, current *capture.DeviceSnapshot) bool {
	prev := previous.State()
	if prev == nil || *prev != stateFound {
		return false
	}
	cur := current.State()
	return cur == nil || *cur != stateFound
}

// historyTail returns the last n events, newest first. Stored history is
// chronological oldest-first, so the tail is reversed for display.
func historyTail(events []capture.LightingEvent, n int) []capture.LightingEvent {
	if len(events) == 0 || n < 1 {
		return nil
	}
	if len(events) > n {
		events = events[len(events)-n:]
	}
	tail := make([]capture.LightingEvent, len(events))
	for i := range events {
		tail[len(events)-1-i] = events[i]
	}
	return tail
}

// sortViews orders device views for display: devices in any non-"found"
// state first, then by state, with device ID as the final tie-break.
func sortViews(views []DeviceView) {
	sort.Slice(views, func(i, j int) bool {
		si, sj := viewState(&views[i]), viewState(&views[j])
		fi, fj := si == stateFound, sj == stateFound
		if fi != fj {
			return !fi
		}
		if si != sj {
			return si < sj
		}
		return views[i].Snapshot.DeviceID < views[j].Snapshot.DeviceID
	})
}

func viewState(v *DeviceView) string {
	if state := v.Snapshot.State(); state != nil {
		return *state
	}
	return ""
}
