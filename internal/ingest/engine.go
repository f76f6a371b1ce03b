package ingest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// Logger defines the logging interface used by the Engine.
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

// Notifier receives a capture lifecycle event after a successful commit.
// Implementations must not block; the engine calls them inline.
type Notifier interface {
	CaptureIngested(result capture.IngestionResult)
}

// MetricsRecorder records fleet metrics after a capture commits.
type MetricsRecorder interface {
	RecordCapture(c *capture.Capture, snapshots []capture.DeviceSnapshot)
}

// Warning codes attached to captures during ingestion.
const (
	warnUnclassified  = "unclassified_artifact"
	warnAmbiguous     = "ambiguous_classification"
	warnDuplicate     = "duplicate_artifact"
	warnFleetArtifact = "fleet_artifact"
	warnNoDevices     = "no_device_artifacts"
	warnUnpack        = "unpack_failed"
)

// failMarkTimeout bounds the status update that records an unpacker
// failure, which runs on a context detached from the request.
const failMarkTimeout = 5 * time.Second

// Engine orchestrates ingestion of one archive into one capture.
//
// Device-level parsing and assembly run on a bounded worker pool; the
// coordinator alone merges results, so there is no shared mutable state
// between devices. Commit exclusivity comes from the store's guarded
// status transition (first writer wins).
//
// Thread Safety: Ingest is safe for concurrent use.
type Engine struct {
	store      capture.Store
	classifier *Classifier
	limits     Limits
	workers    int
	logger     Logger
	notifier   Notifier
	metrics    MetricsRecorder
}

// NewEngine creates an ingestion engine.
//
// Parameters:
//   - store: Capture store for begin/commit operations
//   - limits: Archive ceilings (DefaultLimits when zero-valued fields)
//   - workers: Bound for concurrent device assembly (minimum 1)
//   - logger: Logger instance (nil for no logging)
func NewEngine(store capture.Store, limits Limits, workers int, logger Logger) *Engine {
	if limits.MaxArchiveBytes <= 0 || limits.MaxEntryBytes <= 0 || limits.MaxEntries <= 0 {
		limits = DefaultLimits()
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		store:      store,
		classifier: NewClassifier(nil),
		limits:     limits,
		workers:    workers,
		logger:     logger,
	}
}

// SetClassifier replaces the default classification rules.
func (e *Engine) SetClassifier(c *Classifier) {
	if c != nil {
		e.classifier = c
	}
}

// SetNotifier sets the post-commit event notifier.
func (e *Engine) SetNotifier(n Notifier) { e.notifier = n }

// SetMetrics sets the post-commit metrics recorder.
func (e *Engine) SetMetrics(m MetricsRecorder) { e.metrics = m }

// Ingest runs the full pipeline for one archive: begin capture, unpack,
// classify, parse and assemble per device, commit.
//
// A zero timestamp means "now". Unpacker failures (ErrArchiveTooLarge,
// ErrPathTraversal, ErrCorruptArchive) mark the capture failed with zero
// snapshots persisted and are returned to the caller; every other
// problem is accumulated as a warning on a committed capture.
func (e *Engine) Ingest(ctx context.Context, projectID string, archive []byte, timestamp time.Time) (*capture.IngestionResult, error) {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	c, err := e.store.BeginCapture(ctx, projectID, timestamp)
	if err != nil {
		return nil, fmt.Errorf("beginning capture: %w", err)
	}

	e.logger.Info("capture ingestion started",
		"capture_id", c.ID,
		"project_id", projectID,
		"archive_bytes", len(archive),
	)

	entries, err := Unpack(ctx, bytes.NewReader(archive), e.limits)
	if err != nil {
		e.failCapture(ctx, c.ID, err)
		return nil, err
	}

	snapshots, warnings, degraded := e.processEntries(ctx, entries)
	if ctxErr := ctx.Err(); ctxErr != nil {
		e.failCapture(ctx, c.ID, ctxErr)
		return nil, ctxErr
	}

	status := capture.StatusComplete
	if degraded {
		status = capture.StatusPartial
	}
	if len(snapshots) == 0 {
		warnings = append(warnings, capture.Warning{
			Code:    warnNoDevices,
			Message: "archive contains no device artifacts",
		})
	}

	for i := range snapshots {
		snapshots[i].CaptureID = c.ID
		snapshots[i].ProjectID = c.ProjectID
		snapshots[i].CaptureTimestamp = c.Timestamp
	}

	if err := e.store.CommitSnapshots(ctx, c.ID, snapshots, status, warnings); err != nil {
		return nil, fmt.Errorf("committing capture %s: %w", c.ID, err)
	}

	crashCount := 0
	for i := range snapshots {
		crashCount += len(snapshots[i].Crashes)
	}

	result := &capture.IngestionResult{
		CaptureID:   c.ID,
		ProjectID:   projectID,
		Status:      status,
		DeviceCount: len(snapshots),
		CrashCount:  crashCount,
		Warnings:    warnings,
	}

	e.logger.Info("capture ingestion complete",
		"capture_id", c.ID,
		"project_id", projectID,
		"status", string(status),
		"devices", result.DeviceCount,
		"crashes", result.CrashCount,
		"warnings", len(warnings),
	)

	if e.notifier != nil {
		e.notifier.CaptureIngested(*result)
	}
	if e.metrics != nil {
		committed := *c
		committed.Status = status
		committed.Warnings = warnings
		e.metrics.RecordCapture(&committed, snapshots)
	}

	return result, nil
}

// failCapture marks a capture failed after an unpacker-stage error. The
// mark runs on a context detached from the request so cancellation
// cannot leave the capture stuck pending.
func (e *Engine) failCapture(ctx context.Context, captureID string, cause error) {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failMarkTimeout)
	defer cancel()

	warnings := []capture.Warning{{Code: warnUnpack, Message: cause.Error()}}
	if err := e.store.MarkCaptureFailed(markCtx, captureID, warnings); err != nil {
		e.logger.Error("failed to mark capture failed",
			"capture_id", captureID,
			"error", err,
		)
	}

	e.logger.Warn("capture ingestion failed",
		"capture_id", captureID,
		"error", cause,
	)
}

// processEntries classifies extracted entries, parses fleet-scoped
// artifacts once, and assembles per-device snapshots on the worker pool.
// degraded reports whether any device produced zero usable fragments.
func (e *Engine) processEntries(ctx context.Context, entries []Entry) ([]capture.DeviceSnapshot, []capture.Warning, bool) {
	var warnings []capture.Warning

	deviceFragments := make(map[string][]fragment)
	var fleetFragments []fragment

	for _, entry := range entries {
		cls, ws, ok := e.classifier.Classify(entry.Path)
		warnings = append(warnings, ws...)
		if !ok {
			warnings = append(warnings, capture.Warning{
				Code:    warnUnclassified,
				Path:    entry.Path,
				Message: "no classification rule matched; entry quarantined",
			})
			continue
		}

		f := fragment{path: entry.Path, kind: cls.Kind, data: entry.Content}
		if cls.DeviceID == "" {
			fleetFragments = append(fleetFragments, f)
		} else {
			deviceFragments[cls.DeviceID] = append(deviceFragments[cls.DeviceID], f)
		}
	}

	fleet, fleetWarnings := parseFleet(ctx, fleetFragments)
	warnings = append(warnings, fleetWarnings...)

	deviceIDs := make([]string, 0, len(deviceFragments))
	for id := range deviceFragments {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	results := e.runWorkers(ctx, deviceIDs, deviceFragments)

	// Merge deterministically regardless of completion order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].snapshot.DeviceID < results[j].snapshot.DeviceID
	})

	degraded := false
	snapshots := make([]capture.DeviceSnapshot, 0, len(results))
	for _, res := range results {
		snap := res.snapshot
		if !res.usable {
			degraded = true
		}

		// Fleet-scoped data is attached after per-device assembly:
		// history events follow any per-device text history, blobs
		// attach to every device.
		if events, ok := fleet.history[snap.DeviceID]; ok {
			snap.LightingHistory = append(snap.LightingHistory, events...)
		}
		snap.WifiData = fleet.wifi
		snap.SystemStats = fleet.stats

		snapshots = append(snapshots, snap)
	}

	return snapshots, warnings, degraded
}

// fleetData holds artifacts that belong to the whole capture rather than
// one device.
type fleetData struct {
	history map[string][]capture.LightingEvent
	wifi    *string
	stats   *string
}

// parseFleet resolves and parses fleet-scoped fragments. Duplicates of
// the same kind resolve last-by-path-lexical-order with a warning, the
// same policy the assembler applies per device.
func parseFleet(ctx context.Context, fragments []fragment) (fleetData, []capture.Warning) {
	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].path < fragments[j].path
	})

	var warnings []capture.Warning
	kept := make(map[capture.ArtifactKind]fragment)
	for _, f := range fragments {
		if prev, ok := kept[f.kind]; ok {
			warnings = append(warnings, capture.Warning{
				Code:    warnDuplicate,
				Path:    f.path,
				Message: fmt.Sprintf("duplicate fleet %s artifact: %q supersedes %q", f.kind, f.path, prev.path),
			})
		}
		kept[f.kind] = f
	}

	var fleet fleetData
	if f, ok := kept[capture.ArtifactLightingHistory]; ok {
		history, ws := parseHistoryDB(ctx, f.path, f.data)
		warnings = append(warnings, ws...)
		fleet.history = history
	}
	if f, ok := kept[capture.ArtifactWifi]; ok {
		blob := string(f.data)
		fleet.wifi = &blob
	}
	if f, ok := kept[capture.ArtifactSystemStats]; ok {
		blob := string(f.data)
		fleet.stats = &blob
	}

	return fleet, warnings
}

// deviceResult is one worker's output for a single device.
type deviceResult struct {
	snapshot capture.DeviceSnapshot
	usable   bool
}

// runWorkers fans device assembly out to the bounded pool. The results
// channel is sized for every device so workers never block on send; only
// the coordinator reads it.
func (e *Engine) runWorkers(ctx context.Context, deviceIDs []string, fragments map[string][]fragment) []deviceResult {
	if len(deviceIDs) == 0 {
		return nil
	}

	workerCount := e.workers
	if workerCount > len(deviceIDs) {
		workerCount = len(deviceIDs)
	}

	jobs := make(chan string)
	results := make(chan deviceResult, len(deviceIDs))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for deviceID := range jobs {
				snap := assembleSnapshot(deviceID, fragments[deviceID])
				results <- deviceResult{snapshot: snap, usable: hasData(&snap)}
			}
		}()
	}

feed:
	for _, deviceID := range deviceIDs {
		select {
		case jobs <- deviceID:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	collected := make([]deviceResult, 0, len(deviceIDs))
	for res := range results {
		collected = append(collected, res)
	}
	return collected
}
