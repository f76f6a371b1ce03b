package capture

import (
	"strconv"
	"time"
)

// Project groups captures uploaded for one site or customer installation.
// Project names are resolved from archive filenames by the upload layer and
// are unique across the store.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is the ingestion status of a capture.
type Status string

// Status constants.
const (
	// StatusPending marks a capture that has been begun but not committed.
	StatusPending Status = "pending"

	// StatusPartial marks a committed capture where at least one device
	// produced no usable fragments.
	StatusPartial Status = "partial"

	// StatusComplete marks a committed capture where every discovered
	// device produced at least a partial snapshot.
	StatusComplete Status = "complete"

	// StatusFailed marks a capture aborted by an unpacker or classifier
	// stage failure before any snapshot existed. Failed captures own no
	// snapshots and are hidden from capture listings.
	StatusFailed Status = "failed"
)

// AllStatuses returns all valid capture status values.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusPartial, StatusComplete, StatusFailed}
}

// Capture is one ingested diagnostic archive for a project.
//
// Timestamp is the sole ordering key for the capture timeline: previous
// snapshot resolution picks the nearest strictly-earlier timestamp, never
// insertion order, so captures committed out of order still diff correctly.
type Capture struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`

	// Warnings accumulated during ingestion that are not tied to a single
	// device: unclassified entries, duplicate fragments, tie-broken
	// classifier matches. Persisted with the capture.
	Warnings []Warning `json:"warnings,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
}

// Warning is a capture-level ingestion warning. Warnings are diagnostic,
// not transient logs: they are stored so a later audit can explain why an
// entry was skipped or a value is missing.
type Warning struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ArtifactKind identifies the type of a per-device log fragment found in
// an archive. The taxonomy is fixed; entries matching none of the kinds
// are quarantined as capture warnings.
type ArtifactKind string

// Artifact kind constants.
const (
	ArtifactNetwork         ArtifactKind = "network"
	ArtifactHealth          ArtifactKind = "health"
	ArtifactCrash           ArtifactKind = "crash"
	ArtifactLightingHistory ArtifactKind = "lighting-history"
	ArtifactWifi            ArtifactKind = "wifi"
	ArtifactSystemStats     ArtifactKind = "system-stats"
)

// AllArtifactKinds returns all valid artifact kinds.
func AllArtifactKinds() []ArtifactKind {
	return []ArtifactKind{
		ArtifactNetwork, ArtifactHealth, ArtifactCrash,
		ArtifactLightingHistory, ArtifactWifi, ArtifactSystemStats,
	}
}

// NetworkData holds the parsed network artifact for one device.
// Fields missing from the source fragment stay nil.
type NetworkData struct {
	IP         *string `json:"ip,omitempty"`
	State      *string `json:"state,omitempty"`
	RSSI       *string `json:"rssi,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
}

// HealthData holds the parsed health artifact for one device.
type HealthData struct {
	DeviceName        *string     `json:"device_name,omitempty"`
	Reason            *string     `json:"reason,omitempty"`
	OverallHealthRate *HealthRate `json:"overall_health_rate,omitempty"`
}

// HealthRate is the overall health rate as reported by the device.
// Numeric is set when the source value parses as a number; otherwise Raw
// preserves the original text and the fragment carries a warning.
// Presentation layers append "%" only to numeric rates.
type HealthRate struct {
	Numeric *float64 `json:"numeric,omitempty"`
	Raw     *string  `json:"raw,omitempty"`
}

// String returns the canonical text form of the rate: the shortest exact
// decimal for numeric values, the raw text otherwise.
func (r *HealthRate) String() string {
	if r == nil {
		return ""
	}
	if r.Numeric != nil {
		return strconv.FormatFloat(*r.Numeric, 'f', -1, 64)
	}
	if r.Raw != nil {
		return *r.Raw
	}
	return ""
}

// CrashReport is one crash entry extracted from a device's crash artifact.
// Content is the full entry text exactly as found in the archive; crash
// dumps are diagnostic evidence and are never normalised or trimmed.
type CrashReport struct {
	Process   *string `json:"process,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
	Content   string  `json:"content"`
}

// LightingEvent is one lighting state change. Events are kept in
// chronological order, oldest first, as emitted by the source.
type LightingEvent struct {
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// IngestionError records a per-artifact parse failure or warning for one
// device. Errors are retained on the snapshot indefinitely so the absence
// of a field can always be explained.
type IngestionError struct {
	Artifact ArtifactKind `json:"artifact"`
	Path     string       `json:"path,omitempty"`
	Message  string       `json:"message"`
}

// DeviceSnapshot is the per-device, per-capture normalised record.
//
// DeviceID is the stable logical identity of the device across captures;
// it is not the snapshot ID. ProjectID and CaptureTimestamp are copied from
// the owning capture so history lookups need no join. Within one capture
// there is at most one snapshot per device (enforced by the store).
type DeviceSnapshot struct {
	ID               string    `json:"id"`
	CaptureID        string    `json:"capture_id"`
	ProjectID        string    `json:"project_id"`
	DeviceID         string    `json:"device_id"`
	CaptureTimestamp time.Time `json:"capture_timestamp"`

	Network *NetworkData `json:"network_data,omitempty"`
	Health  *HealthData  `json:"health_data,omitempty"`

	Crashes         []CrashReport   `json:"related_crashes,omitempty"`
	LightingHistory []LightingEvent `json:"lighting_history,omitempty"`

	// Raw dumps stored verbatim for formats not yet modelled.
	SystemStats *string `json:"system_stats,omitempty"`
	WifiData    *string `json:"wifi_data,omitempty"`

	IngestionErrors []IngestionError `json:"ingestion_errors,omitempty"`
}

// State returns the device's network state value, or nil when the network
// artifact or its state field is absent.
func (s *DeviceSnapshot) State() *string {
	if s == nil || s.Network == nil {
		return nil
	}
	return s.Network.State
}

// DeepCopy creates a complete independent copy of the snapshot.
// Slice fields are cloned so modifications to the copy do not affect the
// original. Pointer fields to immutable values (strings, floats) are shared.
func (s *DeviceSnapshot) DeepCopy() *DeviceSnapshot {
	if s == nil {
		return nil
	}

	cpy := *s

	if s.Network != nil {
		n := *s.Network
		cpy.Network = &n
	}
	if s.Health != nil {
		h := *s.Health
		if s.Health.OverallHealthRate != nil {
			r := *s.Health.OverallHealthRate
			h.OverallHealthRate = &r
		}
		cpy.Health = &h
	}
	if s.Crashes != nil {
		cpy.Crashes = make([]CrashReport, len(s.Crashes))
		copy(cpy.Crashes, s.Crashes)
	}
	if s.LightingHistory != nil {
		cpy.LightingHistory = make([]LightingEvent, len(s.LightingHistory))
		copy(cpy.LightingHistory, s.LightingHistory)
	}
	if s.IngestionErrors != nil {
		cpy.IngestionErrors = make([]IngestionError, len(s.IngestionErrors))
		copy(cpy.IngestionErrors, s.IngestionErrors)
	}

	return &cpy
}

// IngestionResult is returned to the caller of an ingest operation.
type IngestionResult struct {
	CaptureID   string    `json:"capture_id"`
	ProjectID   string    `json:"project_id"`
	Status      Status    `json:"status"`
	DeviceCount int       `json:"device_count"`
	CrashCount  int       `json:"crash_count"`
	Warnings    []Warning `json:"warnings,omitempty"`
}

// CaptureStats summarises one capture for the project stats view.
type CaptureStats struct {
	CaptureID   string    `json:"capture_id"`
	Timestamp   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
	DeviceCount int       `json:"device_count"`
	CrashCount  int       `json:"crash_count"`
}

// ProjectStats summarises a project's capture history.
type ProjectStats struct {
	ProjectID   string         `json:"project_id"`
	ProjectName string         `json:"project_name"`
	Captures    []CaptureStats `json:"captures"`
}
