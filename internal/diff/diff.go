package diff

import (
	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// Change classifies how one tracked field moved between two snapshots.
type Change string

// Change constants.
const (
	// ChangeUnchanged means both values are equal, including both absent.
	ChangeUnchanged Change = "unchanged"

	// ChangeChanged means both values are present and differ.
	ChangeChanged Change = "changed"

	// ChangeAppeared means the field is present now but was absent before.
	ChangeAppeared Change = "appeared"

	// ChangeDisappeared means the field was present before but is absent now.
	ChangeDisappeared Change = "disappeared"
)

// FieldDiff is the classification of one tracked field plus the values
// that produced it. Previous and Current are nil when the field was
// absent on that side.
type FieldDiff struct {
	Change   Change  `json:"change"`
	Previous *string `json:"previous,omitempty"`
	Current  *string `json:"current,omitempty"`
}

// Diff maps each tracked field name to its classification. Every tracked
// field is always present in the map so consumers see a stable shape.
type Diff map[string]FieldDiff

// Changed reports whether any tracked field moved.
func (d Diff) Changed() bool {
	for _, f := range d {
		if f.Change != ChangeUnchanged {
			return true
		}
	}
	return false
}

// trackedField extracts one comparable field from a snapshot. A nil
// return means the field is absent on that snapshot.
type trackedField struct {
	name    string
	extract func(s *capture.DeviceSnapshot) *string
}

// trackedFields lists the fields the diff engine compares. Values are
// canonicalized to strings before comparison; health rates use their
// canonical text form (numeric without a percent sign, raw text as-is).
var trackedFields = []trackedField{
	{"state", func(s *capture.DeviceSnapshot) *string { return networkField(s, func(n *capture.NetworkData) *string { return n.State }) }},
	{"rssi", func(s *capture.DeviceSnapshot) *string { return networkField(s, func(n *capture.NetworkData) *string { return n.RSSI }) }},
	{"overall_health_rate", healthRateValue},
	{"ip", func(s *capture.DeviceSnapshot) *string { return networkField(s, func(n *capture.NetworkData) *string { return n.IP }) }},
	{"device_name", func(s *capture.DeviceSnapshot) *string { return healthField(s, func(h *capture.HealthData) *string { return h.DeviceName }) }},
	{"reason", func(s *capture.DeviceSnapshot) *string { return healthField(s, func(h *capture.HealthData) *string { return h.Reason }) }},
}

// TrackedFieldNames returns the names of the compared fields in their
// canonical display order.
func TrackedFieldNames() []string {
	names := make([]string, len(trackedFields))
	for i, f := range trackedFields {
		names[i] = f.name
	}
	return names
}

func networkField(s *capture.DeviceSnapshot, get func(*capture.NetworkData) *string) *string {
	if s == nil || s.Network == nil {
		return nil
	}
	return get(s.Network)
}

func healthField(s *capture.DeviceSnapshot, get func(*capture.HealthData) *string) *string {
	if s == nil || s.Health == nil {
		return nil
	}
	return get(s.Health)
}

func healthRateValue(s *capture.DeviceSnapshot) *string {
	if s == nil || s.Health == nil || s.Health.OverallHealthRate == nil {
		return nil
	}
	v := s.Health.OverallHealthRate.String()
	if v == "" {
		return nil
	}
	return &v
}

// Compute classifies every tracked field of current against previous.
// Either snapshot may be nil; a nil previous classifies each present
// field as appeared. Compute is pure: identical inputs always produce
// identical output, with no store access and no hidden state.
func Compute(current, previous *capture.DeviceSnapshot) Diff {
	d := make(Diff, len(trackedFields))
	for _, f := range trackedFields {
		d[f.name] = classify(f.extract(previous), f.extract(current))
	}
	return d
}

func classify(previous, current *string) FieldDiff {
	switch {
	case previous == nil && current == nil:
		return FieldDiff{Change: ChangeUnchanged}
	case previous == nil:
		return FieldDiff{Change: ChangeAppeared, Current: current}
	case current == nil:
		return FieldDiff{Change: ChangeDisappeared, Previous: previous}
	case *previous == *current:
		return FieldDiff{Change: ChangeUnchanged, Previous: previous, Current: current}
	default:
		return FieldDiff{Change: ChangeChanged, Previous: previous, Current: current}
	}
}
