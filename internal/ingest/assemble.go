package ingest

import (
	"fmt"
	"sort"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// fragment is one classified, device-scoped archive entry awaiting
// parsing.
type fragment struct {
	path string
	kind capture.ArtifactKind
	data []byte
}

// assembleSnapshot merges every fragment for one device into a single
// snapshot. Fragments are visited in path-lexical order: duplicate
// network/health fragments resolve last-parseable-wins with a warning,
// crashes and lighting history concatenate in encounter order. Parse
// failures land in IngestionErrors and never abort the device.
func assembleSnapshot(deviceID string, fragments []fragment) capture.DeviceSnapshot {
	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].path < fragments[j].path
	})

	snap := capture.DeviceSnapshot{DeviceID: deviceID}

	var networkPath, healthPath string
	var sawNetwork, sawHealth bool
	for _, f := range fragments {
		switch f.kind {
		case capture.ArtifactNetwork:
			sawNetwork = true
			record, errs := parseNetwork(f.path, f.data)
			snap.IngestionErrors = append(snap.IngestionErrors, errs...)
			if record == nil {
				continue
			}
			if snap.Network != nil {
				snap.IngestionErrors = append(snap.IngestionErrors,
					duplicateFragmentError(capture.ArtifactNetwork, f.path, networkPath))
			}
			snap.Network = record
			networkPath = f.path

		case capture.ArtifactHealth:
			sawHealth = true
			record, errs := parseHealth(f.path, f.data)
			snap.IngestionErrors = append(snap.IngestionErrors, errs...)
			if record == nil {
				continue
			}
			if snap.Health != nil {
				snap.IngestionErrors = append(snap.IngestionErrors,
					duplicateFragmentError(capture.ArtifactHealth, f.path, healthPath))
			}
			snap.Health = record
			healthPath = f.path

		case capture.ArtifactCrash:
			snap.Crashes = append(snap.Crashes, parseCrashes(f.data)...)

		case capture.ArtifactLightingHistory:
			events, errs := parseHistoryText(f.path, f.data)
			snap.IngestionErrors = append(snap.IngestionErrors, errs...)
			snap.LightingHistory = append(snap.LightingHistory, events...)

		default:
			// Wifi and system stats are fleet-scoped; a device-scoped
			// fragment of those kinds means a misconfigured rule set.
			snap.IngestionErrors = append(snap.IngestionErrors, capture.IngestionError{
				Artifact: f.kind,
				Path:     f.path,
				Message:  fmt.Sprintf("unexpected device-scoped %s fragment", f.kind),
			})
		}
	}

	// Exactly one network and one health fragment are expected per
	// device; a missing one is recorded so the absent field can be
	// explained later.
	if !sawNetwork {
		snap.IngestionErrors = append(snap.IngestionErrors, capture.IngestionError{
			Artifact: capture.ArtifactNetwork,
			Message:  "no network artifact found for device",
		})
	}
	if !sawHealth {
		snap.IngestionErrors = append(snap.IngestionErrors, capture.IngestionError{
			Artifact: capture.ArtifactHealth,
			Message:  "no health artifact found for device",
		})
	}

	return snap
}

// hasData reports whether any device-scoped fragment contributed data to
// the snapshot. Evaluated before fleet-scoped blobs are attached: a
// device visible only through ingestion errors counts as failed to parse.
func hasData(s *capture.DeviceSnapshot) bool {
	return s.Network != nil || s.Health != nil ||
		len(s.Crashes) > 0 || len(s.LightingHistory) > 0
}

func duplicateFragmentError(kind capture.ArtifactKind, winner, loser string) capture.IngestionError {
	return capture.IngestionError{
		Artifact: kind,
		Path:     winner,
		Message:  fmt.Sprintf("duplicate %s artifact: %q supersedes %q", kind, winner, loser),
	}
}
