package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// parseNetwork extracts the network record from a NetworkDevice fragment.
// The fragment is a JSON object; missing keys leave the field nil with a
// warning. Input that is not a JSON object yields a nil record and a
// single error-grade warning.
func parseNetwork(path string, data []byte) (*capture.NetworkData, []capture.IngestionError) {
	fields, errs := decodeJSONObject(capture.ArtifactNetwork, path, data)
	if fields == nil {
		return nil, errs
	}

	record := &capture.NetworkData{
		IP:         scalarField(fields, "ip", capture.ArtifactNetwork, path, &errs),
		State:      scalarField(fields, "state", capture.ArtifactNetwork, path, &errs),
		RSSI:       scalarField(fields, "rssi", capture.ArtifactNetwork, path, &errs),
		DeviceType: scalarField(fields, "device_type", capture.ArtifactNetwork, path, &errs),
	}
	return record, errs
}

// decodeJSONObject parses a fragment as a JSON object, preserving number
// precision via json.Number. Returns a nil map plus an ingestion error
// when the fragment is not a JSON object.
func decodeJSONObject(kind capture.ArtifactKind, path string, data []byte) (map[string]any, []capture.IngestionError) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, []capture.IngestionError{{
			Artifact: kind,
			Path:     path,
			Message:  fmt.Sprintf("invalid JSON: %v", err),
		}}
	}
	return fields, nil
}

// scalarField stringifies the named key when present. Strings pass
// through verbatim, numbers keep their JSON representation, booleans are
// formatted. Missing keys and non-scalar values return nil with a
// warning appended to errs.
func scalarField(fields map[string]any, key string, kind capture.ArtifactKind, path string, errs *[]capture.IngestionError) *string {
	value, ok := fields[key]
	if !ok {
		*errs = append(*errs, capture.IngestionError{
			Artifact: kind,
			Path:     path,
			Message:  fmt.Sprintf("missing field %q", key),
		})
		return nil
	}

	switch v := value.(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	case bool:
		s := strconv.FormatBool(v)
		return &s
	default:
		*errs = append(*errs, capture.IngestionError{
			Artifact: kind,
			Path:     path,
			Message:  fmt.Sprintf("field %q has non-scalar value", key),
		})
		return nil
	}
}
