package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// parseHealth extracts the health record from a SystemHealth fragment.
// Same tolerance as parseNetwork; overall_health_rate is parsed as a
// numeric percentage when possible and retained raw otherwise.
func parseHealth(path string, data []byte) (*capture.HealthData, []capture.IngestionError) {
	fields, errs := decodeJSONObject(capture.ArtifactHealth, path, data)
	if fields == nil {
		return nil, errs
	}

	record := &capture.HealthData{
		DeviceName:        scalarField(fields, "device_name", capture.ArtifactHealth, path, &errs),
		Reason:            scalarField(fields, "reason", capture.ArtifactHealth, path, &errs),
		OverallHealthRate: healthRateField(fields, path, &errs),
	}
	return record, errs
}

// healthRateField parses overall_health_rate. Numbers and numeric
// strings (with an optional trailing "%") become Numeric; any other
// string is kept in Raw with a warning so the original reading survives.
func healthRateField(fields map[string]any, path string, errs *[]capture.IngestionError) *capture.HealthRate {
	value, ok := fields["overall_health_rate"]
	if !ok {
		*errs = append(*errs, capture.IngestionError{
			Artifact: capture.ArtifactHealth,
			Path:     path,
			Message:  `missing field "overall_health_rate"`,
		})
		return nil
	}

	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return &capture.HealthRate{Numeric: &f}
		}
		raw := v.String()
		*errs = append(*errs, nonNumericRateError(path, raw))
		return &capture.HealthRate{Raw: &raw}

	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return &capture.HealthRate{Numeric: &f}
		}
		*errs = append(*errs, nonNumericRateError(path, v))
		return &capture.HealthRate{Raw: &v}

	default:
		*errs = append(*errs, capture.IngestionError{
			Artifact: capture.ArtifactHealth,
			Path:     path,
			Message:  `field "overall_health_rate" has non-scalar value`,
		})
		return nil
	}
}

func nonNumericRateError(path, raw string) capture.IngestionError {
	return capture.IngestionError{
		Artifact: capture.ArtifactHealth,
		Path:     path,
		Message:  fmt.Sprintf("non-numeric overall_health_rate %q retained as raw string", raw),
	}
}
