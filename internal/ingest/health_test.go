package ingest

import (
	"strings"
	"testing"
)

func TestParseHealth(t *testing.T) {
	data := []byte(`{"device_name":"Kitchen Dimmer","reason":"ok","overall_health_rate":98.5}`)

	record, errs := parseHealth("lighting/SystemHealth/A1", data)
	if record == nil {
		t.Fatal("record = nil, want parsed health data")
	}
	if len(errs) != 0 {
		t.Errorf("errs = %+v, want none", errs)
	}
	if record.DeviceName == nil || *record.DeviceName != "Kitchen Dimmer" {
		t.Errorf("DeviceName = %v, want Kitchen Dimmer", record.DeviceName)
	}
	rate := record.OverallHealthRate
	if rate == nil || rate.Numeric == nil || *rate.Numeric != 98.5 {
		t.Fatalf("OverallHealthRate = %+v, want numeric 98.5", rate)
	}
	if rate.Raw != nil {
		t.Errorf("Raw = %q, want nil when numeric parsed", *rate.Raw)
	}
	if rate.String() != "98.5" {
		t.Errorf("rate.String() = %q, want 98.5", rate.String())
	}
}

func TestParseHealth_RateVariants(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantNumeric *float64
		wantRaw     string
		wantWarning bool
	}{
		{"integer", `{"overall_health_rate":100}`, floatPtrTest(100), "", false},
		{"numeric string", `{"overall_health_rate":"87.25"}`, floatPtrTest(87.25), "", false},
		{"percent suffix", `{"overall_health_rate":"87%"}`, floatPtrTest(87), "", false},
		{"non-numeric string", `{"overall_health_rate":"degraded"}`, nil, "degraded", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, errs := parseHealth("p", []byte(tt.payload))
			if record == nil {
				t.Fatal("record = nil, want parsed health data")
			}
			rate := record.OverallHealthRate
			if rate == nil {
				t.Fatal("OverallHealthRate = nil, want a rate")
			}

			switch {
			case tt.wantNumeric != nil:
				if rate.Numeric == nil || *rate.Numeric != *tt.wantNumeric {
					t.Errorf("Numeric = %v, want %v", rate.Numeric, *tt.wantNumeric)
				}
			default:
				if rate.Numeric != nil {
					t.Errorf("Numeric = %v, want nil", *rate.Numeric)
				}
				if rate.Raw == nil || *rate.Raw != tt.wantRaw {
					t.Errorf("Raw = %v, want %q", rate.Raw, tt.wantRaw)
				}
			}

			// device_name and reason are absent in every payload, so two
			// missing-field warnings are always present.
			extra := len(errs) - 2
			if tt.wantWarning && extra != 1 {
				t.Errorf("extra warnings = %d, want 1 for raw retention", extra)
			}
			if !tt.wantWarning && extra != 0 {
				t.Errorf("extra warnings = %d, want 0", extra)
			}
		})
	}
}

func TestParseHealth_InvalidJSON(t *testing.T) {
	record, errs := parseHealth("p", []byte("[1,2,3]"))
	if record != nil {
		t.Errorf("record = %+v, want nil for non-object fragment", record)
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "invalid JSON") {
		t.Errorf("errs = %+v, want single invalid JSON error", errs)
	}
}

func floatPtrTest(f float64) *float64 { return &f }
