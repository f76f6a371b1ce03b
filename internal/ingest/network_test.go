package ingest

import (
	"strings"
	"testing"
)

func TestParseNetwork(t *testing.T) {
	data := []byte(`{"ip":"192.168.4.21","state":"found","rssi":-40,"device_type":"dimmer"}`)

	record, errs := parseNetwork("lighting/NetworkDevice/A1", data)
	if record == nil {
		t.Fatal("record = nil, want parsed network data")
	}
	if len(errs) != 0 {
		t.Errorf("errs = %+v, want none", errs)
	}
	if record.IP == nil || *record.IP != "192.168.4.21" {
		t.Errorf("IP = %v, want 192.168.4.21", record.IP)
	}
	if record.State == nil || *record.State != "found" {
		t.Errorf("State = %v, want found", record.State)
	}
	// Numeric RSSI keeps its JSON representation.
	if record.RSSI == nil || *record.RSSI != "-40" {
		t.Errorf("RSSI = %v, want -40", record.RSSI)
	}
	if record.DeviceType == nil || *record.DeviceType != "dimmer" {
		t.Errorf("DeviceType = %v, want dimmer", record.DeviceType)
	}
}

func TestParseNetwork_MissingKeys(t *testing.T) {
	record, errs := parseNetwork("lighting/NetworkDevice/A1", []byte(`{"state":"missing"}`))
	if record == nil {
		t.Fatal("record = nil, want partial network data")
	}
	if record.State == nil || *record.State != "missing" {
		t.Errorf("State = %v, want missing", record.State)
	}
	if record.IP != nil || record.RSSI != nil || record.DeviceType != nil {
		t.Errorf("absent fields = %v/%v/%v, want all nil", record.IP, record.RSSI, record.DeviceType)
	}
	if len(errs) != 3 {
		t.Fatalf("errs length = %d, want 3 (one per missing key)", len(errs))
	}
	for _, e := range errs {
		if !strings.Contains(e.Message, "missing field") {
			t.Errorf("error message = %q, want missing-field warning", e.Message)
		}
	}
}

func TestParseNetwork_InvalidJSON(t *testing.T) {
	record, errs := parseNetwork("lighting/NetworkDevice/A1", []byte("not json at all"))
	if record != nil {
		t.Errorf("record = %+v, want nil for unparseable fragment", record)
	}
	if len(errs) != 1 {
		t.Fatalf("errs length = %d, want 1", len(errs))
	}
	if !strings.Contains(errs[0].Message, "invalid JSON") {
		t.Errorf("error message = %q, want invalid JSON", errs[0].Message)
	}
	if errs[0].Path != "lighting/NetworkDevice/A1" {
		t.Errorf("error path = %q, want fragment path", errs[0].Path)
	}
}

func TestParseNetwork_NonScalarValue(t *testing.T) {
	record, errs := parseNetwork("p", []byte(`{"ip":{"v4":"10.0.0.1"},"state":"found","rssi":"-40","device_type":null}`))
	if record == nil {
		t.Fatal("record = nil, want partial network data")
	}
	if record.IP != nil {
		t.Errorf("IP = %q, want nil for non-scalar value", *record.IP)
	}
	if record.DeviceType != nil {
		t.Errorf("DeviceType = %q, want nil for null value", *record.DeviceType)
	}
	if record.State == nil || record.RSSI == nil {
		t.Error("scalar fields missing, want them parsed despite sibling failures")
	}
	if len(errs) != 2 {
		t.Errorf("errs length = %d, want 2", len(errs))
	}
}
