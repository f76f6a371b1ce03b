package ingest

import (
	"errors"
	"testing"
	"time"
)

func TestParseArchiveName(t *testing.T) {
	project, ts, err := ParseArchiveName("riverside_2026-08-10-093015_DiagnosticReports.tgz")
	if err != nil {
		t.Fatalf("ParseArchiveName() error = %v", err)
	}
	if project != "riverside" {
		t.Errorf("project = %q, want %q", project, "riverside")
	}
	want := time.Date(2026, 8, 10, 9, 30, 15, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("timestamp = %s, want %s", ts, want)
	}
}

func TestParseArchiveName_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{"wrong suffix", "riverside_2026-08-10-093015_Reports.tgz"},
		{"no suffix", "riverside_2026-08-10-093015"},
		{"missing timestamp", "riverside_DiagnosticReports.tgz"},
		{"bad timestamp", "riverside_2026-13-45-999999_DiagnosticReports.tgz"},
		{"timestamp not numeric", "riverside_yesterday_DiagnosticReports.tgz"},
		{"underscore in project", "river_side_2026-08-10-093015_DiagnosticReports.tgz"},
		{"empty project", "_2026-08-10-093015_DiagnosticReports.tgz"},
		{"suffix only", "_DiagnosticReports.tgz"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseArchiveName(tt.filename); !errors.Is(err, ErrBadArchiveName) {
				t.Errorf("ParseArchiveName(%q) error = %v, want ErrBadArchiveName", tt.filename, err)
			}
		})
	}
}
