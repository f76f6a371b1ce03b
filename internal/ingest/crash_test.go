package ingest

import (
	"strings"
	"testing"
)

const crashFixture = `Process:   lightingd
Date/Time: 2026-08-09 22:14:03
Exception: SIGSEGV
stack frame 0
stack frame 1
Process:   wifimgr
Date/Time: 2026-08-10 01:02:11
Exception: SIGABRT
`

func TestParseCrashes(t *testing.T) {
	reports := parseCrashes([]byte(crashFixture))
	if len(reports) != 2 {
		t.Fatalf("reports length = %d, want 2", len(reports))
	}

	first := reports[0]
	if first.Process == nil || *first.Process != "lightingd" {
		t.Errorf("Process = %v, want lightingd", first.Process)
	}
	if first.Timestamp == nil || *first.Timestamp != "2026-08-09 22:14:03" {
		t.Errorf("Timestamp = %v, want 2026-08-09 22:14:03", first.Timestamp)
	}
	if !strings.Contains(first.Content, "stack frame 1") {
		t.Errorf("Content = %q, want the full entry text", first.Content)
	}

	second := reports[1]
	if second.Process == nil || *second.Process != "wifimgr" {
		t.Errorf("Process = %v, want wifimgr", second.Process)
	}

	// Verbatim preservation law: concatenating the sliced entries
	// reproduces the input byte for byte.
	if got := first.Content + second.Content; got != crashFixture {
		t.Errorf("concatenated content diverges from input:\ngot  %q\nwant %q", got, crashFixture)
	}
}

func TestParseCrashes_NoHeader(t *testing.T) {
	input := "kernel panic - not syncing\nno recognisable header here\n"

	reports := parseCrashes([]byte(input))
	if len(reports) != 1 {
		t.Fatalf("reports length = %d, want 1", len(reports))
	}
	if reports[0].Process != nil {
		t.Errorf("Process = %q, want nil", *reports[0].Process)
	}
	if reports[0].Content != input {
		t.Errorf("Content = %q, want whole input verbatim", reports[0].Content)
	}
}

func TestParseCrashes_PreambleKeptWithFirstEntry(t *testing.T) {
	input := "boot log preamble\nProcess:   lightingd\ncrash body\n"

	reports := parseCrashes([]byte(input))
	if len(reports) != 1 {
		t.Fatalf("reports length = %d, want 1", len(reports))
	}
	if reports[0].Content != input {
		t.Errorf("Content = %q, want preamble included verbatim", reports[0].Content)
	}
	if reports[0].Process == nil || *reports[0].Process != "lightingd" {
		t.Errorf("Process = %v, want lightingd", reports[0].Process)
	}
}

func TestParseCrashes_Empty(t *testing.T) {
	if reports := parseCrashes(nil); reports != nil {
		t.Errorf("reports = %+v, want nil for empty fragment", reports)
	}
}

// TestParseCrashes_RoundTrip re-parses the same bytes and verifies content
// is byte-identical each time.
func TestParseCrashes_RoundTrip(t *testing.T) {
	first := parseCrashes([]byte(crashFixture))
	second := parseCrashes([]byte(crashFixture))

	if len(first) != len(second) {
		t.Fatalf("report counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("report %d content differs between parses", i)
		}
	}
}
