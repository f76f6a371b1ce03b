package ingest

import (
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

var (
	crashBoundaryRe = regexp.MustCompile(`(?m)^Process:`)
	crashProcessRe  = regexp.MustCompile(`Process:\s+(\w+)`)
	crashTimeRe     = regexp.MustCompile(`Date/Time:\s+(.+)`)
)

// parseCrashes slices a crash fragment into entries at "Process:" header
// boundaries. Each entry's Content is the exact byte range of the input
// it was sliced from; crash dumps are diagnostic evidence and are never
// normalised. Process and timestamp are extracted from the header block
// when present.
//
// Text before the first header belongs to the first entry, so the
// concatenation of all entries reproduces the input. A fragment with no
// recognisable header yields a single entry holding the whole input;
// an empty fragment yields no entries.
func parseCrashes(data []byte) []capture.CrashReport {
	text := string(data)
	if text == "" {
		return nil
	}

	bounds := crashBoundaryRe.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []capture.CrashReport{newCrashReport(text)}
	}

	reports := make([]capture.CrashReport, 0, len(bounds))
	start := 0
	for i := range bounds {
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1][0]
		}
		reports = append(reports, newCrashReport(text[start:end]))
		start = end
	}
	return reports
}

// newCrashReport builds one crash entry from its sliced text.
func newCrashReport(text string) capture.CrashReport {
	report := capture.CrashReport{Content: text}

	if m := crashProcessRe.FindStringSubmatch(text); m != nil {
		report.Process = &m[1]
	}
	if m := crashTimeRe.FindStringSubmatch(text); m != nil {
		ts := strings.TrimSpace(m[1])
		report.Timestamp = &ts
	}
	return report
}
