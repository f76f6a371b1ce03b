package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// historyLineRe matches "timestamp<TAB or 2+ spaces>state".
var historyLineRe = regexp.MustCompile(`^(.+?)(?:\t+| {2,})(\S.*)$`)

// parseHistoryText parses a per-device lighting history fragment: one
// state change per line, input order preserved (chronological, oldest
// first). Blank lines are skipped silently; malformed lines are skipped
// with a warning.
func parseHistoryText(path string, data []byte) ([]capture.LightingEvent, []capture.IngestionError) {
	var (
		events []capture.LightingEvent
		errs   []capture.IngestionError
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := historyLineRe.FindStringSubmatch(line)
		if m == nil {
			errs = append(errs, capture.IngestionError{
				Artifact: capture.ArtifactLightingHistory,
				Path:     path,
				Message:  fmt.Sprintf("line %d: malformed history entry", lineNo),
			})
			continue
		}

		events = append(events, capture.LightingEvent{
			Timestamp: strings.TrimSpace(m[1]),
			State:     strings.TrimSpace(m[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, capture.IngestionError{
			Artifact: capture.ArtifactLightingHistory,
			Path:     path,
			Message:  fmt.Sprintf("reading fragment: %v", err),
		})
	}

	return events, errs
}
