package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-capture/internal/capture"
)

// historyRowLimit caps how many state changes are read from a bundled
// history database, newest first. Matches the truncation the capture
// tooling itself applies.
const historyRowLimit = 1000

// parseHistoryDB reads per-device lighting events from a fleet-scoped
// lightingHistory.sqlite artifact. SQLite cannot open a database from a
// byte slice, so the content is staged to a temporary file and opened
// read-only. Events come back oldest first per device, consistent with
// the text history format.
//
// Failures are returned as capture warnings, never errors: a broken
// fleet database must not abort ingestion.
func parseHistoryDB(ctx context.Context, path string, data []byte) (map[string][]capture.LightingEvent, []capture.Warning) {
	warn := func(format string, args ...any) []capture.Warning {
		return []capture.Warning{{
			Code:    warnFleetArtifact,
			Path:    path,
			Message: fmt.Sprintf(format, args...),
		}}
	}

	tmp, err := os.CreateTemp("", "graycapture-history-*.sqlite")
	if err != nil {
		return nil, warn("staging history database: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, warn("staging history database: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, warn("staging history database: %v", err)
	}

	db, err := sql.Open("sqlite3", "file:"+tmp.Name()+"?mode=ro&immutable=1")
	if err != nil {
		return nil, warn("opening history database: %v", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT device_id, state, timestamp
		FROM state_changes
		ORDER BY timestamp DESC
		LIMIT ?
	`, historyRowLimit)
	if err != nil {
		return nil, warn("querying history database: %v", err)
	}
	defer rows.Close()

	var warnings []capture.Warning
	history := make(map[string][]capture.LightingEvent)
	skipped := 0
	for rows.Next() {
		var deviceID, state, timestamp sql.NullString
		if err := rows.Scan(&deviceID, &state, &timestamp); err != nil {
			return nil, warn("scanning history row: %v", err)
		}
		if !deviceID.Valid || deviceID.String == "" || !state.Valid || !timestamp.Valid {
			skipped++
			continue
		}
		history[deviceID.String] = append(history[deviceID.String], capture.LightingEvent{
			State:     state.String,
			Timestamp: timestamp.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, warn("reading history rows: %v", err)
	}
	if skipped > 0 {
		warnings = append(warnings, capture.Warning{
			Code:    warnFleetArtifact,
			Path:    path,
			Message: fmt.Sprintf("skipped %d history rows with missing columns", skipped),
		})
	}

	// Rows arrive newest first; flip each device's slice so history is
	// uniformly oldest first.
	for _, events := range history {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}

	return history, warnings
}
