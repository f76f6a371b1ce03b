package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Upload filenames carry the project name and capture timestamp:
// <project>_<YYYY-MM-DD-HHMMSS>_DiagnosticReports.tgz
const (
	archiveNameSuffix = "_DiagnosticReports.tgz"
	archiveTimeLayout = "2006-01-02-150405"
)

// ParseArchiveName extracts the project name and capture timestamp from
// an upload filename. The timestamp is interpreted as UTC. Returns
// ErrBadArchiveName when the filename does not follow the convention.
func ParseArchiveName(filename string) (string, time.Time, error) {
	base := strings.TrimSuffix(filename, archiveNameSuffix)
	if base == filename || base == "" {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrBadArchiveName, filename)
	}

	parts := strings.Split(base, "_")
	if len(parts) != 2 || parts[0] == "" {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrBadArchiveName, filename)
	}

	timestamp, err := time.Parse(archiveTimeLayout, parts[1])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrBadArchiveName, parts[1])
	}

	return parts[0], timestamp.UTC(), nil
}
