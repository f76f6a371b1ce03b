package ingest

import "errors"

// Unpacker errors are fatal to the whole capture: no snapshot is
// persisted and the capture is marked failed. Everything downstream of
// the unpacker accumulates warnings instead of returning errors.
var (
	// ErrArchiveTooLarge indicates the archive exceeds the configured
	// decompressed-size or entry-count ceilings.
	ErrArchiveTooLarge = errors.New("ingest: archive exceeds size limits")

	// ErrPathTraversal indicates an archive entry or link target that
	// resolves outside the extraction root.
	ErrPathTraversal = errors.New("ingest: archive entry escapes extraction root")

	// ErrCorruptArchive indicates unreadable gzip or tar framing,
	// including truncation.
	ErrCorruptArchive = errors.New("ingest: corrupt or truncated archive")

	// ErrBadArchiveName indicates an upload filename that does not match
	// the <project>_<YYYY-MM-DD-HHMMSS>_DiagnosticReports.tgz convention.
	ErrBadArchiveName = errors.New("ingest: archive filename does not match naming convention")
)
