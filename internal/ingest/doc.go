// Package ingest implements the capture ingestion pipeline for Gray Logic
// Capture.
//
// An uploaded diagnostic archive (gzip-compressed tar) flows through the
// pipeline as one logical unit of work:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                  Engine (engine.go)                      │
//	│                                                          │
//	│  1. Unpack archive        (archive.go)                   │
//	│  2. Classify entries      (classify.go)                  │
//	│  3. Parse fragments       (network/health/crash/history) │
//	│  4. Assemble snapshots    (assemble.go)                  │
//	│  5. Commit capture        (capture.Store)                │
//	│                                                          │
//	│  Steps 3–4 run per device on a bounded worker pool;      │
//	│  a single coordinator merges results deterministically.  │
//	└─────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Engine: Orchestrates one archive ingestion end to end
//   - Entry: One extracted archive entry (path + content)
//   - Rule / Classifier: Path-suffix rules mapping entries to artifact kinds
//   - Limits: Archive size, entry size and entry count ceilings
//
// # Failure Model
//
// Unpacker failures (ErrArchiveTooLarge, ErrPathTraversal,
// ErrCorruptArchive) abort the capture before any snapshot is persisted;
// the capture is marked failed and never appears in listings. Everything
// after unpacking is tolerant: parse failures become ingestion errors on
// the affected snapshot, unclassified entries become capture warnings,
// and a device whose fragments all failed to parse is still committed so
// it stays visible as "failed to parse".
//
// # Usage
//
//	engine := ingest.NewEngine(store, ingest.DefaultLimits(), 4, log)
//	result, err := engine.Ingest(ctx, projectID, archiveBytes, time.Time{})
//
// See internal/diff for the read side (device views and temporal diffs).
package ingest
