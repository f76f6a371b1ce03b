// Package capture defines the domain model and persistence contract for
// diagnostic captures.
//
// A capture is one ingested diagnostic archive: a timestamped snapshot of an
// entire device fleet belonging to a project. Each capture owns a set of
// DeviceSnapshots, one per device discovered in the archive. Projects own
// captures; deleting a project cascades to its captures and snapshots.
//
// # Key Types
//
//   - Project: Named owner of an ordered capture timeline
//   - Capture: One ingested archive with status pending/partial/complete/failed
//   - DeviceSnapshot: Per-device, per-capture normalised record of all
//     artifact data (network, health, crashes, lighting history, raw blobs)
//   - Store: Persistence contract satisfied by the SQLite implementation
//
// Optional snapshot fields are pointers so callers can distinguish
// "absent" from "empty": the diff layer classifies a field as appeared or
// disappeared purely from pointer presence.
//
// # Immutability
//
// A capture is immutable once committed. Snapshots are written exactly once
// in the commit transaction; a second commit for the same capture fails with
// ErrDuplicateCommit. IngestionErrors and capture warnings are diagnostic
// evidence and are persisted for the lifetime of the snapshot, never pruned.
//
// # Usage
//
//	store := capture.NewSQLiteStore(db)
//	project, _ := store.EnsureProject(ctx, "riverside")
//	cap, _ := store.BeginCapture(ctx, project.ID, time.Now().UTC())
//	// ... ingest pipeline builds snapshots ...
//	err := store.CommitSnapshots(ctx, cap.ID, snapshots, capture.StatusComplete, warnings)
package capture
