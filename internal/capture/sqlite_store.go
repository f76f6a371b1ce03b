package capture

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore implements Store backed by SQLite.
// It matches the schema in migrations/20260810_090000_initial_schema.up.sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed capture store.
// The db parameter should be an open SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureProject returns the project with the given name, creating it if
// it does not exist.
func (s *SQLiteStore) EnsureProject(ctx context.Context, name string) (*Project, error) {
	project, err := s.getProjectByName(ctx, name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, ErrProjectNotFound) {
		return nil, err
	}

	project = &Project{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		project.ID, project.Name, project.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		// Another writer may have created the project between the lookup
		// and the insert; fall back to reading it.
		if isUniqueConstraintError(err) {
			return s.getProjectByName(ctx, name)
		}
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	return project, nil
}

// GetProject retrieves a project by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM projects WHERE id = ?", id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("querying project by id: %w", err)
	}
	return project, nil
}

// ListProjects retrieves all projects, newest first.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM projects ORDER BY created_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// BeginCapture creates a pending capture for a project.
func (s *SQLiteStore) BeginCapture(ctx context.Context, projectID string, timestamp time.Time) (*Capture, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	c := &Capture{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Timestamp: timestamp.UTC(),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captures (id, project_id, timestamp, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.ProjectID,
		c.Timestamp.Format(time.RFC3339),
		string(c.Status),
		c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting capture: %w", err)
	}

	return c, nil
}

// CommitSnapshots atomically persists a capture's snapshots and transitions
// it from pending to the given status. All snapshots are written or none.
func (s *SQLiteStore) CommitSnapshots(ctx context.Context, captureID string, snapshots []DeviceSnapshot, status Status, warnings []Warning) error {
	if status != StatusPartial && status != StatusComplete {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	warningsJSON, err := marshalWarnings(warnings)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	// Guarded transition: only a pending capture may be committed. The
	// first writer wins; a second commit sees zero affected rows.
	committedAt := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE captures
		SET status = ?, warnings = ?, committed_at = ?
		WHERE id = ? AND status = ?`,
		string(status), warningsJSON, committedAt.Format(time.RFC3339),
		captureID, string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("updating capture status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking capture transition: %w", err)
	}
	if affected == 0 {
		return s.transitionFailure(ctx, captureID)
	}

	for i := range snapshots {
		if err := insertSnapshot(ctx, tx, &snapshots[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing capture: %w", err)
	}
	return nil
}

// MarkCaptureFailed transitions a pending capture to failed.
func (s *SQLiteStore) MarkCaptureFailed(ctx context.Context, captureID string, warnings []Warning) error {
	warningsJSON, err := marshalWarnings(warnings)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE captures
		SET status = ?, warnings = ?, committed_at = ?
		WHERE id = ? AND status = ?`,
		string(StatusFailed), warningsJSON, time.Now().UTC().Format(time.RFC3339),
		captureID, string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("marking capture failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking capture transition: %w", err)
	}
	if affected == 0 {
		return s.transitionFailure(ctx, captureID)
	}
	return nil
}

// transitionFailure distinguishes a missing capture from one that already
// left the pending state.
func (s *SQLiteStore) transitionFailure(ctx context.Context, captureID string) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM captures WHERE id = ?", captureID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCaptureNotFound
	}
	if err != nil {
		return fmt.Errorf("querying capture status: %w", err)
	}
	return fmt.Errorf("%w: status is %s", ErrDuplicateCommit, status)
}

// GetCapture retrieves a capture by ID.
func (s *SQLiteStore) GetCapture(ctx context.Context, id string) (*Capture, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, timestamp, status, warnings, created_at, committed_at
		FROM captures
		WHERE id = ?`, id)

	c, err := scanCapture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCaptureNotFound
		}
		return nil, fmt.Errorf("querying capture by id: %w", err)
	}
	return c, nil
}

// GetCaptureSnapshots retrieves all snapshots of a capture, ordered by
// device ID.
func (s *SQLiteStore) GetCaptureSnapshots(ctx context.Context, captureID string) ([]DeviceSnapshot, error) {
	query := snapshotSelect + `
		WHERE capture_id = ?
		ORDER BY device_id`
	return s.querySnapshots(ctx, query, captureID)
}

// ListCaptures retrieves a project's non-failed captures, newest first.
func (s *SQLiteStore) ListCaptures(ctx context.Context, projectID string) ([]Capture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, timestamp, status, warnings, created_at, committed_at
		FROM captures
		WHERE project_id = ? AND status != ?
		ORDER BY timestamp DESC, created_at DESC`,
		projectID, string(StatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("querying captures: %w", err)
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning capture: %w", err)
		}
		captures = append(captures, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating captures: %w", err)
	}
	return captures, nil
}

// LatestCompleteCapture retrieves the newest complete capture for a project.
func (s *SQLiteStore) LatestCompleteCapture(ctx context.Context, projectID string) (*Capture, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, timestamp, status, warnings, created_at, committed_at
		FROM captures
		WHERE project_id = ? AND status = ?
		ORDER BY timestamp DESC, created_at DESC
		LIMIT 1`,
		projectID, string(StatusComplete),
	)

	c, err := scanCapture(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCaptureNotFound
		}
		return nil, fmt.Errorf("querying latest complete capture: %w", err)
	}
	return c, nil
}

// ListSnapshots retrieves a device's snapshot history, newest first,
// restricted to capture timestamps strictly earlier than before.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, projectID, deviceID string, before time.Time) ([]DeviceSnapshot, error) {
	if before.IsZero() {
		query := snapshotSelect + `
			WHERE project_id = ? AND device_id = ?
			ORDER BY capture_timestamp DESC, id`
		return s.querySnapshots(ctx, query, projectID, deviceID)
	}

	query := snapshotSelect + `
		WHERE project_id = ? AND device_id = ? AND capture_timestamp < ?
		ORDER BY capture_timestamp DESC, id`
	return s.querySnapshots(ctx, query, projectID, deviceID, before.UTC().Format(time.RFC3339))
}

// ProjectStats summarises per-capture device and crash counts.
func (s *SQLiteStore) ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.timestamp, c.status,
			COUNT(s.id) AS device_count,
			COALESCE(SUM(s.crash_count), 0) AS crash_count
		FROM captures c
		LEFT JOIN device_snapshots s ON s.capture_id = c.id
		WHERE c.project_id = ? AND c.status != ?
		GROUP BY c.id
		ORDER BY c.timestamp DESC, c.created_at DESC`,
		projectID, string(StatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("querying project stats: %w", err)
	}
	defer rows.Close()

	stats := &ProjectStats{
		ProjectID:   project.ID,
		ProjectName: project.Name,
	}
	for rows.Next() {
		var cs CaptureStats
		var timestamp, status string
		if err := rows.Scan(&cs.CaptureID, &timestamp, &status, &cs.DeviceCount, &cs.CrashCount); err != nil {
			return nil, fmt.Errorf("scanning capture stats: %w", err)
		}
		cs.Status = Status(status)
		cs.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing capture timestamp: %w", err)
		}
		stats.Captures = append(stats.Captures, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating capture stats: %w", err)
	}
	return stats, nil
}

// getProjectByName retrieves a project by its unique name.
func (s *SQLiteStore) getProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM projects WHERE name = ?", name)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("querying project by name: %w", err)
	}
	return project, nil
}

// snapshotSelect is the shared column list for snapshot queries.
const snapshotSelect = `
	SELECT id, capture_id, project_id, device_id, capture_timestamp,
		network_data, health_data, related_crashes, lighting_history,
		system_stats, wifi_data, ingestion_errors
	FROM device_snapshots`

// querySnapshots runs a snapshot query and scans all rows.
func (s *SQLiteStore) querySnapshots(ctx context.Context, query string, args ...any) ([]DeviceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []DeviceSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// insertSnapshot writes one snapshot inside the commit transaction,
// assigning an ID if the caller did not.
func insertSnapshot(ctx context.Context, tx *sql.Tx, snap *DeviceSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}

	networkJSON, err := marshalOptional(snap.Network)
	if err != nil {
		return fmt.Errorf("marshalling network data: %w", err)
	}
	healthJSON, err := marshalOptional(snap.Health)
	if err != nil {
		return fmt.Errorf("marshalling health data: %w", err)
	}
	crashesJSON, err := marshalOptionalSlice(snap.Crashes)
	if err != nil {
		return fmt.Errorf("marshalling crashes: %w", err)
	}
	historyJSON, err := marshalOptionalSlice(snap.LightingHistory)
	if err != nil {
		return fmt.Errorf("marshalling lighting history: %w", err)
	}

	errorsJSON := []byte("[]")
	if len(snap.IngestionErrors) > 0 {
		errorsJSON, err = json.Marshal(snap.IngestionErrors)
		if err != nil {
			return fmt.Errorf("marshalling ingestion errors: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO device_snapshots (
			id, capture_id, project_id, device_id, capture_timestamp,
			network_data, health_data, related_crashes, lighting_history,
			system_stats, wifi_data, ingestion_errors, crash_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.CaptureID,
		snap.ProjectID,
		snap.DeviceID,
		snap.CaptureTimestamp.UTC().Format(time.RFC3339),
		networkJSON,
		healthJSON,
		crashesJSON,
		historyJSON,
		nullableString(snap.SystemStats),
		nullableString(snap.WifiData),
		string(errorsJSON),
		len(snap.Crashes),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("inserting snapshot for device %s: duplicate device in capture: %w", snap.DeviceID, err)
		}
		return fmt.Errorf("inserting snapshot for device %s: %w", snap.DeviceID, err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProject scans a row into a Project.
func scanProject(scanner rowScanner) (*Project, error) {
	var p Project
	var createdAt string
	if err := scanner.Scan(&p.ID, &p.Name, &createdAt); err != nil {
		return nil, err
	}
	var err error
	p.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}

// scanCapture scans a row into a Capture.
func scanCapture(scanner rowScanner) (*Capture, error) {
	var c Capture
	var timestamp, createdAt, status string
	var warningsJSON, committedAt sql.NullString

	err := scanner.Scan(&c.ID, &c.ProjectID, &timestamp, &status, &warningsJSON, &createdAt, &committedAt)
	if err != nil {
		return nil, err
	}

	c.Status = Status(status)

	c.Timestamp, err = time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if committedAt.Valid {
		t, err := time.Parse(time.RFC3339, committedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing committed_at: %w", err)
		}
		c.CommittedAt = &t
	}

	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &c.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshalling warnings: %w", err)
		}
	}

	return &c, nil
}

// scanSnapshot scans a row into a DeviceSnapshot.
func scanSnapshot(scanner rowScanner) (*DeviceSnapshot, error) {
	var s DeviceSnapshot
	var captureTimestamp string
	var networkJSON, healthJSON, crashesJSON, historyJSON sql.NullString
	var systemStats, wifiData sql.NullString
	var errorsJSON string

	err := scanner.Scan(
		&s.ID,
		&s.CaptureID,
		&s.ProjectID,
		&s.DeviceID,
		&captureTimestamp,
		&networkJSON,
		&healthJSON,
		&crashesJSON,
		&historyJSON,
		&systemStats,
		&wifiData,
		&errorsJSON,
	)
	if err != nil {
		return nil, err
	}

	s.CaptureTimestamp, err = time.Parse(time.RFC3339, captureTimestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing capture_timestamp: %w", err)
	}

	if networkJSON.Valid {
		var n NetworkData
		if err := json.Unmarshal([]byte(networkJSON.String), &n); err != nil {
			return nil, fmt.Errorf("unmarshalling network data: %w", err)
		}
		s.Network = &n
	}
	if healthJSON.Valid {
		var h HealthData
		if err := json.Unmarshal([]byte(healthJSON.String), &h); err != nil {
			return nil, fmt.Errorf("unmarshalling health data: %w", err)
		}
		s.Health = &h
	}
	if crashesJSON.Valid {
		if err := json.Unmarshal([]byte(crashesJSON.String), &s.Crashes); err != nil {
			return nil, fmt.Errorf("unmarshalling crashes: %w", err)
		}
	}
	if historyJSON.Valid {
		if err := json.Unmarshal([]byte(historyJSON.String), &s.LightingHistory); err != nil {
			return nil, fmt.Errorf("unmarshalling lighting history: %w", err)
		}
	}
	if systemStats.Valid {
		s.SystemStats = &systemStats.String
	}
	if wifiData.Valid {
		s.WifiData = &wifiData.String
	}
	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &s.IngestionErrors); err != nil {
			return nil, fmt.Errorf("unmarshalling ingestion errors: %w", err)
		}
	}

	return &s, nil
}

// marshalOptional marshals a pointer value to JSON, or NULL when nil.
func marshalOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// marshalOptionalSlice marshals a slice to JSON, or NULL when empty.
func marshalOptionalSlice[T any](v []T) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// marshalWarnings marshals capture warnings, or NULL when empty.
func marshalWarnings(warnings []Warning) (sql.NullString, error) {
	ns, err := marshalOptionalSlice(warnings)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling warnings: %w", err)
	}
	return ns, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
