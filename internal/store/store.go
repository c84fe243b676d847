// Package store persists the governor's durable state in SQLite: safety
// controls as a versioned chain with an active pointer, the feedback
// history, active adaptations, and the decision audit log. Controls
// mutations are committed before the calling operation reports success, so
// a crash cannot silently revert a safety tightening.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/patchpilot/governor/internal/config"
)

// timeLayout is fixed-width (nanoseconds never truncated) so lexicographic
// comparison on the stored strings matches chronological order. RFC3339Nano
// drops trailing fractional zeros, which breaks `created_at >= ?` queries.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS controls_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	payload       BLOB NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES controls_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_controls (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES controls_versions(version_id)
);

CREATE TABLE IF NOT EXISTS feedback_history (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	suggestion_id    TEXT NOT NULL,
	developer_id     TEXT,
	accepted         INTEGER NOT NULL,
	rating           INTEGER NOT NULL DEFAULT 0,
	rejection_reason TEXT,
	modified         INTEGER NOT NULL DEFAULT 0,
	review_seconds   REAL NOT NULL DEFAULT 0,
	note             TEXT,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_created
ON feedback_history(created_at);

CREATE TABLE IF NOT EXISTS active_adaptations (
	adaptation_id    TEXT PRIMARY KEY,
	type             TEXT NOT NULL,
	applied_at       TEXT NOT NULL,
	window_days      INTEGER NOT NULL,
	baseline         REAL NOT NULL,
	target           REAL NOT NULL,
	previous_version TEXT,
	insight_json     TEXT,
	rollback_json    TEXT,
	status           TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS decision_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	suggestion_id TEXT NOT NULL,
	tenant        TEXT,
	decision      TEXT NOT NULL,
	confidence    REAL NOT NULL,
	reasoning     TEXT,
	error_code    TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store manages all durable governor state in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. the
// decision audit writer).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-controls
// SaveControls inserts a new controls version and moves the active pointer
// to it atomically. Returns the new version ID.
func (s *Store) SaveControls(payload []byte, parentID, reason string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if parentID != "" {
		parentPtr = parentID
	}

	_, err = tx.Exec(
		`INSERT INTO controls_versions (version_id, parent_id, payload, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, parentPtr, payload, reason, now.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert controls version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_controls (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return "", fmt.Errorf("set active controls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion save-controls

// #region current-controls
// CurrentControls reads the active controls version. Returns sql.ErrNoRows
// wrapped when no controls have ever been saved.
func (s *Store) CurrentControls() (ControlsVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_controls WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return ControlsVersion{}, fmt.Errorf("get active controls: %w", err)
	}
	return s.ControlsVersion(versionID)
}

// ControlsVersion retrieves a specific controls version by ID.
func (s *Store) ControlsVersion(id string) (ControlsVersion, error) {
	var v ControlsVersion
	var parentID, reason sql.NullString
	var createdStr string

	err := s.db.QueryRow(
		`SELECT version_id, parent_id, payload, reason, created_at
		 FROM controls_versions WHERE version_id = ?`, id,
	).Scan(&v.VersionID, &parentID, &v.Payload, &reason, &createdStr)
	if err != nil {
		return ControlsVersion{}, fmt.Errorf("get controls version %s: %w", id, err)
	}
	v.ParentID = parentID.String
	v.Reason = reason.String
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return v, nil
}

// #endregion current-controls

// #region rollback-controls
// RollbackControls sets the active pointer to a previous controls version.
func (s *Store) RollbackControls(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM controls_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("controls version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_controls SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback controls: %w", err)
	}
	return nil
}

// #endregion rollback-controls

// #region list-controls
// ListControlsVersions returns the most recent controls versions.
func (s *Store) ListControlsVersions(limit int) ([]ControlsVersion, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, payload, reason, created_at
		 FROM controls_versions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list controls versions: %w", err)
	}
	defer rows.Close()

	var versions []ControlsVersion
	for rows.Next() {
		var v ControlsVersion
		var parentID, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&v.VersionID, &parentID, &v.Payload, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan controls version: %w", err)
		}
		v.ParentID = parentID.String
		v.Reason = reason.String
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// #endregion list-controls

// #region append-feedback
// AppendFeedback persists one feedback event and prunes history beyond the
// retention cap. The append is committed before pruning, so truncation can
// never drop an unpersisted entry.
func (s *Store) AppendFeedback(row FeedbackRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	accepted, modified := 0, 0
	if row.Accepted {
		accepted = 1
	}
	if row.Modified {
		modified = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO feedback_history
		 (suggestion_id, developer_id, accepted, rating, rejection_reason, modified, review_seconds, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SuggestionID,
		nullIfEmpty(row.DeveloperID),
		accepted,
		row.Rating,
		nullIfEmpty(row.RejectionReason),
		modified,
		row.ReviewSeconds,
		nullIfEmpty(row.Note),
		row.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM feedback_history WHERE id NOT IN
		 (SELECT id FROM feedback_history ORDER BY id DESC LIMIT ?)`,
		config.FeedbackRetention,
	)
	if err != nil {
		return fmt.Errorf("prune feedback: %w", err)
	}
	return nil
}

// #endregion append-feedback

// #region recent-feedback
// RecentFeedback returns up to limit feedback rows, oldest first.
func (s *Store) RecentFeedback(limit int) ([]FeedbackRow, error) {
	rows, err := s.db.Query(
		`SELECT suggestion_id, developer_id, accepted, rating, rejection_reason,
		        modified, review_seconds, note, created_at
		 FROM (SELECT * FROM feedback_history ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent feedback: %w", err)
	}
	defer rows.Close()

	var result []FeedbackRow
	for rows.Next() {
		var r FeedbackRow
		var devID, reason, note sql.NullString
		var accepted, modified int
		var createdStr string
		if err := rows.Scan(&r.SuggestionID, &devID, &accepted, &r.Rating, &reason,
			&modified, &r.ReviewSeconds, &note, &createdStr); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		r.DeveloperID = devID.String
		r.RejectionReason = reason.String
		r.Note = note.String
		r.Accepted = accepted == 1
		r.Modified = modified == 1
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		result = append(result, r)
	}
	return result, rows.Err()
}

// #endregion recent-feedback

// #region acceptance-rate
// AcceptanceRateSince returns the fraction of accepted feedback recorded at
// or after t, and the sample count. Rate is 0 when no samples exist.
func (s *Store) AcceptanceRateSince(t time.Time) (float64, int, error) {
	var total, accepted int
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(accepted), 0) FROM feedback_history WHERE created_at >= ?`,
		t.UTC().Format(timeLayout),
	).Scan(&total, &accepted)
	if err != nil {
		return 0, 0, fmt.Errorf("acceptance rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(accepted) / float64(total), total, nil
}

// #endregion acceptance-rate

// #region adaptations
// SaveAdaptation persists an adaptation record.
func (s *Store) SaveAdaptation(row AdaptationRow) error {
	_, err := s.db.Exec(
		`INSERT INTO active_adaptations
		 (adaptation_id, type, applied_at, window_days, baseline, target,
		  previous_version, insight_json, rollback_json, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.AdaptationID,
		row.Type,
		row.AppliedAt.UTC().Format(timeLayout),
		row.WindowDays,
		row.Baseline,
		row.Target,
		nullIfEmpty(row.PreviousVersion),
		nullIfEmpty(row.InsightJSON),
		nullIfEmpty(row.RollbackJSON),
		row.Status,
	)
	if err != nil {
		return fmt.Errorf("save adaptation: %w", err)
	}
	return nil
}

// UpdateAdaptationStatus changes an adaptation's status.
func (s *Store) UpdateAdaptationStatus(id, status string) error {
	res, err := s.db.Exec(
		`UPDATE active_adaptations SET status = ? WHERE adaptation_id = ?`, status, id,
	)
	if err != nil {
		return fmt.Errorf("update adaptation status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("adaptation %s not found", id)
	}
	return nil
}

// ListAdaptations returns adaptations with the given status; empty status
// returns all, newest first.
func (s *Store) ListAdaptations(status string) ([]AdaptationRow, error) {
	query := `SELECT adaptation_id, type, applied_at, window_days, baseline, target,
	                 previous_version, insight_json, rollback_json, status
	          FROM active_adaptations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY applied_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list adaptations: %w", err)
	}
	defer rows.Close()

	var result []AdaptationRow
	for rows.Next() {
		var r AdaptationRow
		var prev, insight, rollback sql.NullString
		var appliedStr string
		if err := rows.Scan(&r.AdaptationID, &r.Type, &appliedStr, &r.WindowDays,
			&r.Baseline, &r.Target, &prev, &insight, &rollback, &r.Status); err != nil {
			return nil, fmt.Errorf("scan adaptation: %w", err)
		}
		r.PreviousVersion = prev.String
		r.InsightJSON = insight.String
		r.RollbackJSON = rollback.String
		r.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedStr)
		result = append(result, r)
	}
	return result, rows.Err()
}

// #endregion adaptations

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
