package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout matches the store's fixed-width stamp so created_at sorts
// lexicographically across all tables.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes a gate decision to the decision_log table. The table
// is created by the store's migration.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (suggestion_id, tenant, decision, confidence, reasoning, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SuggestionID,
		nullIfEmpty(entry.Tenant),
		entry.Decision,
		entry.Confidence,
		nullIfEmpty(entry.Reasoning),
		nullIfEmpty(entry.ErrorCode),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions

// ListDecisions returns the most recent decision log entries, newest first.
func ListDecisions(db *sql.DB, limit int) ([]DecisionEntry, error) {
	rows, err := db.Query(
		`SELECT suggestion_id, tenant, decision, confidence, reasoning, error_code, created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var tenant, reasoning, errCode sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SuggestionID, &tenant, &e.Decision, &e.Confidence, &reasoning, &errCode, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.Tenant = tenant.String
		e.Reasoning = reasoning.String
		e.ErrorCode = errCode.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
