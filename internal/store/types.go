package store

import "time"

// #region controls-version

// ControlsVersion is one committed revision of the serialized safety
// controls. The payload is opaque to the store; the gate package owns its
// shape.
type ControlsVersion struct {
	VersionID string
	ParentID  string // empty for the initial version
	Payload   []byte
	Reason    string // why this revision was committed
	CreatedAt time.Time
}

// #endregion controls-version

// #region feedback-row

// FeedbackRow is the persisted form of one developer feedback event.
type FeedbackRow struct {
	SuggestionID    string
	DeveloperID     string
	Accepted        bool
	Rating          int // 0 = unrated
	RejectionReason string
	Modified        bool
	ReviewSeconds   float64
	Note            string
	CreatedAt       time.Time
}

// #endregion feedback-row

// #region adaptation-row

// AdaptationRow is the persisted form of one active adaptation. Insight and
// rollback plan are stored as opaque JSON.
type AdaptationRow struct {
	AdaptationID    string
	Type            string
	AppliedAt       time.Time
	WindowDays      int
	Baseline        float64
	Target          float64
	PreviousVersion string // controls version to restore on rollback
	InsightJSON     string
	RollbackJSON    string
	Status          string // "active" | "rolled_back" | "expired"
}

// #endregion adaptation-row
