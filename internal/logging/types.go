package logging

import "time"

// #region level

// Level orders log severity for the leveled logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// #endregion level

// #region decision-entry

// DecisionEntry is one row of the decision audit log.
type DecisionEntry struct {
	SuggestionID string
	Tenant       string
	Decision     string // "approve" | "deny" | "requires_review" | "error"
	Confidence   float64
	Reasoning    string // reasoning lines joined with "; "
	ErrorCode    string // set when the attempt failed before gating
	CreatedAt    time.Time
}

// #endregion decision-entry
