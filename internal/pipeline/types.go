package pipeline

import "context"

// #region candidate

// Candidate is the typed validation context for one proposed change.
type Candidate struct {
	SuggestionID string
	Intent       string   // the request that produced the change
	Diff         string   // unified diff of the proposed change
	Files        []string // touched paths; filled by the diff stage when empty
	Language     string   // primary language hint, may be empty
}

// #endregion candidate

// #region result

// Result is produced per stage and once more as the pipeline aggregate.
// Ephemeral; never persisted.
type Result struct {
	Passed  bool
	Score   float64 // 0.0 - 1.0
	Message string
	Details []string
}

// #endregion result

// #region stage

// Stage is one independent, named check. Lower priority runs first.
type Stage struct {
	Name     string
	Priority int
	Run      func(ctx context.Context, c *Candidate) (Result, error)
	Skip     func(c *Candidate) bool // optional; nil = never skip
}

// #endregion stage
