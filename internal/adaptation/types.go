package adaptation

import (
	"time"

	"github.com/patchpilot/governor/internal/learning"
)

// #region rollback-plan

// RollbackPlan is generated at apply time so a harmful adaptation can be
// reverted without reconstructing context later.
type RollbackPlan struct {
	Steps             []string `json:"steps"`
	RiskTier          string   `json:"risk_tier"`
	EstimatedDuration string   `json:"estimated_duration"`
	ValidationSteps   []string `json:"validation_steps"`
}

// #endregion rollback-plan

// #region active-adaptation

// ActiveAdaptation tracks one applied configuration change through its
// monitoring window.
type ActiveAdaptation struct {
	AdaptationID    string
	Type            learning.RecommendationType
	AppliedAt       time.Time
	Insight         learning.Insight
	WindowDays      int
	Baseline        float64 // acceptance rate at apply time
	Target          float64
	PreviousVersion string // controls version restored on rollback
	Plan            RollbackPlan
}

// #endregion active-adaptation

// #region results

// AppliedChange describes one executed recommendation.
type AppliedChange struct {
	AdaptationID string
	Type         learning.RecommendationType
	Action       string
	Detail       string
}

// Result summarizes one Apply call.
type Result struct {
	Applied []AppliedChange
	Skipped []string // recommendations not executed, with reasons
}

// MonitorVerdict classifies an adaptation at monitoring time.
type MonitorVerdict string

const (
	VerdictHold     MonitorVerdict = "hold"
	VerdictExpand   MonitorVerdict = "expand"
	VerdictRollback MonitorVerdict = "rollback"
)

// MonitorReport is the effectiveness reading for one active adaptation.
type MonitorReport struct {
	AdaptationID   string
	Type           learning.RecommendationType
	Progress       float64 // elapsed fraction of the monitoring window
	Effectiveness  float64 // 0.5 = no movement against baseline
	Samples        int
	Verdict        MonitorVerdict
	Recommendation string
}

// #endregion results
