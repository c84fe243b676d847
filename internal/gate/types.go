package gate

import "github.com/patchpilot/governor/internal/config"

// #region risk-factors

// RiskFactor names a category of change risk detected upstream.
type RiskFactor string

const (
	RiskCriticalPath    RiskFactor = "critical_path"
	RiskHighImpact      RiskFactor = "high_impact"
	RiskSecurityRelated RiskFactor = "security_related"
	RiskBreakingChange  RiskFactor = "breaking_change"
)

// #endregion risk-factors

// #region controls

// Thresholds holds the per-tier confidence thresholds. The gate always
// compares against the low tier; the others exist for reporting and for
// the adaptation engine to nudge together.
type Thresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// RiskAssessment flags which risk categories force human review.
type RiskAssessment struct {
	CriticalPath    bool `json:"critical_path"`
	HighImpact      bool `json:"high_impact"`
	SecurityRelated bool `json:"security_related"`
	BreakingChange  bool `json:"breaking_change"`
}

// OperationalLimits bounds suggestion volume.
type OperationalLimits struct {
	MaxSuggestionsPerHour int  `json:"max_suggestions_per_hour"`
	MaxSuggestionsPerDay  int  `json:"max_suggestions_per_day"`
	RollbackRequired      bool `json:"rollback_required"`
}

// EmergencyConfig configures the failsafe behavior.
type EmergencyConfig struct {
	Enabled           bool     `json:"enabled"`
	Reason            string   `json:"reason,omitempty"`
	TriggerConditions []string `json:"trigger_conditions"`
	FallbackBehavior  string   `json:"fallback_behavior"`
}

// Controls is the live, adaptable safety configuration. It is serialized
// as the payload of a controls version in the store.
type Controls struct {
	Thresholds Thresholds        `json:"thresholds"`
	Risk       RiskAssessment    `json:"risk"`
	Limits     OperationalLimits `json:"limits"`
	Emergency  EmergencyConfig   `json:"emergency"`
}

// FromPolicy seeds controls from the operator policy file.
func FromPolicy(p config.Policy) Controls {
	return Controls{
		Thresholds: Thresholds{
			Low:    p.Thresholds.Low,
			Medium: p.Thresholds.Medium,
			High:   p.Thresholds.High,
		},
		Risk: RiskAssessment{
			CriticalPath:    p.Risk.CriticalPath,
			HighImpact:      p.Risk.HighImpact,
			SecurityRelated: p.Risk.SecurityRelated,
			BreakingChange:  p.Risk.BreakingChange,
		},
		Limits: OperationalLimits{
			MaxSuggestionsPerHour: p.Limits.MaxSuggestionsPerHour,
			MaxSuggestionsPerDay:  p.Limits.MaxSuggestionsPerDay,
			RollbackRequired:      p.Limits.RollbackRequired,
		},
		Emergency: EmergencyConfig{
			Enabled:           p.Emergency.Enabled,
			TriggerConditions: p.Emergency.TriggerConditions,
			FallbackBehavior:  p.Emergency.FallbackBehavior,
		},
	}
}

// DefaultControls seeds controls from the default policy.
func DefaultControls() Controls {
	return FromPolicy(config.DefaultPolicy())
}

// #endregion controls

// #region decision

// Decision is the gate's verdict on one candidate suggestion. Reasoning
// always names the concrete trigger; a denial is never generic.
type Decision struct {
	Approved        bool
	ConfidenceScore float64
	RequiresReview  bool
	Reasoning       []string
}

// #endregion decision
