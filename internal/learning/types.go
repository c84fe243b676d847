package learning

import "time"

// #region rejection-reason

// RejectionReason is the closed vocabulary for why a suggestion was
// rejected.
type RejectionReason string

const (
	ReasonIrrelevant       RejectionReason = "irrelevant"
	ReasonWrong            RejectionReason = "wrong"
	ReasonIncomplete       RejectionReason = "incomplete"
	ReasonOverlyAggressive RejectionReason = "overly_aggressive"
)

// #endregion rejection-reason

// #region feedback

// Feedback is one human disposition of a previously surfaced suggestion.
type Feedback struct {
	SuggestionID    string
	DeveloperID     string
	Accepted        bool
	Rating          int             // 0 = unrated, else 1-5
	RejectionReason RejectionReason // empty when accepted
	Modified        bool            // the developer edited the suggestion before applying
	ReviewSeconds   float64
	Note            string
	CreatedAt       time.Time
}

// #endregion feedback

// #region rejection-analysis

// RejectionAnalysis summarizes why a suggestion was rejected and how often
// that reason recurs in the history.
type RejectionAnalysis struct {
	PrimaryReason string
	Frequency     int // prior history entries sharing the reason
	Alternatives  []string
	Notes         []string
}

// #endregion rejection-analysis

// #region recommendation

// RecommendationType classifies what kind of behavior change is proposed.
type RecommendationType string

const (
	RecSuggestionQuality      RecommendationType = "suggestion_quality"
	RecDeveloperCustomization RecommendationType = "developer_customization"
	RecCapabilityRestriction  RecommendationType = "capability_restriction"
)

// ImpactTier grades how disruptive a recommendation is.
type ImpactTier string

const (
	ImpactLow    ImpactTier = "low"
	ImpactMedium ImpactTier = "medium"
	ImpactHigh   ImpactTier = "high"
)

// Recommendation actions.
const (
	ActionReduceThreshold   = "reduce_confidence_threshold"
	ActionRaiseThreshold    = "raise_confidence_threshold"
	ActionLearnModification = "learn_modification_pattern"
	ActionLimitFrequency    = "limit_suggestion_frequency"
)

// Recommendation is one proposed adaptation.
type Recommendation struct {
	Type   RecommendationType `json:"type"`
	Action string             `json:"action"`
	Reason string             `json:"reason"`
	Impact ImpactTier         `json:"impact"`
}

// #endregion recommendation

// #region insight

// Insight is derived from one feedback event.
type Insight struct {
	SuggestionID    string             `json:"suggestion_id"`
	Rejection       RejectionAnalysis  `json:"rejection"`
	Effectiveness   float64            `json:"effectiveness"`
	Recommendations []Recommendation   `json:"recommendations"`
	Patterns        []string           `json:"patterns"`
	Confidence      float64            `json:"confidence"` // confidence in the insight itself
}

// #endregion insight

// #region pattern-stats

// PatternStats tracks one (suggestionID, outcome) group.
type PatternStats struct {
	Count       int
	SuccessRate float64 // running mean of effectiveness
}

// #endregion pattern-stats

// #region developer-effectiveness

// DeveloperEffectiveness aggregates one developer's feedback history.
type DeveloperEffectiveness struct {
	DeveloperID       string
	Samples           int
	AcceptanceRate    float64
	ModificationRate  float64
	MeanReviewSeconds float64
	Trend             float64 // recent acceptance minus overall acceptance
	Engagement        float64 // [0,1], derived from review speed
}

// #endregion developer-effectiveness
