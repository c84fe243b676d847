// Package config centralizes the tuning constants and the policy file that
// feed the estimator, gate, learning, and adaptation components. Every magic
// number that influences a decision lives here so it can be tuned (and
// asserted against in tests) without touching decision logic.
package config

import "time"

// Confidence estimator weights. Must sum to 1.0.
const (
	// HistoricalWeight is the weight of the historical acceptance rate.
	HistoricalWeight = 0.4

	// ContextualWeight is the weight of contextual relevance.
	ContextualWeight = 0.3

	// ValidationWeight is the weight of pipeline validation strength.
	ValidationWeight = 0.3
)

// Feedback adjustment constants for the confidence estimator.
const (
	// AcceptanceRewardThreshold: reward applies strictly above this rate.
	AcceptanceRewardThreshold = 0.8

	// AcceptancePenaltyThreshold: penalty applies strictly below this rate.
	AcceptancePenaltyThreshold = 0.5

	// AcceptanceRewardFactor multiplies confidence on a strong track record.
	AcceptanceRewardFactor = 1.1

	// AcceptancePenaltyFactor multiplies confidence on a weak track record.
	AcceptancePenaltyFactor = 0.9

	// RatingNeutral is the rating that neither raises nor lowers confidence.
	RatingNeutral = 3.0

	// RatingAdjustmentStep is the confidence delta per rating point away
	// from neutral. Applied additively, not multiplicatively.
	RatingAdjustmentStep = 0.1

	// AdjustedConfidenceFloor is the minimum value after a rating adjustment.
	AdjustedConfidenceFloor = 0.1
)

// Safety gate threshold clamps and circuit breaker limit.
const (
	// ThresholdStep is the size of one adaptive threshold nudge.
	ThresholdStep = 0.05

	// LowThresholdFloor is the minimum the low-tier threshold may reach
	// under repeated downward nudging.
	LowThresholdFloor = 0.60

	// LowThresholdCeiling is the maximum the low-tier threshold may reach
	// under repeated upward nudging.
	LowThresholdCeiling = 0.95

	// BreakerViolationLimit is the number of accumulated safety violations
	// that opens the circuit breaker and forces emergency mode.
	BreakerViolationLimit = 5
)

// Learning engine constants.
const (
	// FeedbackRetention caps the in-memory feedback history; oldest entries
	// beyond the cap are dropped after they have been persisted.
	FeedbackRetention = 500

	// AcceptedEffectivenessBase is the effectiveness of an unrated accept.
	AcceptedEffectivenessBase = 0.8

	// RejectedEffectivenessBase is the effectiveness of an unrated reject.
	RejectedEffectivenessBase = 0.2

	// EffectivenessPenalty is subtracted once for a modified suggestion and
	// once more for a slow review.
	EffectivenessPenalty = 0.1

	// SlowReviewSeconds marks a review as slow for effectiveness scoring.
	SlowReviewSeconds = 300.0

	// RecentTrendWindow is the number of most recent feedback events used
	// for the acceptance trend.
	RecentTrendWindow = 20

	// EngagementFullSeconds: mean review time at or beyond this reads as
	// zero engagement; instant review reads as 1.0.
	EngagementFullSeconds = 600.0

	// InsightConfidenceBase and InsightConfidencePerSample grow insight
	// confidence with history depth.
	InsightConfidenceBase      = 0.4
	InsightConfidencePerSample = 0.02
)

// Adaptation engine constants.
const (
	// MonitoringWindowDays is how long an applied adaptation is watched.
	MonitoringWindowDays = 30

	// TopPerformerThreshold classifies an adaptation as worth expanding.
	TopPerformerThreshold = 0.7

	// UnderperformerThreshold classifies an adaptation as rollback material.
	UnderperformerThreshold = 0.3

	// MinSuggestionsPerHour and MaxSuggestionsPerHour bound adaptive
	// mutations of the hourly suggestion limit.
	MinSuggestionsPerHour = 1
	MaxSuggestionsPerHour = 100
)

// Validation pipeline constants.
const (
	// DefaultStageTimeout bounds a single validation stage. A hung stage is
	// converted into a failing zero-score result instead of hanging the
	// whole pipeline.
	DefaultStageTimeout = 10 * time.Second
)
