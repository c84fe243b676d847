// Package confidence blends historical acceptance, contextual relevance,
// and validation strength into a single bounded score, then adjusts it
// using recent developer feedback.
package confidence

import (
	"fmt"

	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/learning"
)

// #region estimate

// Estimate computes the weighted base confidence. Inputs are expected in
// [0,1]; the result is clamped there regardless.
func Estimate(historical, contextual, validation float64, meta *GeneratorMeta) Score {
	value := config.HistoricalWeight*historical +
		config.ContextualWeight*contextual +
		config.ValidationWeight*validation

	score := Score{
		Value: clamp01(value),
		Factors: map[string]float64{
			"historical_accuracy":  historical,
			"contextual_relevance": contextual,
			"validation_strength":  validation,
		},
		Reasoning: []string{
			fmt.Sprintf("historical accuracy %.2f (weight %.1f)", historical, config.HistoricalWeight),
			fmt.Sprintf("contextual relevance %.2f (weight %.1f)", contextual, config.ContextualWeight),
			fmt.Sprintf("validation strength %.2f (weight %.1f)", validation, config.ValidationWeight),
		},
	}

	if meta != nil {
		score.Reasoning = append(score.Reasoning,
			fmt.Sprintf("generator %s specialization=%s", meta.Version, meta.Specialization))
	}
	return score
}

// #endregion estimate

// #region adjust

// AdjustForFeedback returns a new score adjusted by the feedback history.
// Empty history is the identity. A strong acceptance rate (> 0.8) rewards
// the score multiplicatively; a weak one (< 0.5) penalizes it. An average
// rating shifts the value additively around the neutral rating, after
// which the value is floored.
func AdjustForFeedback(base Score, history []learning.Feedback) Score {
	if len(history) == 0 {
		return base
	}

	adjusted := base.clone()

	accepted := 0
	ratedSum, ratedCount := 0.0, 0
	for _, fb := range history {
		if fb.Accepted {
			accepted++
		}
		if fb.Rating > 0 {
			ratedSum += float64(fb.Rating)
			ratedCount++
		}
	}

	acceptanceRate := float64(accepted) / float64(len(history))
	if acceptanceRate > config.AcceptanceRewardThreshold {
		adjusted.Value *= config.AcceptanceRewardFactor
		if adjusted.Value > 1.0 {
			adjusted.Value = 1.0
		}
	} else if acceptanceRate < config.AcceptancePenaltyThreshold {
		adjusted.Value *= config.AcceptancePenaltyFactor
	}
	adjusted.Reasoning = append(adjusted.Reasoning,
		fmt.Sprintf("acceptance rate %.2f over %d feedback event(s)", acceptanceRate, len(history)))

	if ratedCount > 0 {
		avgRating := ratedSum / float64(ratedCount)
		adjusted.Value += (avgRating - config.RatingNeutral) * config.RatingAdjustmentStep
		if adjusted.Value < config.AdjustedConfidenceFloor {
			adjusted.Value = config.AdjustedConfidenceFloor
		}
		adjusted.Reasoning = append(adjusted.Reasoning,
			fmt.Sprintf("average rating %.2f over %d rated event(s)", avgRating, ratedCount))
	}

	adjusted.Value = clamp01(adjusted.Value)
	adjusted.Factors["acceptance_rate"] = acceptanceRate
	return adjusted
}

// #endregion adjust

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
