// Package learning consumes discrete human feedback events and produces
// learning insights: rejection analyses, effectiveness scores, and proposed
// adaptations for the behavior adaptation engine.
package learning

import (
	"fmt"
	"sync"
	"time"

	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/store"
)

// #region alternatives

// rejectionAlternatives maps each rejection reason to canned improvement
// directions surfaced in the analysis.
var rejectionAlternatives = map[RejectionReason][]string{
	ReasonIrrelevant:       {"focus on more relevant patterns"},
	ReasonWrong:            {"improve analysis accuracy"},
	ReasonIncomplete:       {"provide more comprehensive implementations"},
	ReasonOverlyAggressive: {"reduce suggested change scope"},
}

// #endregion alternatives

// #region engine

// Engine owns the bounded feedback history and pattern statistics for one
// tenant. All mutation goes through the engine's mutex; the surrounding
// system must not share one Engine across tenants.
type Engine struct {
	mu       sync.Mutex
	history  []Feedback
	patterns map[string]*PatternStats
	store    *store.Store // nil = in-memory only
	logger   *logging.Logger
}

// NewEngine creates a learning engine, reloading recent history from the
// store when one is given.
func NewEngine(st *store.Store, logger *logging.Logger) (*Engine, error) {
	e := &Engine{
		patterns: make(map[string]*PatternStats),
		store:    st,
		logger:   logger,
	}
	if st != nil {
		rows, err := st.RecentFeedback(config.FeedbackRetention)
		if err != nil {
			return nil, fmt.Errorf("reload feedback history: %w", err)
		}
		for _, r := range rows {
			e.history = append(e.history, feedbackFromRow(r))
		}
	}
	return e, nil
}

// #endregion engine

// #region process-feedback

// ProcessFeedback persists the event, appends it to the bounded history,
// and derives an insight. The durable append happens before the in-memory
// truncation, so retention can never drop an unpersisted entry.
func (e *Engine) ProcessFeedback(fb Feedback) (Insight, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store != nil {
		if err := e.store.AppendFeedback(rowFromFeedback(fb)); err != nil {
			return Insight{}, fmt.Errorf("persist feedback: %w", err)
		}
	}

	// Rejection frequency counts prior entries only.
	rejection := e.analyzeRejection(fb)

	e.history = append(e.history, fb)
	if len(e.history) > config.FeedbackRetention {
		e.history = e.history[len(e.history)-config.FeedbackRetention:]
	}

	effectiveness := EffectivenessScore(fb)
	e.updatePatterns(fb, effectiveness)

	insight := Insight{
		SuggestionID:    fb.SuggestionID,
		Rejection:       rejection,
		Effectiveness:   effectiveness,
		Recommendations: recommend(fb, effectiveness),
		Patterns:        e.patternNotes(fb),
		Confidence:      clamp01(config.InsightConfidenceBase + config.InsightConfidencePerSample*float64(len(e.history))),
	}

	e.logger.Infof("[LEARN] feedback suggestion=%s accepted=%v effectiveness=%.2f recommendations=%d",
		fb.SuggestionID, fb.Accepted, effectiveness, len(insight.Recommendations))

	return insight, nil
}

// #endregion process-feedback

// #region rejection-analysis

// analyzeRejection runs under the engine mutex.
func (e *Engine) analyzeRejection(fb Feedback) RejectionAnalysis {
	if fb.Accepted {
		return RejectionAnalysis{
			PrimaryReason: "accepted",
			Notes:         []string{"suggestion accepted; no rejection to analyze"},
		}
	}

	reason := fb.RejectionReason
	if reason == "" {
		reason = "unspecified"
	}

	frequency := 0
	for _, prior := range e.history {
		if !prior.Accepted && prior.RejectionReason == reason {
			frequency++
		}
	}

	analysis := RejectionAnalysis{
		PrimaryReason: string(reason),
		Frequency:     frequency,
		Alternatives:  rejectionAlternatives[reason],
	}
	if frequency >= 3 {
		analysis.Notes = append(analysis.Notes,
			fmt.Sprintf("reason %q has recurred %d times; systemic issue", reason, frequency))
	}
	if fb.Note != "" {
		analysis.Notes = append(analysis.Notes, "developer note: "+fb.Note)
	}
	return analysis
}

// #endregion rejection-analysis

// #region effectiveness

// EffectivenessScore derives a [0,1] value for one feedback event. A rating
// replaces the accept/reject base entirely; modification and slow review
// each subtract a penalty.
func EffectivenessScore(fb Feedback) float64 {
	score := config.RejectedEffectivenessBase
	if fb.Accepted {
		score = config.AcceptedEffectivenessBase
	}
	if fb.Rating > 0 {
		score = float64(fb.Rating) / 5.0
	}
	if fb.Modified {
		score -= config.EffectivenessPenalty
	}
	if fb.ReviewSeconds > config.SlowReviewSeconds {
		score -= config.EffectivenessPenalty
	}
	return clamp01(score)
}

// #endregion effectiveness

// #region recommendations

// recommend is the rule chain turning one feedback event into a proposed
// adaptation. First matching rule wins; at most one recommendation per
// event.
func recommend(fb Feedback, effectiveness float64) []Recommendation {
	switch {
	case !fb.Accepted && fb.RejectionReason == ReasonWrong:
		return []Recommendation{{
			Type:   RecSuggestionQuality,
			Action: ActionReduceThreshold,
			Reason: "suggestions judged wrong; lower the bar to resurface more alternatives for review",
			Impact: ImpactHigh,
		}}
	case !fb.Accepted && (fb.RejectionReason == ReasonIrrelevant || fb.RejectionReason == ReasonOverlyAggressive):
		return []Recommendation{{
			Type:   RecSuggestionQuality,
			Action: ActionRaiseThreshold,
			Reason: fmt.Sprintf("suggestions judged %s; tighten the confidence bar", fb.RejectionReason),
			Impact: ImpactMedium,
		}}
	case fb.Modified && effectiveness > 0.5:
		return []Recommendation{{
			Type:   RecDeveloperCustomization,
			Action: ActionLearnModification,
			Reason: "developer improved the suggestion before applying it",
			Impact: ImpactMedium,
		}}
	case effectiveness < config.UnderperformerThreshold:
		return []Recommendation{{
			Type:   RecCapabilityRestriction,
			Action: ActionLimitFrequency,
			Reason: fmt.Sprintf("effectiveness %.2f below %.2f; restrict suggestion frequency", effectiveness, config.UnderperformerThreshold),
			Impact: ImpactHigh,
		}}
	}
	return nil
}

// #endregion recommendations

// #region patterns

// updatePatterns runs under the engine mutex. Groups by
// (suggestionID, outcome) and keeps a running mean effectiveness.
func (e *Engine) updatePatterns(fb Feedback, effectiveness float64) {
	key := patternKey(fb)
	stats, ok := e.patterns[key]
	if !ok {
		stats = &PatternStats{}
		e.patterns[key] = stats
	}
	stats.Count++
	stats.SuccessRate += (effectiveness - stats.SuccessRate) / float64(stats.Count)
}

func (e *Engine) patternNotes(fb Feedback) []string {
	key := patternKey(fb)
	stats := e.patterns[key]
	if stats == nil {
		return nil
	}
	return []string{fmt.Sprintf("group %s: %d event(s), success rate %.2f", key, stats.Count, stats.SuccessRate)}
}

// RecordPattern registers an externally learned pattern note, used by the
// adaptation engine when executing developer-customization changes.
func (e *Engine) RecordPattern(key string, success float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats, ok := e.patterns[key]
	if !ok {
		stats = &PatternStats{}
		e.patterns[key] = stats
	}
	stats.Count++
	stats.SuccessRate += (success - stats.SuccessRate) / float64(stats.Count)
}

func patternKey(fb Feedback) string {
	outcome := "rejected"
	if fb.Accepted {
		outcome = "accepted"
	}
	return fb.SuggestionID + "/" + outcome
}

// #endregion patterns

// #region history

// History returns a copy of the in-memory feedback history, oldest first.
func (e *Engine) History() []Feedback {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Feedback, len(e.history))
	copy(out, e.history)
	return out
}

// #endregion history

// #region developer-effectiveness

// DeveloperEffectiveness aggregates one developer's history: acceptance
// rate, modification rate, mean review time, a recency trend, and an
// engagement level derived from review speed.
func (e *Engine) DeveloperEffectiveness(developerID string) DeveloperEffectiveness {
	e.mu.Lock()
	defer e.mu.Unlock()

	var entries []Feedback
	for _, fb := range e.history {
		if fb.DeveloperID == developerID {
			entries = append(entries, fb)
		}
	}

	eff := DeveloperEffectiveness{DeveloperID: developerID, Samples: len(entries)}
	if len(entries) == 0 {
		return eff
	}

	accepted, modified := 0, 0
	var totalSeconds float64
	for _, fb := range entries {
		if fb.Accepted {
			accepted++
		}
		if fb.Modified {
			modified++
		}
		totalSeconds += fb.ReviewSeconds
	}

	n := float64(len(entries))
	eff.AcceptanceRate = float64(accepted) / n
	eff.ModificationRate = float64(modified) / n
	eff.MeanReviewSeconds = totalSeconds / n
	eff.Engagement = clamp01(1 - eff.MeanReviewSeconds/config.EngagementFullSeconds)

	recent := entries
	if len(recent) > config.RecentTrendWindow {
		recent = recent[len(recent)-config.RecentTrendWindow:]
	}
	recentAccepted := 0
	for _, fb := range recent {
		if fb.Accepted {
			recentAccepted++
		}
	}
	eff.Trend = float64(recentAccepted)/float64(len(recent)) - eff.AcceptanceRate

	return eff
}

// #endregion developer-effectiveness

// #region row-conversion

func rowFromFeedback(fb Feedback) store.FeedbackRow {
	return store.FeedbackRow{
		SuggestionID:    fb.SuggestionID,
		DeveloperID:     fb.DeveloperID,
		Accepted:        fb.Accepted,
		Rating:          fb.Rating,
		RejectionReason: string(fb.RejectionReason),
		Modified:        fb.Modified,
		ReviewSeconds:   fb.ReviewSeconds,
		Note:            fb.Note,
		CreatedAt:       fb.CreatedAt,
	}
}

func feedbackFromRow(r store.FeedbackRow) Feedback {
	return Feedback{
		SuggestionID:    r.SuggestionID,
		DeveloperID:     r.DeveloperID,
		Accepted:        r.Accepted,
		Rating:          r.Rating,
		RejectionReason: RejectionReason(r.RejectionReason),
		Modified:        r.Modified,
		ReviewSeconds:   r.ReviewSeconds,
		Note:            r.Note,
		CreatedAt:       r.CreatedAt,
	}
}

// #endregion row-conversion

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
