// Package gate is the final authority on whether an adjusted suggestion
// reaches a developer. It layers emergency mode, a conservative confidence
// threshold, risk-category review flags, and real rate limits, and it owns
// the violation circuit breaker.
package gate

import (
	"fmt"
	"sync"

	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/logging"
)

// #region gate

// Gate guards one tenant. All state behind the mutex; never share a Gate
// across tenants.
type Gate struct {
	mu       sync.Mutex
	controls Controls
	breaker  breaker
	limits   *limiters
	logger   *logging.Logger
}

// New creates a gate with the given starting controls.
func New(controls Controls, logger *logging.Logger) *Gate {
	return &Gate{
		controls: controls,
		limits:   newLimiters(controls.Limits),
		logger:   logger,
	}
}

// Controls returns a copy of the live controls.
func (g *Gate) Controls() Controls {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.controls
}

// SetControls swaps the live controls. Used by the adaptation engine after
// persisting a new controls version. The rate limiters are rebuilt only
// when the limit values actually changed, so a threshold-only adaptation
// does not refill spent suggestion budget.
func (g *Gate) SetControls(c Controls) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c.Limits.MaxSuggestionsPerHour != g.controls.Limits.MaxSuggestionsPerHour ||
		c.Limits.MaxSuggestionsPerDay != g.controls.Limits.MaxSuggestionsPerDay {
		g.limits = newLimiters(c.Limits)
	}
	g.controls = c
	if c.Emergency.Enabled {
		g.breaker.trip()
	}
	g.logger.Infof("[GATE] controls updated low=%.2f hourly=%d daily=%d emergency=%v",
		c.Thresholds.Low, c.Limits.MaxSuggestionsPerHour, c.Limits.MaxSuggestionsPerDay, c.Emergency.Enabled)
}

// #endregion gate

// #region assess

// Assess decides whether a suggestion with the given adjusted confidence
// and detected risk factors may be surfaced. Emergency mode short-circuits
// everything else.
func (g *Gate) Assess(confidence float64, riskFactors []RiskFactor) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.controls.Emergency.Enabled {
		reason := g.controls.Emergency.Reason
		if reason == "" {
			reason = g.controls.Emergency.FallbackBehavior
		}
		g.logger.Warnf("[GATE] emergency mode denial confidence=%.2f", confidence)
		return Decision{
			Approved:        false,
			ConfidenceScore: confidence,
			RequiresReview:  true,
			Reasoning:       []string{fmt.Sprintf("emergency mode active: %s", reason)},
		}
	}

	d := Decision{ConfidenceScore: confidence}

	// The low tier is the most conservative threshold; it applies to every
	// suggestion regardless of tier configuration.
	meetsThreshold := confidence >= g.controls.Thresholds.Low
	if !meetsThreshold {
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, g.controls.Thresholds.Low))
	}

	for _, rf := range riskFactors {
		if g.reviewRequired(rf) {
			d.RequiresReview = true
			d.Reasoning = append(d.Reasoning, fmt.Sprintf("risk category %s requires human review", rf))
		}
	}

	// Limits apply only to suggestions that would otherwise surface; a
	// denied or review-forced suggestion spends no tokens.
	if meetsThreshold && !d.RequiresReview {
		if window := g.limits.consume(); window != "" {
			d.RequiresReview = true
			d.Reasoning = append(d.Reasoning, fmt.Sprintf("%s suggestion limit reached", window))
		}
	}

	d.Approved = meetsThreshold && !d.RequiresReview
	g.logger.Debugf("[GATE] assess confidence=%.2f approved=%v review=%v reasons=%d",
		confidence, d.Approved, d.RequiresReview, len(d.Reasoning))
	return d
}

func (g *Gate) reviewRequired(rf RiskFactor) bool {
	switch rf {
	case RiskCriticalPath:
		return g.controls.Risk.CriticalPath
	case RiskHighImpact:
		return g.controls.Risk.HighImpact
	case RiskSecurityRelated:
		return g.controls.Risk.SecurityRelated
	case RiskBreakingChange:
		return g.controls.Risk.BreakingChange
	}
	return false
}

// #endregion assess

// #region emergency

// RecordViolation counts a safety violation toward the circuit breaker.
// The transition that reaches the limit opens the breaker and enables
// emergency mode.
func (g *Gate) RecordViolation(note string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.breaker.record() {
		g.controls.Emergency.Enabled = true
		g.controls.Emergency.Reason = fmt.Sprintf("circuit breaker opened after %d violations (%s)",
			config.BreakerViolationLimit, note)
		g.logger.Errorf("[GATE] circuit breaker open: %s", g.controls.Emergency.Reason)
		return
	}
	g.logger.Warnf("[GATE] violation %d/%d: %s", g.breaker.violations, config.BreakerViolationLimit, note)
}

// TriggerEmergency opens the breaker and enables emergency mode directly.
func (g *Gate) TriggerEmergency(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.breaker.trip()
	g.controls.Emergency.Enabled = true
	g.controls.Emergency.Reason = reason
	g.logger.Errorf("[GATE] emergency mode triggered: %s", reason)
}

// ClearEmergency resets the breaker and disables emergency mode. Operator
// action only; nothing in the system clears emergency mode on its own.
func (g *Gate) ClearEmergency() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.breaker.reset()
	g.controls.Emergency.Enabled = false
	g.controls.Emergency.Reason = ""
	g.logger.Infof("[GATE] emergency mode cleared, breaker closed")
}

// BreakerState reports the current breaker position.
func (g *Gate) BreakerState() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.breaker.state
}

// #endregion emergency
