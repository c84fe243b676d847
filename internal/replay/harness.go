// Package replay runs recorded feedback fixtures through the learning and
// adaptation loop and checks the outcomes against expectations. Used for
// regression-testing threshold behavior against captured production traces.
package replay

import (
	"fmt"
	"math"

	"github.com/patchpilot/governor/internal/adaptation"
	"github.com/patchpilot/governor/internal/gate"
	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/store"
)

// #region types

// Result captures the outcome of replaying one feedback event.
type Result struct {
	SuggestionID      string
	Recommendations   int
	AppliedActions    []string
	LowThresholdAfter float64
	Mismatches        []string // deviations from the fixture's expectations
}

// Summary aggregates one replay run.
type Summary struct {
	TotalEvents       int
	AppliedChanges    int
	Mismatches        int
	FinalLowThreshold float64
}

// #endregion types

// #region replay

// Replay feeds every fixture event through learning and adaptation against
// the given store, checking each expectation as it goes.
func Replay(fx Fixture, st *store.Store, logger *logging.Logger) ([]Result, Summary, error) {
	controls := gate.DefaultControls()
	if fx.StartThresholds.Low > 0 {
		controls.Thresholds = gate.Thresholds(fx.StartThresholds)
	}
	g := gate.New(controls, logger)

	le, err := learning.NewEngine(st, logger)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("learning engine: %w", err)
	}
	ae := adaptation.NewEngine(st, g, le, logger)

	expected := make(map[string]FixtureExpectedResult, len(fx.ExpectedResults))
	for _, exp := range fx.ExpectedResults {
		expected[exp.SuggestionID] = exp
	}

	results := make([]Result, 0, len(fx.Events))
	summary := Summary{TotalEvents: len(fx.Events)}

	for _, ev := range fx.Events {
		insight, err := le.ProcessFeedback(ev.feedback())
		if err != nil {
			return results, summary, fmt.Errorf("event %s: %w", ev.SuggestionID, err)
		}
		applied, err := ae.Apply(insight)
		if err != nil {
			return results, summary, fmt.Errorf("event %s: %w", ev.SuggestionID, err)
		}

		r := Result{
			SuggestionID:      ev.SuggestionID,
			Recommendations:   len(insight.Recommendations),
			LowThresholdAfter: g.Controls().Thresholds.Low,
		}
		for _, ch := range applied.Applied {
			r.AppliedActions = append(r.AppliedActions, ch.Action)
		}
		summary.AppliedChanges += len(applied.Applied)

		if exp, ok := expected[ev.SuggestionID]; ok {
			r.Mismatches = checkExpectation(exp, r)
			summary.Mismatches += len(r.Mismatches)
		}
		results = append(results, r)

		logger.Debugf("[REPLAY] event=%s recommendations=%d applied=%d low=%.2f",
			ev.SuggestionID, r.Recommendations, len(r.AppliedActions), r.LowThresholdAfter)
	}

	summary.FinalLowThreshold = g.Controls().Thresholds.Low
	return results, summary, nil
}

func checkExpectation(exp FixtureExpectedResult, r Result) []string {
	var mismatches []string

	if exp.Actions != nil {
		if len(exp.Actions) != len(r.AppliedActions) {
			mismatches = append(mismatches, fmt.Sprintf("expected %d applied action(s), got %d",
				len(exp.Actions), len(r.AppliedActions)))
		} else {
			for i := range exp.Actions {
				if exp.Actions[i] != r.AppliedActions[i] {
					mismatches = append(mismatches, fmt.Sprintf("action %d: expected %s, got %s",
						i, exp.Actions[i], r.AppliedActions[i]))
				}
			}
		}
	}

	if exp.LowThresholdAfter != nil {
		if math.Abs(*exp.LowThresholdAfter-r.LowThresholdAfter) > 1e-9 {
			mismatches = append(mismatches, fmt.Sprintf("expected low threshold %.2f, got %.2f",
				*exp.LowThresholdAfter, r.LowThresholdAfter))
		}
	}
	return mismatches
}

// #endregion replay
