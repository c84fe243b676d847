// Package adaptation executes learning recommendations against the live
// safety controls, tracks each applied change with a rollback plan, and
// scores applied changes against observed acceptance rates.
package adaptation

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/gate"
	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/store"
)

// #region engine

// Engine mutates the gate's controls in response to learning insights.
// Every mutation is committed to the store before it becomes visible to
// the gate, so a crash cannot silently revert a safety tightening.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	gate     *gate.Gate
	learning *learning.Engine
	logger   *logging.Logger
	now      func() time.Time // swapped in tests
}

// NewEngine wires the adaptation engine to its collaborators.
func NewEngine(st *store.Store, g *gate.Gate, le *learning.Engine, logger *logging.Logger) *Engine {
	return &Engine{store: st, gate: g, learning: le, logger: logger, now: time.Now}
}

// #endregion engine

// #region apply

// Apply executes every recommendation attached to the insight. Each
// executed change is persisted as a new controls version plus an active
// adaptation record before the gate sees it.
func (e *Engine) Apply(insight learning.Insight) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result Result
	for _, rec := range insight.Recommendations {
		change, err := e.applyOne(insight, rec)
		if err != nil {
			return result, fmt.Errorf("apply %s/%s: %w", rec.Type, rec.Action, err)
		}
		if change == nil {
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("%s/%s: no configuration mutation defined", rec.Type, rec.Action))
			continue
		}
		result.Applied = append(result.Applied, *change)
	}
	return result, nil
}

// applyOne runs under the engine mutex.
func (e *Engine) applyOne(insight learning.Insight, rec learning.Recommendation) (*AppliedChange, error) {
	controls := e.gate.Controls()
	var detail string

	switch rec.Action {
	case learning.ActionReduceThreshold:
		before := controls.Thresholds.Low
		controls.Thresholds.Low = clampThreshold(before - config.ThresholdStep)
		detail = fmt.Sprintf("low threshold %.2f -> %.2f", before, controls.Thresholds.Low)

	case learning.ActionRaiseThreshold:
		before := controls.Thresholds.Low
		controls.Thresholds.Low = clampThreshold(before + config.ThresholdStep)
		detail = fmt.Sprintf("low threshold %.2f -> %.2f", before, controls.Thresholds.Low)

	case learning.ActionLearnModification:
		// Record the modification as a learned pattern and reward the
		// engagement with a slightly larger hourly budget.
		e.learning.RecordPattern(insight.SuggestionID+"/modified", insight.Effectiveness)
		before := controls.Limits.MaxSuggestionsPerHour
		if before < config.MaxSuggestionsPerHour {
			controls.Limits.MaxSuggestionsPerHour = before + 1
		}
		detail = fmt.Sprintf("modification pattern recorded; hourly limit %d -> %d",
			before, controls.Limits.MaxSuggestionsPerHour)

	case learning.ActionLimitFrequency:
		before := controls.Limits.MaxSuggestionsPerHour
		halved := before / 2
		if halved < config.MinSuggestionsPerHour {
			halved = config.MinSuggestionsPerHour
		}
		controls.Limits.MaxSuggestionsPerHour = halved
		controls.Risk = gate.RiskAssessment{
			CriticalPath:    true,
			HighImpact:      true,
			SecurityRelated: true,
			BreakingChange:  true,
		}
		controls.Limits.RollbackRequired = true
		detail = fmt.Sprintf("hourly limit %d -> %d; all risk reviews enabled", before, halved)

	default:
		return nil, nil
	}

	previous, err := e.commitControls(controls, fmt.Sprintf("%s: %s", rec.Type, rec.Reason))
	if err != nil {
		return nil, err
	}

	active, err := e.trackAdaptation(insight, rec, previous)
	if err != nil {
		return nil, err
	}

	e.gate.SetControls(controls)
	e.logger.Infof("[ADAPT] applied %s action=%s adaptation=%s (%s)",
		rec.Type, rec.Action, active.AdaptationID, detail)

	return &AppliedChange{
		AdaptationID: active.AdaptationID,
		Type:         rec.Type,
		Action:       rec.Action,
		Detail:       detail,
	}, nil
}

// commitControls persists the mutated controls as a new version and returns
// the parent version to restore on rollback.
func (e *Engine) commitControls(c gate.Controls, reason string) (string, error) {
	parent := ""
	if current, err := e.store.CurrentControls(); err == nil {
		parent = current.VersionID
	} else {
		// First mutation: commit the pre-mutation controls so a rollback
		// target exists.
		seed, mErr := json.Marshal(e.gate.Controls())
		if mErr != nil {
			return "", mErr
		}
		parent, err = e.store.SaveControls(seed, "", "initial controls snapshot")
		if err != nil {
			return "", err
		}
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	if _, err := e.store.SaveControls(payload, parent, reason); err != nil {
		return "", err
	}
	return parent, nil
}

// trackAdaptation records the applied change with its monitoring window,
// baseline metric, and rollback plan.
func (e *Engine) trackAdaptation(insight learning.Insight, rec learning.Recommendation, previousVersion string) (ActiveAdaptation, error) {
	now := e.now().UTC()

	baseline := 0.5
	windowStart := now.AddDate(0, 0, -config.MonitoringWindowDays)
	if rate, n, err := e.store.AcceptanceRateSince(windowStart); err == nil && n > 0 {
		baseline = rate
	}

	active := ActiveAdaptation{
		AdaptationID:    uuid.New().String(),
		Type:            rec.Type,
		AppliedAt:       now,
		Insight:         insight,
		WindowDays:      config.MonitoringWindowDays,
		Baseline:        baseline,
		Target:          clamp01(baseline + 0.1),
		PreviousVersion: previousVersion,
		Plan:            rollbackPlan(rec),
	}

	insightJSON, err := json.Marshal(insight)
	if err != nil {
		return ActiveAdaptation{}, err
	}
	planJSON, err := json.Marshal(active.Plan)
	if err != nil {
		return ActiveAdaptation{}, err
	}

	row := store.AdaptationRow{
		AdaptationID:    active.AdaptationID,
		Type:            string(active.Type),
		AppliedAt:       active.AppliedAt,
		WindowDays:      active.WindowDays,
		Baseline:        active.Baseline,
		Target:          active.Target,
		PreviousVersion: active.PreviousVersion,
		InsightJSON:     string(insightJSON),
		RollbackJSON:    string(planJSON),
		Status:          "active",
	}
	if err := e.store.SaveAdaptation(row); err != nil {
		return ActiveAdaptation{}, err
	}
	return active, nil
}

func rollbackPlan(rec learning.Recommendation) RollbackPlan {
	return RollbackPlan{
		Steps: []string{
			"revert configuration version",
			"reset learning parameters",
			"notify affected developers",
			"monitor for regression",
		},
		RiskTier:          string(rec.Impact),
		EstimatedDuration: "15m",
		ValidationSteps: []string{
			"confirm active controls match the restored version",
			"confirm gate decisions use the restored thresholds",
		},
	}
}

// #endregion apply

// #region monitor

// MonitorEffectiveness scores every active adaptation against the observed
// acceptance rate since it was applied. With no data the reading is the
// neutral 0.5; strong movement above the baseline recommends expansion,
// strong movement below recommends rollback.
func (e *Engine) MonitorEffectiveness() ([]MonitorReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.store.ListAdaptations("active")
	if err != nil {
		return nil, fmt.Errorf("list active adaptations: %w", err)
	}

	now := e.now().UTC()
	reports := make([]MonitorReport, 0, len(rows))
	for _, row := range rows {
		window := time.Duration(row.WindowDays) * 24 * time.Hour
		progress := clamp01(now.Sub(row.AppliedAt).Seconds() / window.Seconds())

		effectiveness := 0.5
		samples := 0
		if rate, n, err := e.store.AcceptanceRateSince(row.AppliedAt); err == nil && n > 0 {
			effectiveness = clamp01(0.5 + (rate - row.Baseline))
			samples = n
		}

		report := MonitorReport{
			AdaptationID:  row.AdaptationID,
			Type:          learning.RecommendationType(row.Type),
			Progress:      progress,
			Effectiveness: effectiveness,
			Samples:       samples,
			Verdict:       VerdictHold,
		}
		switch {
		case effectiveness > config.TopPerformerThreshold:
			report.Verdict = VerdictExpand
			report.Recommendation = "acceptance improved against baseline; consider expanding this adaptation"
		case effectiveness < config.UnderperformerThreshold:
			report.Verdict = VerdictRollback
			report.Recommendation = "acceptance regressed against baseline; roll this adaptation back"
		}
		reports = append(reports, report)

		e.logger.Debugf("[ADAPT] monitor adaptation=%s progress=%.2f effectiveness=%.2f verdict=%s",
			row.AdaptationID, progress, effectiveness, report.Verdict)
	}
	return reports, nil
}

// #endregion monitor

// #region rollback

// Rollback restores the controls version recorded before the adaptation
// was applied and marks the adaptation rolled back.
func (e *Engine) Rollback(adaptationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.store.ListAdaptations("active")
	if err != nil {
		return fmt.Errorf("list active adaptations: %w", err)
	}
	var target *store.AdaptationRow
	for i := range rows {
		if rows[i].AdaptationID == adaptationID {
			target = &rows[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no active adaptation %s", adaptationID)
	}
	if target.PreviousVersion == "" {
		return fmt.Errorf("adaptation %s has no rollback target", adaptationID)
	}

	if err := e.store.RollbackControls(target.PreviousVersion); err != nil {
		return fmt.Errorf("rollback controls: %w", err)
	}
	restored, err := e.store.ControlsVersion(target.PreviousVersion)
	if err != nil {
		return fmt.Errorf("load restored controls: %w", err)
	}
	var controls gate.Controls
	if err := json.Unmarshal(restored.Payload, &controls); err != nil {
		return fmt.Errorf("decode restored controls: %w", err)
	}
	e.gate.SetControls(controls)

	if err := e.store.UpdateAdaptationStatus(adaptationID, "rolled_back"); err != nil {
		return fmt.Errorf("mark rolled back: %w", err)
	}
	e.logger.Warnf("[ADAPT] rolled back adaptation=%s to version=%s", adaptationID, target.PreviousVersion)
	return nil
}

// #endregion rollback

// #region helpers

func clampThreshold(v float64) float64 {
	if v < config.LowThresholdFloor {
		return config.LowThresholdFloor
	}
	if v > config.LowThresholdCeiling {
		return config.LowThresholdCeiling
	}
	return v
}

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
