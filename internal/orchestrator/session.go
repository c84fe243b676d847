// Package orchestrator wires the decision loop (generate → validate →
// estimate → gate) and the learning loop (feedback → insight → adaptation)
// for one tenant. All mutable safety state lives inside the session's
// collaborators; nothing here is global.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patchpilot/governor/internal/adaptation"
	"github.com/patchpilot/governor/internal/backend"
	"github.com/patchpilot/governor/internal/confidence"
	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/errclass"
	"github.com/patchpilot/governor/internal/gate"
	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/pipeline"
	"github.com/patchpilot/governor/internal/store"
)

// #region types

// Evaluation is the outcome of one generation attempt.
type Evaluation struct {
	SuggestionID string
	Candidate    backend.Candidate
	Validation   pipeline.Result
	Confidence   confidence.Score
	Decision     gate.Decision
	Error        *errclass.ErrorInfo // set when the attempt failed before gating
}

// #endregion types

// #region session

// Session owns the two loops for one tenant.
type Session struct {
	tenant     string
	store      *store.Store
	generator  backend.Generator
	pipeline   *pipeline.Pipeline
	gate       *gate.Gate
	learning   *learning.Engine
	adaptation *adaptation.Engine
	classifier *errclass.Classifier
	logger     *logging.Logger
	enabled    bool
	now        func() time.Time
}

// NewSession wires a session from the policy. Persisted controls, when
// present, take precedence over the policy file so adaptations survive
// restarts. Kill switch: GOVERNOR_ENABLED=false.
func NewSession(tenant string, st *store.Store, gen backend.Generator, policy config.Policy, logger *logging.Logger) (*Session, error) {
	enabled := config.EnvOr("GOVERNOR_ENABLED", "true") != "false"

	controls := gate.FromPolicy(policy)
	if current, err := st.CurrentControls(); err == nil {
		var persisted gate.Controls
		if err := json.Unmarshal(current.Payload, &persisted); err != nil {
			return nil, fmt.Errorf("decode persisted controls: %w", err)
		}
		controls = persisted
		logger.Infof("[SESSION] restored controls version=%s", current.VersionID)
	}
	g := gate.New(controls, logger)

	p := pipeline.New(time.Duration(policy.Pipeline.StageTimeoutSeconds)*time.Second, logger)
	for _, stage := range pipeline.DefaultStages(policy.Pipeline) {
		p.Register(stage)
	}

	le, err := learning.NewEngine(st, logger)
	if err != nil {
		return nil, fmt.Errorf("learning engine: %w", err)
	}

	return &Session{
		tenant:     tenant,
		store:      st,
		generator:  gen,
		pipeline:   p,
		gate:       g,
		learning:   le,
		adaptation: adaptation.NewEngine(st, g, le, logger),
		classifier: errclass.New(logger),
		logger:     logger,
		enabled:    enabled,
		now:        time.Now,
	}, nil
}

// Enabled reports whether the kill switch allows evaluations.
func (s *Session) Enabled() bool { return s.enabled }

// Gate exposes the session's gate for operator actions (emergency
// trigger/clear, violation inspection).
func (s *Session) Gate() *gate.Gate { return s.gate }

// #endregion session

// #region evaluate

// EvaluateIntent runs the decision loop for one natural-language intent.
// Generation errors are classified; only automatic generation-category
// recoveries get a single fallback retry.
func (s *Session) EvaluateIntent(ctx context.Context, intent string) (Evaluation, error) {
	ev := Evaluation{SuggestionID: uuid.New().String()}

	if !s.enabled {
		ev.Decision = gate.Decision{
			Approved:       false,
			RequiresReview: true,
			Reasoning:      []string{"governor disabled by kill switch"},
		}
		return ev, nil
	}

	cand, err := s.generator.Generate(ctx, intent)
	if err != nil {
		info := s.classifier.Classify(err, "generation backend")
		if info.Recovery.Automatic && info.Recovery.Strategy == errclass.StrategyRetryWithFallback {
			s.logger.Warnf("[SESSION] generation failed, retrying on the fallback path: %v", err)
			cand, err = s.generator.GenerateFallback(ctx, intent)
		}
		if err != nil {
			info = s.classifier.Classify(err, "generation backend")
			ev.Error = &info
			s.audit(ev, "error", info.Code)
			return ev, fmt.Errorf("generate candidate: %w", err)
		}
	}
	ev.Candidate = cand

	pc := &pipeline.Candidate{
		SuggestionID: ev.SuggestionID,
		Intent:       intent,
		Diff:         cand.Diff,
	}
	ev.Validation = s.pipeline.Validate(ctx, pc, false)

	historical := 0.5
	windowStart := s.now().UTC().AddDate(0, 0, -config.MonitoringWindowDays)
	if rate, n, err := s.store.AcceptanceRateSince(windowStart); err == nil && n > 0 {
		historical = rate
	}
	contextual := contextualRelevance(intent, cand.Diff)
	validation := (ev.Validation.Score + cand.ValidationStrength) / 2

	base := confidence.Estimate(historical, contextual, validation, &confidence.GeneratorMeta{
		Version:        cand.Model,
		Specialization: cand.Specialization,
	})
	ev.Confidence = confidence.AdjustForFeedback(base, s.learning.History())

	risks := riskFactors(ev.Validation)
	ev.Decision = s.gate.Assess(ev.Confidence.Value, risks)

	if containsSecretHit(ev.Validation) {
		s.gate.RecordViolation("secret material in candidate diff")
	}

	s.audit(ev, decisionLabel(ev.Decision), "")
	return ev, nil
}

// #endregion evaluate

// #region feedback

// SubmitFeedback runs the learning loop: process the event, then execute
// any resulting recommendations against the live controls.
func (s *Session) SubmitFeedback(fb learning.Feedback) (learning.Insight, adaptation.Result, error) {
	insight, err := s.learning.ProcessFeedback(fb)
	if err != nil {
		return learning.Insight{}, adaptation.Result{}, err
	}
	result, err := s.adaptation.Apply(insight)
	if err != nil {
		return insight, result, fmt.Errorf("apply adaptations: %w", err)
	}
	return insight, result, nil
}

// MonitorAdaptations scores active adaptations against observed acceptance.
func (s *Session) MonitorAdaptations() ([]adaptation.MonitorReport, error) {
	return s.adaptation.MonitorEffectiveness()
}

// RollbackAdaptation reverts one applied adaptation.
func (s *Session) RollbackAdaptation(id string) error {
	return s.adaptation.Rollback(id)
}

// #endregion feedback

// #region helpers

// contextualRelevance measures how much of the intent's vocabulary shows
// up in the diff. Words shorter than 3 runes are ignored.
func contextualRelevance(intent, diff string) float64 {
	words := strings.Fields(strings.ToLower(intent))
	if len(words) == 0 {
		return 0.5
	}
	lowerDiff := strings.ToLower(diff)
	hits := 0
	for _, w := range words {
		if len(w) >= 3 && strings.Contains(lowerDiff, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

// riskFactors derives gate risk categories from the validation aggregate.
// Matches against the failure phrasing of the built-in stages, so passing
// stage messages never raise a factor.
func riskFactors(res pipeline.Result) []gate.RiskFactor {
	var out []gate.RiskFactor
	text := strings.ToLower(res.Message + " " + strings.Join(res.Details, " "))
	if strings.Contains(text, "credential-shaped") {
		out = append(out, gate.RiskSecurityRelated)
	}
	if strings.Contains(text, "matches protected path") {
		out = append(out, gate.RiskCriticalPath)
	}
	if strings.Contains(text, "exceed") {
		out = append(out, gate.RiskHighImpact)
	}
	return out
}

func containsSecretHit(res pipeline.Result) bool {
	text := strings.ToLower(res.Message + " " + strings.Join(res.Details, " "))
	return strings.Contains(text, "credential-shaped")
}

func decisionLabel(d gate.Decision) string {
	switch {
	case d.Approved:
		return "approve"
	case d.RequiresReview:
		return "requires_review"
	default:
		return "deny"
	}
}

func (s *Session) audit(ev Evaluation, decision, errorCode string) {
	entry := logging.DecisionEntry{
		SuggestionID: ev.SuggestionID,
		Tenant:       s.tenant,
		Decision:     decision,
		Confidence:   ev.Confidence.Value,
		Reasoning:    strings.Join(ev.Decision.Reasoning, "; "),
		ErrorCode:    errorCode,
		CreatedAt:    s.now().UTC(),
	}
	if err := logging.LogDecision(s.store.DB(), entry); err != nil {
		s.logger.Errorf("[SESSION] decision audit write failed: %v", err)
	}
}

// #endregion helpers
