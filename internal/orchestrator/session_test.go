package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patchpilot/governor/internal/backend"
	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/gate"
	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/store"
)

const handlerDiff = `--- a/internal/server/handler.go
+++ b/internal/server/handler.go
@@ -10,7 +10,7 @@ func handle(w http.ResponseWriter, r *http.Request) {
 	if r.Method != http.MethodGet {
-		w.WriteHeader(http.StatusMethodNotAllowed)
+		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
 		return
 	}
`

const leakyDiff = `--- a/cmd/server/main.go
+++ b/cmd/server/main.go
@@ -1,3 +1,4 @@
 package main
+const apiKey = "sk-123" // API_KEY = hardcoded

 func main() {}
`

// stubGenerator replays queued results and records which path served each
// attempt.
type stubGenerator struct {
	results []backend.Candidate
	errs    []error
	calls   int
	paths   []string
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (backend.Candidate, error) {
	s.paths = append(s.paths, "primary")
	return s.next()
}

func (s *stubGenerator) GenerateFallback(_ context.Context, _ string) (backend.Candidate, error) {
	s.paths = append(s.paths, "fallback")
	return s.next()
}

func (s *stubGenerator) next() (backend.Candidate, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return backend.Candidate{}, err
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return s.results[len(s.results)-1], nil
}

func newTestSession(t *testing.T, gen backend.Generator) (*Session, *store.Store) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "governor.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s, err := NewSession("tenant-1", st, gen, config.DefaultPolicy(), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, st
}

func TestEvaluateIntentHappyPath(t *testing.T) {
	gen := &stubGenerator{results: []backend.Candidate{{
		Diff:               handlerDiff,
		ValidationStrength: 0.9,
		Model:              "test-model",
	}}}
	s, st := newTestSession(t, gen)

	ev, err := s.EvaluateIntent(context.Background(), "return a proper error for the wrong http method in handler")
	if err != nil {
		t.Fatalf("EvaluateIntent: %v", err)
	}
	if ev.SuggestionID == "" {
		t.Fatal("evaluation must carry a suggestion id")
	}
	if !ev.Validation.Passed {
		t.Fatalf("clean diff should pass validation, got %+v", ev.Validation)
	}
	if ev.Confidence.Value <= 0 || ev.Confidence.Value > 1 {
		t.Fatalf("confidence out of range: %.4f", ev.Confidence.Value)
	}
	if ev.Error != nil {
		t.Fatalf("unexpected error info: %+v", ev.Error)
	}

	decisions, err := logging.ListDecisions(st.DB(), 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].SuggestionID != ev.SuggestionID {
		t.Fatalf("expected one audit row for the evaluation, got %+v", decisions)
	}
	if decisions[0].Tenant != "tenant-1" {
		t.Fatalf("audit row tenant = %q", decisions[0].Tenant)
	}
}

func TestEvaluateIntentKillSwitch(t *testing.T) {
	t.Setenv("GOVERNOR_ENABLED", "false")
	gen := &stubGenerator{results: []backend.Candidate{{Diff: handlerDiff}}}
	s, _ := newTestSession(t, gen)

	ev, err := s.EvaluateIntent(context.Background(), "anything")
	if err != nil {
		t.Fatalf("EvaluateIntent: %v", err)
	}
	if ev.Decision.Approved {
		t.Fatal("disabled governor must not approve")
	}
	if gen.calls != 0 {
		t.Fatal("disabled governor must not call the backend")
	}
	if len(ev.Decision.Reasoning) == 0 || !strings.Contains(ev.Decision.Reasoning[0], "kill switch") {
		t.Fatalf("reasoning must name the kill switch, got %v", ev.Decision.Reasoning)
	}
}

func TestGenerationErrorRetriedOnceWithFallback(t *testing.T) {
	// "model" makes it a generation-category error, which retries
	// automatically with a fallback.
	gen := &stubGenerator{
		errs:    []error{errors.New("model overloaded")},
		results: []backend.Candidate{{}, {Diff: handlerDiff, ValidationStrength: 0.9}},
	}
	s, _ := newTestSession(t, gen)

	ev, err := s.EvaluateIntent(context.Background(), "return a proper error for the wrong http method")
	if err != nil {
		t.Fatalf("EvaluateIntent after retry: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected one retry, backend called %d times", gen.calls)
	}
	if len(gen.paths) != 2 || gen.paths[0] != "primary" || gen.paths[1] != "fallback" {
		t.Fatalf("retry must take the fallback path, got %v", gen.paths)
	}
	if ev.Error != nil {
		t.Fatalf("recovered attempt should carry no error info, got %+v", ev.Error)
	}
}

func TestGenerationPersistentFailureClassified(t *testing.T) {
	gen := &stubGenerator{errs: []error{
		errors.New("model overloaded"),
		errors.New("model overloaded"),
	}}
	s, st := newTestSession(t, gen)

	ev, err := s.EvaluateIntent(context.Background(), "anything at all")
	if err == nil {
		t.Fatal("persistent backend failure must return an error")
	}
	if ev.Error == nil {
		t.Fatal("evaluation must carry classified error info")
	}
	if ev.Error.Category != "generation" {
		t.Fatalf("category = %s, want generation", ev.Error.Category)
	}

	decisions, err := logging.ListDecisions(st.DB(), 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Decision != "error" {
		t.Fatalf("expected one error audit row, got %+v", decisions)
	}
	if decisions[0].ErrorCode == "" {
		t.Fatal("error audit row must carry the error code")
	}
}

func TestRepeatedSecretDiffsOpenTheBreaker(t *testing.T) {
	gen := &stubGenerator{results: []backend.Candidate{{Diff: leakyDiff, ValidationStrength: 0.9}}}
	s, _ := newTestSession(t, gen)

	for i := 0; i < config.BreakerViolationLimit; i++ {
		if _, err := s.EvaluateIntent(context.Background(), "add the api key constant"); err != nil {
			t.Fatalf("EvaluateIntent %d: %v", i, err)
		}
	}
	if s.Gate().BreakerState() != gate.BreakerOpen {
		t.Fatalf("%d secret hits should open the breaker", config.BreakerViolationLimit)
	}

	ev, err := s.EvaluateIntent(context.Background(), "add the api key constant")
	if err != nil {
		t.Fatalf("EvaluateIntent: %v", err)
	}
	if ev.Decision.Approved {
		t.Fatal("emergency mode must deny")
	}
	if len(ev.Decision.Reasoning) != 1 || !strings.Contains(ev.Decision.Reasoning[0], "emergency mode active") {
		t.Fatalf("unexpected reasoning: %v", ev.Decision.Reasoning)
	}
}

func TestSubmitFeedbackClosesTheLoop(t *testing.T) {
	gen := &stubGenerator{results: []backend.Candidate{{Diff: handlerDiff}}}
	s, _ := newTestSession(t, gen)

	before := s.Gate().Controls().Thresholds.Low
	insight, result, err := s.SubmitFeedback(learning.Feedback{
		SuggestionID:    "sug-1",
		Accepted:        false,
		RejectionReason: learning.ReasonWrong,
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if len(insight.Recommendations) != 1 {
		t.Fatalf("expected one recommendation, got %+v", insight.Recommendations)
	}
	if len(result.Applied) != 1 {
		t.Fatalf("expected one applied change, got %+v", result)
	}

	after := s.Gate().Controls().Thresholds.Low
	if after >= before {
		t.Fatalf("wrong rejection should reduce the threshold: %.2f -> %.2f", before, after)
	}
}

func TestContextualRelevance(t *testing.T) {
	if got := contextualRelevance("", handlerDiff); got != 0.5 {
		t.Fatalf("empty intent should read neutral 0.5, got %.2f", got)
	}
	got := contextualRelevance("http error method", handlerDiff)
	if got != 1.0 {
		t.Fatalf("all words present should read 1.0, got %.2f", got)
	}
	if got := contextualRelevance("quantum blockchain", handlerDiff); got != 0 {
		t.Fatalf("no overlap should read 0, got %.2f", got)
	}
}
