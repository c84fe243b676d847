package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/store"
)

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func floatPtr(v float64) *float64 { return &v }

func TestReplayThresholdTrace(t *testing.T) {
	st := tempStore(t)

	fx := Fixture{
		Description:     "two wrong rejections walk the threshold down",
		StartThresholds: FixtureThresholds{Low: 0.85, Medium: 0.75, High: 0.65},
		Events: []FixtureEvent{
			{SuggestionID: "sug-1", Accepted: false, RejectionReason: "wrong"},
			{SuggestionID: "sug-2", Accepted: false, RejectionReason: "wrong"},
			{SuggestionID: "sug-3", Accepted: true},
		},
		ExpectedResults: []FixtureExpectedResult{
			{
				SuggestionID:      "sug-1",
				Actions:           []string{learning.ActionReduceThreshold},
				LowThresholdAfter: floatPtr(0.80),
			},
			{
				SuggestionID:      "sug-2",
				Actions:           []string{learning.ActionReduceThreshold},
				LowThresholdAfter: floatPtr(0.75),
			},
			{
				SuggestionID: "sug-3",
				Actions:      []string{},
			},
		},
	}

	results, summary, err := Replay(fx, st, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if summary.TotalEvents != 3 {
		t.Fatalf("total events = %d, want 3", summary.TotalEvents)
	}
	if summary.Mismatches != 0 {
		t.Fatalf("expected zero mismatches, got %d: %+v", summary.Mismatches, results)
	}
	if summary.AppliedChanges != 2 {
		t.Fatalf("applied changes = %d, want 2", summary.AppliedChanges)
	}
	if summary.FinalLowThreshold != 0.75 {
		t.Fatalf("final low threshold = %.2f, want 0.75", summary.FinalLowThreshold)
	}
}

func TestReplayReportsMismatches(t *testing.T) {
	st := tempStore(t)

	fx := Fixture{
		Events: []FixtureEvent{
			{SuggestionID: "sug-1", Accepted: false, RejectionReason: "wrong"},
		},
		ExpectedResults: []FixtureExpectedResult{
			// Deliberately wrong expectation.
			{SuggestionID: "sug-1", LowThresholdAfter: floatPtr(0.99)},
		},
	}

	results, summary, err := Replay(fx, st, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if summary.Mismatches == 0 {
		t.Fatalf("expected a mismatch, got %+v", results)
	}
}

func TestLoadFixtureRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	content := `{
  "description": "smoke",
  "start_thresholds": {"low": 0.85, "medium": 0.75, "high": 0.65},
  "events": [
    {"suggestion_id": "sug-1", "accepted": false, "rejection_reason": "wrong"}
  ],
  "expected_results": [
    {"suggestion_id": "sug-1", "actions": ["reduce_confidence_threshold"]}
  ]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fx, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if fx.Description != "smoke" || len(fx.Events) != 1 {
		t.Fatalf("unexpected fixture: %+v", fx)
	}
	if fx.Events[0].RejectionReason != "wrong" {
		t.Fatalf("rejection reason not parsed: %+v", fx.Events[0])
	}
}

func TestLoadFixtureRejectsEmptyEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"events": []}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for fixture without events")
	}
}

func TestLoadFixtureRejectsMissingSuggestionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"events": [{"accepted": true}]}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for event without suggestion_id")
	}
}
