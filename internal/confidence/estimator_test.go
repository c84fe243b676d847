package confidence

import (
	"testing"

	"github.com/patchpilot/governor/internal/learning"
)

func TestEstimateBoundedForAllInputs(t *testing.T) {
	grid := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for _, h := range grid {
		for _, c := range grid {
			for _, v := range grid {
				s := Estimate(h, c, v, nil)
				if s.Value < 0 || s.Value > 1 {
					t.Fatalf("Estimate(%.2f, %.2f, %.2f) = %.4f out of [0,1]", h, c, v, s.Value)
				}
			}
		}
	}
}

func TestEstimateWeightedSum(t *testing.T) {
	s := Estimate(1.0, 0.5, 0.0, nil)
	// 0.4*1.0 + 0.3*0.5 + 0.3*0.0 = 0.55
	if s.Value < 0.549 || s.Value > 0.551 {
		t.Fatalf("expected 0.55, got %.4f", s.Value)
	}
	if len(s.Factors) != 3 {
		t.Fatalf("expected 3 factors, got %v", s.Factors)
	}
	if len(s.Reasoning) != 3 {
		t.Fatalf("expected 3 reasoning lines, got %v", s.Reasoning)
	}
}

func TestEstimateRecordsGeneratorMeta(t *testing.T) {
	s := Estimate(0.5, 0.5, 0.5, &GeneratorMeta{Version: "gpt-4o-mini", Specialization: "go"})
	if len(s.Reasoning) != 4 {
		t.Fatalf("expected a generator reasoning line, got %v", s.Reasoning)
	}
}

func TestAdjustForFeedbackEmptyHistoryIdentity(t *testing.T) {
	base := Estimate(0.7, 0.7, 0.7, nil)
	adjusted := AdjustForFeedback(base, nil)

	if adjusted.Value != base.Value {
		t.Fatalf("empty history must be identity: %.4f != %.4f", adjusted.Value, base.Value)
	}
	if len(adjusted.Reasoning) != len(base.Reasoning) {
		t.Fatal("empty history must not extend reasoning")
	}
}

// The reward applies strictly above 0.8: exactly 0.80 gets none, 0.81 does.
func TestAdjustAcceptanceRewardBoundary(t *testing.T) {
	base := Estimate(0.5, 0.5, 0.5, nil)

	// 80 of 100 accepted → rate exactly 0.80, no reward.
	at := make([]learning.Feedback, 0, 100)
	for i := 0; i < 100; i++ {
		at = append(at, learning.Feedback{Accepted: i < 80})
	}
	adjusted := AdjustForFeedback(base, at)
	if adjusted.Value != base.Value {
		t.Fatalf("rate 0.80 must not reward: %.4f != %.4f", adjusted.Value, base.Value)
	}

	// 81 of 100 accepted → rate 0.81, reward applies.
	above := make([]learning.Feedback, 0, 100)
	for i := 0; i < 100; i++ {
		above = append(above, learning.Feedback{Accepted: i < 81})
	}
	adjusted = AdjustForFeedback(base, above)
	want := base.Value * 1.1
	if adjusted.Value < want-1e-9 || adjusted.Value > want+1e-9 {
		t.Fatalf("rate 0.81 should reward ×1.1: got %.4f, want %.4f", adjusted.Value, want)
	}
}

func TestAdjustRewardCappedAtOne(t *testing.T) {
	base := Estimate(1.0, 1.0, 1.0, nil)
	history := []learning.Feedback{{Accepted: true}, {Accepted: true}, {Accepted: true}}
	adjusted := AdjustForFeedback(base, history)
	if adjusted.Value > 1.0 {
		t.Fatalf("value must cap at 1.0, got %.4f", adjusted.Value)
	}
}

func TestAdjustPenaltyBelowHalf(t *testing.T) {
	base := Estimate(0.8, 0.8, 0.8, nil)
	history := []learning.Feedback{{Accepted: true}, {Accepted: false}, {Accepted: false}}
	adjusted := AdjustForFeedback(base, history)
	want := base.Value * 0.9
	if adjusted.Value < want-1e-9 || adjusted.Value > want+1e-9 {
		t.Fatalf("rate 0.33 should penalize ×0.9: got %.4f, want %.4f", adjusted.Value, want)
	}
}

func TestAdjustRatingShiftsAdditively(t *testing.T) {
	base := Estimate(0.5, 0.5, 0.5, nil) // 0.5
	// Rate 0.5: neither reward nor penalty. Avg rating 5 → +0.2.
	history := []learning.Feedback{
		{Accepted: true, Rating: 5},
		{Accepted: false, Rating: 5},
	}
	adjusted := AdjustForFeedback(base, history)
	want := base.Value + 0.2
	if adjusted.Value < want-1e-9 || adjusted.Value > want+1e-9 {
		t.Fatalf("avg rating 5 should add 0.2: got %.4f, want %.4f", adjusted.Value, want)
	}
}

func TestAdjustRatingFloor(t *testing.T) {
	base := Estimate(0.1, 0.1, 0.1, nil) // 0.1
	// Rate 0 → ×0.9 = 0.09; avg rating 1 → −0.2 → floored at 0.1.
	history := []learning.Feedback{
		{Accepted: false, Rating: 1},
		{Accepted: false, Rating: 1},
	}
	adjusted := AdjustForFeedback(base, history)
	if adjusted.Value != 0.1 {
		t.Fatalf("rating adjustment must floor at 0.1, got %.4f", adjusted.Value)
	}
}

func TestAdjustDoesNotMutateBase(t *testing.T) {
	base := Estimate(0.9, 0.9, 0.9, nil)
	valueBefore := base.Value
	reasoningBefore := len(base.Reasoning)

	history := []learning.Feedback{{Accepted: true}, {Accepted: true}}
	adjusted := AdjustForFeedback(base, history)

	if base.Value != valueBefore || len(base.Reasoning) != reasoningBefore {
		t.Fatal("AdjustForFeedback must not mutate the base score")
	}
	if len(adjusted.Reasoning) <= reasoningBefore {
		t.Fatal("adjusted score should extend reasoning")
	}
	if _, ok := base.Factors["acceptance_rate"]; ok {
		t.Fatal("base factors map was mutated")
	}
}
