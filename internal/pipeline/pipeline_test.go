package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func passStage(name string, priority int, score float64) Stage {
	return Stage{
		Name:     name,
		Priority: priority,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			return Result{Passed: true, Score: score, Message: name + ": ok"}, nil
		},
	}
}

func TestRegisterSortsByPriority(t *testing.T) {
	p := New(0, nil)
	var order []string
	mk := func(name string, prio int) Stage {
		return Stage{
			Name:     name,
			Priority: prio,
			Run: func(ctx context.Context, c *Candidate) (Result, error) {
				order = append(order, name)
				return Result{Passed: true, Score: 1.0}, nil
			},
		}
	}
	p.Register(mk("third", 30))
	p.Register(mk("first", 10))
	p.Register(mk("second", 20))

	p.Validate(context.Background(), &Candidate{}, false)

	want := []string{"first", "second", "third"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("execution order %v, want %v", order, want)
		}
	}
}

func TestValidateStageErrorIsolated(t *testing.T) {
	p := New(0, nil)
	stage3Ran := 0

	p.Register(passStage("stage1", 10, 1.0))
	p.Register(Stage{
		Name:     "stage2",
		Priority: 20,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			return Result{}, errors.New("boom")
		},
	})
	p.Register(Stage{
		Name:     "stage3",
		Priority: 30,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			stage3Ran++
			return Result{Passed: true, Score: 1.0, Message: "stage3: ok"}, nil
		},
	})

	res := p.Validate(context.Background(), &Candidate{}, false)

	if res.Passed {
		t.Fatal("expected aggregate failure")
	}
	if !strings.Contains(res.Message, "stage2") {
		t.Fatalf("aggregate message should name stage2: %q", res.Message)
	}
	if stage3Ran != 1 {
		t.Fatalf("stage3 should still run after stage2 failure, ran %d times", stage3Ran)
	}
}

func TestValidateStagePanicIsolated(t *testing.T) {
	p := New(0, nil)
	laterRan := false

	p.Register(Stage{
		Name:     "panicky",
		Priority: 10,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			panic("unexpected")
		},
	})
	p.Register(Stage{
		Name:     "later",
		Priority: 20,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			laterRan = true
			return Result{Passed: true, Score: 1.0}, nil
		},
	})

	res := p.Validate(context.Background(), &Candidate{}, false)

	if res.Passed {
		t.Fatal("expected aggregate failure after panic")
	}
	if !strings.Contains(res.Message, "panicky") {
		t.Fatalf("aggregate message should name the panicking stage: %q", res.Message)
	}
	if !laterRan {
		t.Fatal("later stage should run after a panic")
	}
}

func TestValidateStageTimeout(t *testing.T) {
	p := New(20*time.Millisecond, nil)

	p.Register(Stage{
		Name:     "hung",
		Priority: 10,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			select {
			case <-time.After(5 * time.Second):
				return Result{Passed: true, Score: 1.0}, nil
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		},
	})
	p.Register(passStage("after", 20, 1.0))

	start := time.Now()
	res := p.Validate(context.Background(), &Candidate{}, false)

	if time.Since(start) > time.Second {
		t.Fatal("hung stage was not bounded by the stage timeout")
	}
	if res.Passed {
		t.Fatal("expected aggregate failure after timeout")
	}
	if !strings.Contains(res.Message, "hung") {
		t.Fatalf("aggregate message should name the hung stage: %q", res.Message)
	}
}

// The aggregate score is averaged over executed stages only: a skipped
// stage neither helps nor dilutes. This is a deliberate decision; see
// DESIGN.md.
func TestValidateSkippedStageNotCounted(t *testing.T) {
	p := New(0, nil)
	p.Register(passStage("runs", 10, 1.0))
	p.Register(Stage{
		Name:     "skipped",
		Priority: 20,
		Skip:     func(c *Candidate) bool { return true },
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			return Result{Passed: true, Score: 0}, nil
		},
	})

	res := p.Validate(context.Background(), &Candidate{}, false)

	if res.Score != 1.0 {
		t.Fatalf("score should average over executed stages only: got %.2f, want 1.0", res.Score)
	}
	if !res.Passed {
		t.Fatal("expected pass")
	}
}

func TestValidateForceRunsSkippedStages(t *testing.T) {
	p := New(0, nil)
	ran := false
	p.Register(Stage{
		Name:     "normally_skipped",
		Priority: 10,
		Skip:     func(c *Candidate) bool { return true },
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			ran = true
			return Result{Passed: true, Score: 0.5}, nil
		},
	})

	res := p.Validate(context.Background(), &Candidate{}, true)

	if !ran {
		t.Fatal("force=true must run skipped stages")
	}
	if res.Score != 0.5 {
		t.Fatalf("expected score 0.5, got %.2f", res.Score)
	}
}

func TestValidateEmptyPipeline(t *testing.T) {
	p := New(0, nil)
	res := p.Validate(context.Background(), &Candidate{}, false)

	if !res.Passed {
		t.Fatal("empty pipeline should pass vacuously")
	}
	if res.Score != 0 {
		t.Fatalf("empty pipeline score should be 0, got %.2f", res.Score)
	}
}

func TestValidateAggregatesDetails(t *testing.T) {
	p := New(0, nil)
	p.Register(Stage{
		Name:     "a",
		Priority: 10,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			return Result{Passed: true, Score: 1.0, Message: "a: ok", Details: []string{"d1"}}, nil
		},
	})
	p.Register(Stage{
		Name:     "b",
		Priority: 20,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			return Result{Passed: true, Score: 0.5, Message: "b: ok", Details: []string{"d2", "d3"}}, nil
		},
	})

	res := p.Validate(context.Background(), &Candidate{}, false)

	if res.Score != 0.75 {
		t.Fatalf("expected mean 0.75, got %.2f", res.Score)
	}
	if res.Message != "a: ok; b: ok" {
		t.Fatalf("unexpected aggregate message: %q", res.Message)
	}
	if len(res.Details) != 3 {
		t.Fatalf("expected 3 details, got %v", res.Details)
	}
}
