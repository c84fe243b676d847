package errclass

import (
	"errors"
	"testing"
)

func TestClassifySecurityBreachIsCritical(t *testing.T) {
	c := New(nil)
	info := c.Classify(errors.New("SQL injection security breach detected"), "")

	if info.Category == CategoryValidation {
		t.Fatalf("expected non-validation category, got %s", info.Category)
	}
	if info.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %s", info.Severity)
	}
	if info.Recovery.Automatic {
		t.Fatal("critical errors must not be retried automatically")
	}
	if info.Recovery.Strategy != StrategyManualIntervention {
		t.Fatalf("expected manual_intervention, got %s", info.Recovery.Strategy)
	}
	if !info.Recovery.RollbackRequired {
		t.Fatal("critical errors must require rollback")
	}
}

func TestClassifyCriticalOverridesCategoryRecovery(t *testing.T) {
	c := New(nil)
	// Generation category would normally auto-retry, but critical wins.
	info := c.Classify(errors.New("model produced a security breach"), "")

	if info.Category != CategoryGeneration {
		t.Fatalf("expected generation category, got %s", info.Category)
	}
	if info.Recovery.Automatic {
		t.Fatal("critical severity must force manual intervention")
	}
}

func TestClassifyCategoryKeywords(t *testing.T) {
	c := New(nil)
	cases := []struct {
		message string
		want    Category
	}{
		{"invalid diff header", CategoryValidation},
		{"ai backend refused the request", CategoryGeneration},
		{"could not apply hunk 3", CategoryApplication},
		{"missing setting governor.db", CategoryConfiguration},
		{"disk full", CategoryInfrastructure},
	}
	for _, tc := range cases {
		info := c.Classify(errors.New(tc.message), "")
		if info.Category != tc.want {
			t.Errorf("Classify(%q) category = %s, want %s", tc.message, info.Category, tc.want)
		}
	}
}

func TestClassifySeverityKeywords(t *testing.T) {
	c := New(nil)
	cases := []struct {
		message string
		want    Severity
	}{
		{"request timeout talking to backend", SeverityLow},
		{"network unreachable", SeverityLow},
		{"validation failed for candidate", SeverityHigh},
		{"syntax error in generated patch", SeverityHigh},
		{"something odd happened", SeverityMedium},
	}
	for _, tc := range cases {
		info := c.Classify(errors.New(tc.message), "")
		if info.Severity != tc.want {
			t.Errorf("Classify(%q) severity = %s, want %s", tc.message, info.Severity, tc.want)
		}
	}
}

func TestClassifyRecoveryTable(t *testing.T) {
	c := New(nil)

	gen := c.Classify(errors.New("generation backend hiccup"), "")
	if !gen.Recovery.Automatic || gen.Recovery.Strategy != StrategyRetryWithFallback {
		t.Fatalf("generation recovery = %+v", gen.Recovery)
	}

	app := c.Classify(errors.New("patch application conflict"), "")
	if !app.Recovery.Automatic || app.Recovery.Strategy != StrategyRollbackAndRetry || !app.Recovery.RollbackRequired {
		t.Fatalf("application recovery = %+v", app.Recovery)
	}

	infra := c.Classify(errors.New("disk full"), "")
	if infra.Recovery.Automatic || infra.Recovery.Strategy != StrategyManualAnalysis {
		t.Fatalf("infrastructure recovery = %+v", infra.Recovery)
	}
}

func TestClassifyNilErrorStillWellFormed(t *testing.T) {
	c := New(nil)
	info := c.Classify(nil, "")

	if info.Message == "" || info.Code == "" {
		t.Fatalf("nil error must still produce a well-formed record: %+v", info)
	}
	if info.Category != CategoryInfrastructure {
		t.Fatalf("expected infrastructure fallback, got %s", info.Category)
	}
}

func TestClassifyGeneratesDistinctCodes(t *testing.T) {
	c := New(nil)
	a := c.Classify(errors.New("x"), "")
	b := c.Classify(errors.New("x"), "")
	if a.Code == b.Code {
		t.Fatalf("expected distinct codes, got %s twice", a.Code)
	}
}
