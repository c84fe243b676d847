package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region policy-types

// Policy is the operator-editable YAML policy file. It seeds the initial
// SafetyControls and pipeline limits; the adaptation engine mutates the
// live copy, never this file.
type Policy struct {
	Thresholds ThresholdPolicy `yaml:"thresholds"`
	Risk       RiskPolicy      `yaml:"risk"`
	Limits     LimitPolicy     `yaml:"limits"`
	Emergency  EmergencyPolicy `yaml:"emergency"`
	Pipeline   PipelinePolicy  `yaml:"pipeline"`
}

// ThresholdPolicy holds the per-tier confidence thresholds.
type ThresholdPolicy struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// RiskPolicy enables mandatory review per risk category.
type RiskPolicy struct {
	CriticalPath    bool `yaml:"critical_path"`
	HighImpact      bool `yaml:"high_impact"`
	SecurityRelated bool `yaml:"security_related"`
	BreakingChange  bool `yaml:"breaking_change"`
}

// LimitPolicy holds operational suggestion limits.
type LimitPolicy struct {
	MaxSuggestionsPerHour int  `yaml:"max_suggestions_per_hour"`
	MaxSuggestionsPerDay  int  `yaml:"max_suggestions_per_day"`
	RollbackRequired      bool `yaml:"rollback_required"`
}

// EmergencyPolicy configures the failsafe.
type EmergencyPolicy struct {
	Enabled           bool     `yaml:"enabled"`
	TriggerConditions []string `yaml:"trigger_conditions"`
	FallbackBehavior  string   `yaml:"fallback_behavior"`
}

// PipelinePolicy bounds candidate changes.
type PipelinePolicy struct {
	MaxFiles            int      `yaml:"max_files"`
	MaxChangedLines     int      `yaml:"max_changed_lines"`
	ProtectedPaths      []string `yaml:"protected_paths"`
	StageTimeoutSeconds int      `yaml:"stage_timeout_seconds"`
}

// #endregion policy-types

// #region defaults

// DefaultPolicy returns the conservative defaults used when no policy file
// is present.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: ThresholdPolicy{
			Low:    0.85,
			Medium: 0.75,
			High:   0.65,
		},
		Risk: RiskPolicy{
			CriticalPath:    true,
			HighImpact:      true,
			SecurityRelated: true,
			BreakingChange:  true,
		},
		Limits: LimitPolicy{
			MaxSuggestionsPerHour: 10,
			MaxSuggestionsPerDay:  50,
			RollbackRequired:      true,
		},
		Emergency: EmergencyPolicy{
			Enabled:           false,
			TriggerConditions: []string{"repeated_safety_violations", "manual_trigger"},
			FallbackBehavior:  "deny_all",
		},
		Pipeline: PipelinePolicy{
			MaxFiles:        8,
			MaxChangedLines: 400,
			ProtectedPaths:  []string{".github/workflows", "go.mod", "go.sum"},
		},
	}
}

// #endregion defaults

// #region load

// LoadPolicy reads a YAML policy file, filling unset sections from defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

func (p Policy) validate() error {
	for name, v := range map[string]float64{
		"thresholds.low":    p.Thresholds.Low,
		"thresholds.medium": p.Thresholds.Medium,
		"thresholds.high":   p.Thresholds.High,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s out of [0,1]: %v", name, v)
		}
	}
	if p.Limits.MaxSuggestionsPerHour <= 0 || p.Limits.MaxSuggestionsPerDay <= 0 {
		return fmt.Errorf("suggestion limits must be positive")
	}
	return nil
}

// #endregion load

// #region helpers

// EnvOr returns the environment value for key, or fallback when unset.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
