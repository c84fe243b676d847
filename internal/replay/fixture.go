package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/patchpilot/governor/internal/learning"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a feedback replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	StartThresholds FixtureThresholds       `json:"start_thresholds"`
	Events          []FixtureEvent          `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureThresholds seeds the gate's confidence tiers for the run.
type FixtureThresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// FixtureEvent mirrors learning.Feedback with JSON tags.
type FixtureEvent struct {
	SuggestionID    string  `json:"suggestion_id"`
	DeveloperID     string  `json:"developer_id"`
	Accepted        bool    `json:"accepted"`
	Rating          int     `json:"rating"`
	RejectionReason string  `json:"rejection_reason"`
	Modified        bool    `json:"modified"`
	ReviewSeconds   float64 `json:"review_seconds"`
	Note            string  `json:"note"`
}

// FixtureExpectedResult captures the expected outcome per event.
type FixtureExpectedResult struct {
	SuggestionID      string   `json:"suggestion_id"`
	Actions           []string `json:"actions"` // expected applied actions, in order
	LowThresholdAfter *float64 `json:"low_threshold_after,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and validates a replay fixture from disk.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(fx.Events) == 0 {
		return Fixture{}, fmt.Errorf("fixture %s has no events", path)
	}
	for i, ev := range fx.Events {
		if ev.SuggestionID == "" {
			return Fixture{}, fmt.Errorf("fixture %s: event %d missing suggestion_id", path, i)
		}
	}
	return fx, nil
}

// #endregion fixture-loader

// #region conversion

func (e FixtureEvent) feedback() learning.Feedback {
	return learning.Feedback{
		SuggestionID:    e.SuggestionID,
		DeveloperID:     e.DeveloperID,
		Accepted:        e.Accepted,
		Rating:          e.Rating,
		RejectionReason: learning.RejectionReason(e.RejectionReason),
		Modified:        e.Modified,
		ReviewSeconds:   e.ReviewSeconds,
		Note:            e.Note,
	}
}

// #endregion conversion
