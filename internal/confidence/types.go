package confidence

// #region generator-meta

// GeneratorMeta describes the backend that produced a candidate, recorded
// in the score's reasoning when present.
type GeneratorMeta struct {
	Version        string
	Specialization string
}

// #endregion generator-meta

// #region score

// Score is a bounded [0,1] confidence estimate with attributed factors.
// Adjustment produces a new Score, never a mutation of the original.
type Score struct {
	Value     float64
	Factors   map[string]float64
	Reasoning []string
}

// clone deep-copies a score so adjustments never alias the original.
func (s Score) clone() Score {
	factors := make(map[string]float64, len(s.Factors))
	for k, v := range s.Factors {
		factors[k] = v
	}
	reasoning := make([]string, len(s.Reasoning))
	copy(reasoning, s.Reasoning)
	return Score{Value: s.Value, Factors: factors, Reasoning: reasoning}
}

// #endregion score
