package procedural

// DecisionPattern associates a condition set with a decision and its
// observed outcome. Matching is fractional over condition keys.
type DecisionPattern struct {
	Conditions map[string]any `json:"conditions"`
	Decision   string         `json:"decision"`
	Outcome    string         `json:"outcome,omitempty"`
	Confidence float64        `json:"confidence"`
	UsageCount int            `json:"usageCount"`
}

// Recommendation is a decision suggested from past associations.
type Recommendation struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	MatchScore float64 `json:"matchScore"`
}

// RecordDecision stores a condition->decision association.
func (s *Store) RecordDecision(conditions map[string]any, decision, outcome string, confidence float64) {
	conds := make(map[string]any, len(conditions))
	for k, v := range conditions {
		conds[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, &DecisionPattern{
		Conditions: conds,
		Decision:   decision,
		Outcome:    outcome,
		Confidence: confidence,
	})
}

// RecommendDecision returns the best-matching past decision for the
// context, requiring a fractional condition match above 0.7. Returns nil
// when nothing clears the bar.
func (s *Store) RecommendDecision(ctx map[string]any) *Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *DecisionPattern
	bestScore := 0.0
	for _, d := range s.decisions {
		score := conditionMatch(d.Conditions, ctx)
		if score <= 0.7 {
			continue
		}
		// Break score ties on confidence so a stronger association wins.
		if best == nil || score > bestScore || (score == bestScore && d.Confidence > best.Confidence) {
			best = d
			bestScore = score
		}
	}
	if best == nil {
		return nil
	}
	best.UsageCount++
	return &Recommendation{
		Decision:   best.Decision,
		Confidence: best.Confidence,
		MatchScore: bestScore,
	}
}

// Decisions returns copies of all stored decision patterns.
func (s *Store) Decisions() []DecisionPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DecisionPattern, 0, len(s.decisions))
	for _, d := range s.decisions {
		cp := *d
		cp.Conditions = make(map[string]any, len(d.Conditions))
		for k, v := range d.Conditions {
			cp.Conditions[k] = v
		}
		out = append(out, cp)
	}
	return out
}
