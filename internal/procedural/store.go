// Package procedural holds the top memory tier: learned action patterns and
// their automation state, plus condition->decision associations.
package procedural

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionStep is one step of a pattern's action sequence.
type ActionStep struct {
	ActionType string         `json:"actionType"`
	Params     map[string]any `json:"params,omitempty"`
}

// Pattern is a learned behavior: an action sequence gated by trigger
// conditions and an automation confidence score.
type Pattern struct {
	PatternID         string             `json:"patternId"`
	ActionSequence    []ActionStep       `json:"actionSequence"`
	TriggerConditions map[string]any     `json:"triggerConditions,omitempty"`
	SuccessCount      int                `json:"successCount"`
	FailureCount      int                `json:"failureCount"`
	TotalExecutions   int                `json:"totalExecutions"`
	AutomationLevel   float64            `json:"automationLevel"` // [0, 1]
	AvgExecutionTime  float64            `json:"avgExecutionTime"`
	LastExecuted      float64            `json:"lastExecuted"` // unix seconds, 0 = never
	CreatedAt         float64            `json:"createdAt"`
}

// SuccessRate returns successes over total executions, 0 when unexecuted.
func (p *Pattern) SuccessRate() float64 {
	if p.TotalExecutions == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(p.TotalExecutions)
}

// Effectiveness blends success rate, automation level, and execution volume.
func (p *Pattern) Effectiveness() float64 {
	volume := math.Min(1, float64(p.TotalExecutions)/10)
	return 0.5*p.SuccessRate() + 0.3*p.AutomationLevel + 0.2*volume
}

// Match is a ranked pattern candidate.
type Match struct {
	Pattern   Pattern `json:"pattern"`
	Relevance float64 `json:"relevance"`
}

// ExecutionResult reports what ExecuteBestPattern did.
type ExecutionResult struct {
	Executed  bool         `json:"executed"`
	PatternID string       `json:"patternId,omitempty"`
	Actions   []ActionStep `json:"actions,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Store holds patterns and decision associations. The tick goroutine is the
// only writer; queries read concurrently.
type Store struct {
	mu        sync.RWMutex
	patterns  map[string]*Pattern
	decisions []*DecisionPattern

	minAutomation float64
	nowFn         func() float64
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source (unix seconds). Tests pin it.
func WithClock(now func() float64) Option {
	return func(s *Store) { s.nowFn = now }
}

// NewStore creates an empty pattern store. minAutomation is the automation
// gate threshold (the conventional value is 0.8).
func NewStore(minAutomation float64, opts ...Option) *Store {
	s := &Store{
		patterns:      make(map[string]*Pattern),
		minAutomation: minAutomation,
		nowFn: func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// conditionMatch returns the fraction of condition keys whose values equal
// the context's. Empty conditions match fully.
func conditionMatch(conditions, ctx map[string]any) float64 {
	if len(conditions) == 0 {
		return 1
	}
	matched := 0
	for k, want := range conditions {
		if got, ok := ctx[k]; ok && fmt.Sprint(got) == fmt.Sprint(want) {
			matched++
		}
	}
	return float64(matched) / float64(len(conditions))
}

// FindApplicable ranks patterns against the context by
// 0.4*condition_match + 0.4*effectiveness + 0.2*recency, recency decaying
// by 0.9 per hour since last execution.
func (s *Store) FindApplicable(ctx map[string]any) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowFn()
	var out []Match
	for _, p := range s.patterns {
		match := conditionMatch(p.TriggerConditions, ctx)
		recency := 1.0
		if p.LastExecuted > 0 {
			hours := math.Max(0, (now-p.LastExecuted)/3600)
			recency = math.Pow(0.9, hours)
		}
		relevance := 0.4*match + 0.4*p.Effectiveness() + 0.2*recency
		out = append(out, Match{Pattern: copyPattern(p), Relevance: relevance})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Pattern.PatternID < out[j].Pattern.PatternID
	})
	return out
}

// CanAutomate reports whether the pattern may run without the decision
// layer: automation level at or above the gate AND every trigger condition
// matching the context exactly. Partial matches never automate.
func (s *Store) CanAutomate(patternID string, ctx map[string]any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[patternID]
	if !ok {
		return false
	}
	return s.canAutomateLocked(p, ctx)
}

func (s *Store) canAutomateLocked(p *Pattern, ctx map[string]any) bool {
	if p.AutomationLevel < s.minAutomation {
		return false
	}
	return conditionMatch(p.TriggerConditions, ctx) == 1
}

// ExecuteBestPattern picks the top-ranked applicable pattern and executes it
// if automation is permitted; otherwise it defers to the manual decision
// layer. Execution here means recording the run and returning the action
// sequence for the caller to apply.
func (s *Store) ExecuteBestPattern(ctx map[string]any) ExecutionResult {
	matches := s.FindApplicable(ctx)
	if len(matches) == 0 {
		return ExecutionResult{Reason: "no patterns available"}
	}
	best := matches[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[best.Pattern.PatternID]
	if !ok {
		return ExecutionResult{Reason: "pattern removed"}
	}
	if !s.canAutomateLocked(p, ctx) {
		return ExecutionResult{PatternID: p.PatternID, Reason: "no automatic action: automation gate not met"}
	}

	start := s.nowFn()
	p.TotalExecutions++
	p.LastExecuted = start
	return ExecutionResult{
		Executed:  true,
		PatternID: p.PatternID,
		Actions:   append([]ActionStep(nil), p.ActionSequence...),
	}
}

// RecordOutcome feeds back the result of a pattern execution, moving the
// automation level per the learning rule: raise by 0.05 only when the
// success rate exceeds 0.9 over at least 5 executions, lower by 0.05 when
// it drops under 0.5.
func (s *Store) RecordOutcome(patternID string, success bool, execTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[patternID]
	if !ok {
		return
	}
	if success {
		p.SuccessCount++
	} else {
		p.FailureCount++
	}
	if p.TotalExecutions < p.SuccessCount+p.FailureCount {
		p.TotalExecutions = p.SuccessCount + p.FailureCount
	}
	if execTime > 0 {
		if p.AvgExecutionTime == 0 {
			p.AvgExecutionTime = execTime
		} else {
			p.AvgExecutionTime += (execTime - p.AvgExecutionTime) / float64(p.TotalExecutions)
		}
	}

	rate := p.SuccessRate()
	switch {
	case rate > 0.9 && p.TotalExecutions >= 5:
		p.AutomationLevel = math.Min(1, p.AutomationLevel+0.05)
	case rate < 0.5:
		p.AutomationLevel = math.Max(0, p.AutomationLevel-0.05)
	}
}

// LearnFromExperience always creates a new pattern from an observed
// context/action/outcome triple, seeded at automation 0.3 on success and
// 0.1 on failure. Patterns are never merged here; deduplication happens in
// OptimizePatterns.
func (s *Store) LearnFromExperience(ctx map[string]any, actions []ActionStep, success bool) string {
	level := 0.1
	successes, failures := 0, 1
	if success {
		level = 0.3
		successes, failures = 1, 0
	}

	conditions := make(map[string]any, len(ctx))
	for k, v := range ctx {
		conditions[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.patterns[id] = &Pattern{
		PatternID:         id,
		ActionSequence:    append([]ActionStep(nil), actions...),
		TriggerConditions: conditions,
		SuccessCount:      successes,
		FailureCount:      failures,
		TotalExecutions:   1,
		AutomationLevel:   level,
		CreatedAt:         s.nowFn(),
	}
	return id
}

// OptimizePatterns prunes and decays the library: patterns with
// effectiveness < 0.2 and fewer than 3 executions are removed; patterns
// with success rate < 0.3 lose 0.1 automation. Returns the number of
// patterns touched.
func (s *Store) OptimizePatterns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for id, p := range s.patterns {
		if p.Effectiveness() < 0.2 && p.TotalExecutions < 3 {
			delete(s.patterns, id)
			touched++
			continue
		}
		if p.SuccessRate() < 0.3 {
			p.AutomationLevel = math.Max(0, p.AutomationLevel-0.1)
			touched++
		}
	}
	return touched
}

// Get returns a copy of the pattern, or nil.
func (s *Store) Get(id string) *Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return nil
	}
	cp := copyPattern(p)
	return &cp
}

// List returns copies of all patterns ordered by descending effectiveness.
func (s *Store) List() []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, copyPattern(p))
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := out[i].Effectiveness(), out[j].Effectiveness()
		if ei != ej {
			return ei > ej
		}
		return out[i].PatternID < out[j].PatternID
	})
	return out
}

// Len returns the number of stored patterns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// Restore replaces the store's patterns. Used by hierarchy deserialization.
func (s *Store) Restore(patterns []Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = make(map[string]*Pattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		s.patterns[p.PatternID] = &p
	}
}

func copyPattern(p *Pattern) Pattern {
	cp := *p
	cp.ActionSequence = append([]ActionStep(nil), p.ActionSequence...)
	if p.TriggerConditions != nil {
		cp.TriggerConditions = make(map[string]any, len(p.TriggerConditions))
		for k, v := range p.TriggerConditions {
			cp.TriggerConditions[k] = v
		}
	}
	return cp
}
