package organism

import "math"

// SelfState is the mutable root entity of the simulation. It is owned by the
// tick engine: all mutation happens on the tick goroutine, and everything
// else sees read-only copies taken via Snapshot or View.
type SelfState struct {
	Energy         float64       `json:"energy"`    // [0, 100]
	Stability      float64       `json:"stability"` // [0, 1]
	Integrity      float64       `json:"integrity"` // [0, 1]
	Ticks          uint64        `json:"ticks"`
	Age            float64       `json:"age"`
	SubjectiveTime float64       `json:"subjectiveTime"`
	Memory         []MemoryEntry `json:"memory"`
	Adaptations    []Adaptation  `json:"adaptations"`
}

// NewSelfState returns a state at the conventional starting point: full
// energy, high but not perfect stability and integrity.
func NewSelfState() *SelfState {
	return &SelfState{
		Energy:    100,
		Stability: 0.8,
		Integrity: 1.0,
	}
}

// Snapshot copies the scalar fields for later delta computation.
func (s *SelfState) Snapshot() StateSnapshot {
	return StateSnapshot{Energy: s.Energy, Stability: s.Stability, Integrity: s.Integrity}
}

// ApplyImpact adds per-field deltas scaled by the given factor, clamping
// each field to its valid range. Unknown fields are ignored.
func (s *SelfState) ApplyImpact(impact map[string]float64, scale float64) {
	for field, delta := range impact {
		switch field {
		case "energy":
			s.Energy = clamp(s.Energy+delta*scale, 0, 100)
		case "stability":
			s.Stability = clamp(s.Stability+delta*scale, 0, 1)
		case "integrity":
			s.Integrity = clamp(s.Integrity+delta*scale, 0, 1)
		}
	}
}

// AppendMemory appends one episodic entry. Entries are immutable once
// appended.
func (s *SelfState) AppendMemory(e MemoryEntry) {
	s.Memory = append(s.Memory, e)
}

// RecordAdaptation appends to the bounded adaptation history, evicting the
// oldest entry past maxLen.
func (s *SelfState) RecordAdaptation(a Adaptation, maxLen int) {
	s.Adaptations = append(s.Adaptations, a)
	if maxLen > 0 && len(s.Adaptations) > maxLen {
		s.Adaptations = s.Adaptations[len(s.Adaptations)-maxLen:]
	}
}

// RollbackAdaptation re-applies the inverse of a recorded impact and marks
// the adaptation rolled back. Returns false if the id is unknown or already
// rolled back.
func (s *SelfState) RollbackAdaptation(id string) bool {
	for i := range s.Adaptations {
		a := &s.Adaptations[i]
		if a.ID != id || a.RolledBack {
			continue
		}
		inverse := make(map[string]float64, len(a.Impact))
		for field, delta := range a.Impact {
			inverse[field] = -delta
		}
		s.ApplyImpact(inverse, a.Pattern.ImpactScale())
		a.RolledBack = true
		return true
	}
	return false
}

// View returns a deep copy safe to hand to readers outside the tick
// goroutine.
func (s *SelfState) View() SelfState {
	out := *s
	out.Memory = append([]MemoryEntry(nil), s.Memory...)
	out.Adaptations = append([]Adaptation(nil), s.Adaptations...)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
