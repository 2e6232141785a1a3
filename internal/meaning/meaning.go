// Package meaning is the decision collaborator: given an event and the
// current state it picks a response pattern and a per-field impact.
package meaning

import (
	"math"

	"github.com/animus-project/animus/internal/organism"
)

// Result is what the decision layer hands back to the tick engine.
type Result struct {
	Pattern      organism.ActionPattern `json:"pattern"`
	Impact       map[string]float64     `json:"impact"`
	Significance float64                `json:"significance"` // [0, 1]
}

// Engine computes meaning for events. Implementations must be pure with
// respect to the passed state (read-only).
type Engine interface {
	Evaluate(e organism.Event, state organism.SelfState) Result
}

// Heuristic is the default Engine: intensity drives significance, the
// response pattern follows from significance and current stability, and the
// impact maps intensity onto the state fields.
type Heuristic struct {
	// IgnoreBelow is the significance under which events are ignored.
	IgnoreBelow float64
	// AbsorbAbove is the significance over which events are absorbed in
	// full; between the two bounds the organism dampens.
	AbsorbAbove float64
}

// NewHeuristic returns a Heuristic with the conventional thresholds.
func NewHeuristic() *Heuristic {
	return &Heuristic{IgnoreBelow: 0.2, AbsorbAbove: 0.6}
}

func (h *Heuristic) Evaluate(e organism.Event, state organism.SelfState) Result {
	significance := math.Min(1, math.Abs(e.Intensity))

	pattern := organism.ActionDampen
	switch {
	case significance < h.IgnoreBelow:
		pattern = organism.ActionIgnore
	case significance >= h.AbsorbAbove:
		pattern = organism.ActionAbsorb
	}

	// A fragile organism flinches: low stability downgrades absorb to
	// dampen so full-strength impacts only land when it can take them.
	if pattern == organism.ActionAbsorb && state.Stability < 0.3 {
		pattern = organism.ActionDampen
	}

	impact := map[string]float64{
		"energy":    e.Intensity * 10,
		"stability": e.Intensity * 0.05,
		"integrity": 0,
	}
	if e.Intensity < 0 {
		// Negative stimuli erode integrity slightly on top of the
		// energy and stability cost.
		impact["integrity"] = e.Intensity * 0.02
	}

	return Result{Pattern: pattern, Impact: impact, Significance: significance}
}
