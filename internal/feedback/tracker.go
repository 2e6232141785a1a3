// Package feedback performs delayed causal attribution: actions taken by the
// decision layer are held pending, and after a sampled delay window the
// resulting state delta is attributed back to them.
package feedback

import (
	"math"
	"math/rand"
	"sync"

	"github.com/animus-project/animus/internal/organism"
)

// PendingAction is one action awaiting consequence observation. It moves
// Registered -> Waiting (each tick) -> Resolved | TimedOut.
type PendingAction struct {
	ActionID        string                 `json:"actionId"`
	ActionPattern   organism.ActionPattern `json:"actionPattern"`
	StateBefore     organism.StateSnapshot `json:"stateBefore"`
	Timestamp       float64                `json:"timestamp"`
	AssociatedWith  []string               `json:"associatedWith,omitempty"`
	CheckAfterTicks uint64                 `json:"checkAfterTicks"` // sampled once, [3, 10]
	TicksWaited     uint64                 `json:"ticksWaited"`
}

// Tracker owns the pending-action set. Mutation happens only on the tick
// goroutine; the mutex exists for the read-only Pending view used by the
// query surface.
type Tracker struct {
	mu      sync.RWMutex
	pending []*PendingAction
	byID    map[string]*PendingAction

	noiseFloor   float64
	timeoutTicks uint64
	sampleDelay  func() uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDelaySampler replaces the uniform [3,10] delay sampler. Tests pin the
// delay to exercise exact windows.
func WithDelaySampler(sample func() uint64) Option {
	return func(t *Tracker) { t.sampleDelay = sample }
}

// NewTracker creates a tracker with the given minimal-change noise floor
// (conventionally 0.001) and hard timeout in ticks (conventionally 20).
func NewTracker(noiseFloor float64, timeoutTicks uint64, opts ...Option) *Tracker {
	t := &Tracker{
		byID:         make(map[string]*PendingAction),
		noiseFloor:   noiseFloor,
		timeoutTicks: timeoutTicks,
		sampleDelay: func() uint64 {
			return uint64(3 + rand.Intn(8)) // uniform [3, 10]
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds a pending action, sampling its delay window once. A second
// registration under an id still pending is a silent no-op.
func (t *Tracker) Register(actionID string, pattern organism.ActionPattern, before organism.StateSnapshot, timestamp float64, associated ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byID[actionID]; exists {
		return
	}
	pa := &PendingAction{
		ActionID:        actionID,
		ActionPattern:   pattern,
		StateBefore:     before,
		Timestamp:       timestamp,
		AssociatedWith:  append([]string(nil), associated...),
		CheckAfterTicks: t.sampleDelay(),
	}
	t.pending = append(t.pending, pa)
	t.byID[actionID] = pa
}

// ObserveConsequences runs once per tick. Every pending action waits one
// more tick; actions whose window has elapsed are resolved against the
// current state in registration order. A delta below the noise floor keeps
// the action waiting (the consequence is not yet observable); past the hard
// timeout the action is dropped regardless, bounding memory growth from
// stalled attributions.
func (t *Tracker) ObserveConsequences(current organism.StateSnapshot, timestamp float64) []organism.FeedbackRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var records []organism.FeedbackRecord
	remaining := t.pending[:0]
	for _, pa := range t.pending {
		pa.TicksWaited++

		if pa.TicksWaited > t.timeoutTicks {
			delete(t.byID, pa.ActionID)
			continue
		}
		if pa.TicksWaited < pa.CheckAfterTicks {
			remaining = append(remaining, pa)
			continue
		}

		delta := map[string]float64{
			"energy":    current.Energy - pa.StateBefore.Energy,
			"stability": current.Stability - pa.StateBefore.Stability,
			"integrity": current.Integrity - pa.StateBefore.Integrity,
		}
		if maxAbs(delta) < t.noiseFloor {
			// Minimal-change suppression: nothing attributable yet.
			remaining = append(remaining, pa)
			continue
		}

		records = append(records, organism.FeedbackRecord{
			ActionID:         pa.ActionID,
			ActionPattern:    pa.ActionPattern,
			StateDelta:       delta,
			DelayTicks:       pa.TicksWaited,
			AssociatedEvents: pa.AssociatedWith,
			Timestamp:        timestamp,
		})
		delete(t.byID, pa.ActionID)
	}
	t.pending = remaining
	return records
}

// PendingCount returns the number of outstanding actions.
func (t *Tracker) PendingCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending)
}

// Pending returns copies of the outstanding actions in registration order.
func (t *Tracker) Pending() []PendingAction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PendingAction, 0, len(t.pending))
	for _, pa := range t.pending {
		out = append(out, *pa)
	}
	return out
}

func maxAbs(m map[string]float64) float64 {
	max := 0.0
	for _, v := range m {
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}
