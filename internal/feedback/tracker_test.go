package feedback

import (
	"testing"

	"github.com/animus-project/animus/internal/organism"
)

func fixedDelay(n uint64) Option {
	return WithDelaySampler(func() uint64 { return n })
}

func TestRegister(t *testing.T) {
	t.Run("duplicate id is a silent no-op", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(3))
		before := organism.StateSnapshot{Energy: 50}
		tr.Register("a1", organism.ActionAbsorb, before, 1)
		tr.Register("a1", organism.ActionDampen, before, 2)

		pending := tr.Pending()
		if len(pending) != 1 {
			t.Fatalf("expected one pending action, got %d", len(pending))
		}
		if pending[0].ActionPattern != organism.ActionAbsorb {
			t.Fatalf("second registration must not overwrite, got %s", pending[0].ActionPattern)
		}
	})

	t.Run("sampled delay stays within bounds", func(t *testing.T) {
		tr := NewTracker(0.001, 20)
		for i := 0; i < 100; i++ {
			tr.Register(string(rune('a'+i%26))+string(rune('0'+i/26)), organism.ActionAbsorb, organism.StateSnapshot{}, 0)
		}
		for _, pa := range tr.Pending() {
			if pa.CheckAfterTicks < 3 || pa.CheckAfterTicks > 10 {
				t.Fatalf("delay %d outside [3,10]", pa.CheckAfterTicks)
			}
		}
	})
}

func TestObserveConsequences(t *testing.T) {
	t.Run("attributes state delta after the window", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(1))
		before := organism.StateSnapshot{Energy: 50, Stability: 0.8, Integrity: 0.9}
		tr.Register("a1", organism.ActionAbsorb, before, 1, "storm")

		current := organism.StateSnapshot{Energy: 49.0, Stability: 0.8, Integrity: 0.9}
		records := tr.ObserveConsequences(current, 2)

		if len(records) != 1 {
			t.Fatalf("expected exactly one record, got %d", len(records))
		}
		r := records[0]
		if r.ActionID != "a1" {
			t.Fatalf("unexpected action id %s", r.ActionID)
		}
		if r.StateDelta["energy"] != -1.0 {
			t.Fatalf("expected energy delta -1.0, got %f", r.StateDelta["energy"])
		}
		if r.DelayTicks != 1 {
			t.Fatalf("expected delay 1, got %d", r.DelayTicks)
		}
		if len(r.AssociatedEvents) != 1 || r.AssociatedEvents[0] != "storm" {
			t.Fatalf("expected associated event storm, got %v", r.AssociatedEvents)
		}
		if tr.PendingCount() != 0 {
			t.Fatalf("pending set must be empty, got %d", tr.PendingCount())
		}
	})

	t.Run("does not resolve before the window", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(3))
		tr.Register("a1", organism.ActionAbsorb, organism.StateSnapshot{Energy: 50}, 0)

		current := organism.StateSnapshot{Energy: 40}
		for tick := 0; tick < 2; tick++ {
			if records := tr.ObserveConsequences(current, 0); len(records) != 0 {
				t.Fatalf("resolved at tick %d, before window", tick+1)
			}
		}
		if records := tr.ObserveConsequences(current, 0); len(records) != 1 {
			t.Fatalf("expected resolution on the third tick")
		}
	})

	t.Run("below noise floor keeps waiting", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(3))
		before := organism.StateSnapshot{Energy: 50}
		tr.Register("a1", organism.ActionDampen, before, 0)

		// No measurable change: the action stays pending.
		unchanged := organism.StateSnapshot{Energy: 50.0005}
		for tick := 0; tick < 5; tick++ {
			if records := tr.ObserveConsequences(unchanged, 0); len(records) != 0 {
				t.Fatal("noise-floor delta must not produce a record")
			}
		}
		if tr.PendingCount() != 1 {
			t.Fatalf("action should still be pending, got %d", tr.PendingCount())
		}

		// Once the delta clears the floor, the record lands.
		changed := organism.StateSnapshot{Energy: 49}
		records := tr.ObserveConsequences(changed, 0)
		if len(records) != 1 {
			t.Fatalf("expected record once delta clears floor, got %d", len(records))
		}
	})

	t.Run("hard timeout drops the action", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(3))
		tr.Register("a1", organism.ActionAbsorb, organism.StateSnapshot{Energy: 50}, 0)

		unchanged := organism.StateSnapshot{Energy: 50}
		for tick := 0; tick < 20; tick++ {
			tr.ObserveConsequences(unchanged, 0)
		}
		if tr.PendingCount() != 1 {
			t.Fatalf("action should survive 20 ticks, got %d pending", tr.PendingCount())
		}

		records := tr.ObserveConsequences(unchanged, 0)
		if len(records) != 0 {
			t.Fatal("timeout must not produce a record")
		}
		if tr.PendingCount() != 0 {
			t.Fatalf("no action persists beyond 20 ticks, got %d", tr.PendingCount())
		}
	})

	t.Run("resolves independently in registration order", func(t *testing.T) {
		tr := NewTracker(0.001, 20, fixedDelay(1))
		tr.Register("first", organism.ActionAbsorb, organism.StateSnapshot{Energy: 50}, 0)
		tr.Register("second", organism.ActionDampen, organism.StateSnapshot{Energy: 60}, 0)

		records := tr.ObserveConsequences(organism.StateSnapshot{Energy: 55}, 0)
		if len(records) != 2 {
			t.Fatalf("expected both to resolve, got %d", len(records))
		}
		if records[0].ActionID != "first" || records[1].ActionID != "second" {
			t.Fatalf("resolution order must follow registration order, got %s then %s",
				records[0].ActionID, records[1].ActionID)
		}
		if records[0].StateDelta["energy"] != 5 || records[1].StateDelta["energy"] != -5 {
			t.Fatalf("deltas computed against each action's own before-state: %v, %v",
				records[0].StateDelta, records[1].StateDelta)
		}
	})
}
