package semantic

import (
	"math"
	"reflect"
	"testing"
)

func TestReinforce(t *testing.T) {
	t.Run("creates a concept on first sight", func(t *testing.T) {
		s := NewStore(0.3)
		id := s.Reinforce("storm", "recurring storms", 0.5, 100)

		c := s.Get(id)
		if c == nil {
			t.Fatal("expected concept")
		}
		if c.Name != "storm" || c.ActivationCount != 1 || c.Confidence != 0.5 {
			t.Fatalf("unexpected concept: %+v", c)
		}
	})

	t.Run("reinforcement smooths confidence instead of overwriting", func(t *testing.T) {
		s := NewStore(0.3)
		id := s.Reinforce("storm", "", 0.5, 100)
		again := s.Reinforce("storm", "", 1.0, 200)

		if again != id {
			t.Fatal("same name must reinforce the same concept")
		}
		c := s.Get(id)
		want := 0.5 + 0.3*(1.0-0.5)
		if math.Abs(c.Confidence-want) > 1e-9 {
			t.Fatalf("expected smoothed confidence %f, got %f", want, c.Confidence)
		}
		if c.ActivationCount != 2 {
			t.Fatalf("expected activation count 2, got %d", c.ActivationCount)
		}
		if c.LastActivation != 200 {
			t.Fatalf("expected last activation 200, got %f", c.LastActivation)
		}
	})

	t.Run("frequency is clamped to [0,1]", func(t *testing.T) {
		s := NewStore(0.3)
		id := s.Reinforce("storm", "", 4.2, 100)
		if c := s.Get(id); c.Confidence != 1 {
			t.Fatalf("expected clamped confidence 1, got %f", c.Confidence)
		}
	})
}

func TestRelate(t *testing.T) {
	s := NewStore(0.3)
	a := s.Reinforce("storm", "", 0.5, 100)
	b := s.Reinforce("shelter", "", 0.5, 100)

	s.Relate(a, b)
	s.Relate(a, b) // duplicate collapses
	s.Relate(a, "missing")

	c := s.Get(a)
	if len(c.RelatedConcepts) != 1 || c.RelatedConcepts[0] != b {
		t.Fatalf("expected single id link to %s, got %v", b, c.RelatedConcepts)
	}
}

func TestListOrder(t *testing.T) {
	s := NewStore(0.3)
	s.Reinforce("weak", "", 0.2, 100)
	s.Reinforce("strong", "", 0.9, 100)

	list := s.List()
	if len(list) != 2 || list[0].Name != "strong" {
		t.Fatalf("expected confidence-descending order, got %v", list)
	}
}

func TestRestore(t *testing.T) {
	s := NewStore(0.3)
	id := s.Reinforce("storm", "desc", 0.5, 100)
	original := *s.Get(id)

	replacement := NewStore(0.3)
	replacement.Restore([]Concept{original})

	restored := replacement.Get(id)
	if restored == nil {
		t.Fatal("expected restored concept")
	}
	if !reflect.DeepEqual(*restored, original) {
		t.Fatalf("restore must reproduce fields: %+v vs %+v", restored, original)
	}
}
