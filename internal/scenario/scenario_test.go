package scenario

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/animus-project/animus/internal/organism"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid scenario parses", func(t *testing.T) {
		path := writeScenario(t, `
name: storm-season
events:
  - afterTicks: 0
    type: storm
    intensity: -0.7
  - afterTicks: 5
    type: calm
    intensity: 0.3
    metadata:
      region: north
`)
		s, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if s.Name != "storm-season" || len(s.Events) != 2 {
			t.Fatalf("unexpected scenario: %+v", s)
		}
		if s.Events[1].Metadata["region"] != "north" {
			t.Fatalf("metadata lost: %v", s.Events[1].Metadata)
		}
	})

	t.Run("empty scenario is rejected", func(t *testing.T) {
		path := writeScenario(t, "name: empty\nevents: []\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("out-of-range intensity is rejected", func(t *testing.T) {
		path := writeScenario(t, "name: bad\nevents:\n  - type: x\n    intensity: 3\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("missing type is rejected", func(t *testing.T) {
		path := writeScenario(t, "name: bad\nevents:\n  - intensity: 0.5\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

// fakeEngine counts ingested events and advances its tick on demand.
type fakeEngine struct {
	mu     sync.Mutex
	tick   uint64
	events []organism.Event
	full   bool
}

func (f *fakeEngine) Ingest(e organism.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.events = append(f.events, e)
	return true
}

func (f *fakeEngine) TickCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick++ // each poll advances a simulated tick
	return f.tick
}

func TestReplay(t *testing.T) {
	t.Run("delivers events in schedule order", func(t *testing.T) {
		s := &Scenario{Name: "test", Events: []TimedEvent{
			{AfterTicks: 3, Type: "late", Intensity: 0.1},
			{AfterTicks: 0, Type: "early", Intensity: 0.2},
		}}
		f := &fakeEngine{}

		dropped := Replay(f, s, nil)
		if dropped != 0 {
			t.Fatalf("expected no drops, got %d", dropped)
		}
		if len(f.events) != 2 || f.events[0].Type != "early" || f.events[1].Type != "late" {
			t.Fatalf("expected schedule order, got %v", f.events)
		}
	})

	t.Run("counts drops on a full queue", func(t *testing.T) {
		s := &Scenario{Name: "test", Events: []TimedEvent{
			{AfterTicks: 0, Type: "x", Intensity: 0.1},
		}}
		f := &fakeEngine{full: true}

		if dropped := Replay(f, s, nil); dropped != 1 {
			t.Fatalf("expected one drop, got %d", dropped)
		}
	})
}
