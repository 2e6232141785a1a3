// Package scenario replays scripted event streams into the tick loop, for
// impact analysis and demos.
package scenario

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/animus-project/animus/internal/organism"
)

// TimedEvent is one scripted stimulus, scheduled relative to the tick at
// which the replay starts.
type TimedEvent struct {
	AfterTicks uint64         `yaml:"afterTicks"`
	Type       string         `yaml:"type"`
	Intensity  float64        `yaml:"intensity"`
	Metadata   map[string]any `yaml:"metadata,omitempty"`
}

// Scenario is a named event script.
type Scenario struct {
	Name   string       `yaml:"name"`
	Events []TimedEvent `yaml:"events"`
}

// Load parses a scenario YAML file and validates its events.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks event fields against the core contract.
func (s *Scenario) Validate() error {
	if len(s.Events) == 0 {
		return fmt.Errorf("scenario %q: %w: no events", s.Name, organism.ErrInvalidArgument)
	}
	for i, e := range s.Events {
		if e.Type == "" {
			return fmt.Errorf("scenario %q event %d: %w: missing type", s.Name, i, organism.ErrInvalidArgument)
		}
		if e.Intensity < -1 || e.Intensity > 1 {
			return fmt.Errorf("scenario %q event %d: %w: intensity %f out of [-1,1]", s.Name, i, organism.ErrInvalidArgument, e.Intensity)
		}
	}
	return nil
}

// Ingestor is the slice of the tick engine the replayer needs.
type Ingestor interface {
	Ingest(organism.Event) bool
	TickCount() uint64
}

// Replay feeds the scenario's events into the engine as their scheduled
// ticks pass, polling the tick counter. Blocks until the last event is
// delivered; returns the number of events dropped on a full queue.
func Replay(engine Ingestor, s *Scenario, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	events := append([]TimedEvent(nil), s.Events...)
	sort.Slice(events, func(i, j int) bool { return events[i].AfterTicks < events[j].AfterTicks })

	start := engine.TickCount()
	dropped := 0
	for _, te := range events {
		due := start + te.AfterTicks
		for engine.TickCount() < due {
			time.Sleep(time.Millisecond)
		}
		ok := engine.Ingest(organism.Event{
			Type:      te.Type,
			Intensity: te.Intensity,
			Metadata:  te.Metadata,
		})
		if !ok {
			dropped++
			logger.Warn("scenario event dropped, queue full", "scenario", s.Name, "type", te.Type)
		}
	}
	logger.Info("scenario replay complete", "scenario", s.Name, "events", len(events), "dropped", dropped)
	return dropped
}
