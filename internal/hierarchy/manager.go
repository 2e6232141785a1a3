// Package hierarchy orchestrates the four memory tiers: promotion from the
// sensory buffer into episodic memory, distillation of episodic groups into
// semantic concepts, and procedural pattern upkeep.
package hierarchy

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/procedural"
	"github.com/animus-project/animus/internal/semantic"
	"github.com/animus-project/animus/internal/sensory"
)

// Config carries the promotion and consolidation thresholds.
type Config struct {
	// SalienceThreshold promotes a single occurrence when |intensity|
	// reaches it.
	SalienceThreshold float64
	// RepetitionThreshold promotes recurring event types once they hit
	// this count inside the sensory window.
	RepetitionThreshold int
	// SemanticOccurrence is the episodic group size that produces or
	// reinforces a concept.
	SemanticOccurrence int
	// EpisodicWindow bounds how many recent episodic entries stage two
	// examines.
	EpisodicWindow int
}

// DefaultConfig mirrors the conventional thresholds.
func DefaultConfig() Config {
	return Config{
		SalienceThreshold:   0.8,
		RepetitionThreshold: 3,
		SemanticOccurrence:  3,
		EpisodicWindow:      50,
	}
}

// ConsolidationResult reports one consolidation pass. Success is false only
// when every stage failed.
type ConsolidationResult struct {
	SensoryToEpisodic  int           `json:"sensoryToEpisodic"`
	EpisodicToSemantic int           `json:"episodicToSemantic"`
	SemanticUpdates    int           `json:"semanticUpdates"`
	ProceduralTouched  int           `json:"proceduralTouched"`
	Duration           time.Duration `json:"duration"`
	Success            bool          `json:"success"`
	Details            []string      `json:"details,omitempty"`
}

// Manager owns the consolidation pipeline. Sub-stores are optional: a nil
// store simply disables its stage (the manager degrades instead of failing
// the tick).
type Manager struct {
	sensoryBuf *sensory.Buffer
	semStore   *semantic.Store
	procStore  *procedural.Store
	cfg        Config
	logger     *slog.Logger

	// consolidateMu serializes consolidation passes: external triggers
	// (the control plane) block behind the tick-driven pass rather than
	// interleave with it.
	consolidateMu sync.Mutex
}

// NewManager wires the hierarchy. Any store may be nil.
func NewManager(buf *sensory.Buffer, sem *semantic.Store, proc *procedural.Store, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sensoryBuf: buf,
		semStore:   sem,
		procStore:  proc,
		cfg:        cfg,
		logger:     logger,
	}
}

// SensoryAvailable reports whether the sensory tier is wired.
func (m *Manager) SensoryAvailable() bool { return m.sensoryBuf != nil }

// SemanticAvailable reports whether the semantic tier is wired.
func (m *Manager) SemanticAvailable() bool { return m.semStore != nil }

// ProceduralAvailable reports whether the procedural tier is wired.
func (m *Manager) ProceduralAvailable() bool { return m.procStore != nil }

// Consolidate runs the three-stage pipeline against the given state. One
// stage failing never aborts the others; each failure is recorded in
// Details. The state is mutated (episodic appends) and must be the tick
// goroutine's copy.
func (m *Manager) Consolidate(state *organism.SelfState) ConsolidationResult {
	m.consolidateMu.Lock()
	defer m.consolidateMu.Unlock()

	start := time.Now()
	result := ConsolidationResult{}
	failures := 0
	stages := 0

	// Stage 1: sensory -> episodic.
	stages++
	if err := m.promoteSensory(state, &result); err != nil {
		failures++
		result.Details = append(result.Details, fmt.Sprintf("sensory->episodic: %v", err))
	}

	// Stage 2: episodic -> semantic.
	stages++
	if err := m.distillSemantic(state, &result); err != nil {
		failures++
		result.Details = append(result.Details, fmt.Sprintf("episodic->semantic: %v", err))
	}

	// Stage 3: procedural upkeep.
	stages++
	if err := m.optimizeProcedural(&result); err != nil {
		failures++
		result.Details = append(result.Details, fmt.Sprintf("procedural: %v", err))
	}

	result.Duration = time.Since(start)
	result.Success = failures < stages

	m.logger.Debug("consolidation pass",
		"sensory_to_episodic", result.SensoryToEpisodic,
		"episodic_to_semantic", result.EpisodicToSemantic,
		"procedural_touched", result.ProceduralTouched,
		"duration_ms", result.Duration.Milliseconds(),
		"failures", failures,
	)
	return result
}

func (m *Manager) promoteSensory(state *organism.SelfState, result *ConsolidationResult) (err error) {
	defer recoverStage(&err)
	if m.sensoryBuf == nil {
		return nil
	}
	promoted := m.sensoryBuf.DrainPromotable(m.cfg.SalienceThreshold, m.cfg.RepetitionThreshold)
	for _, e := range promoted {
		state.AppendMemory(organism.MemoryEntry{
			EventType:    e.Type,
			Significance: math.Min(1, math.Abs(e.Intensity)),
			Timestamp:    e.Timestamp,
			Weight:       1.0,
		})
	}
	result.SensoryToEpisodic = len(promoted)
	return nil
}

func (m *Manager) distillSemantic(state *organism.SelfState, result *ConsolidationResult) (err error) {
	defer recoverStage(&err)
	if m.semStore == nil {
		return nil
	}

	window := state.Memory
	if m.cfg.EpisodicWindow > 0 && len(window) > m.cfg.EpisodicWindow {
		window = window[len(window)-m.cfg.EpisodicWindow:]
	}
	if len(window) == 0 {
		return nil
	}

	groups := make(map[string]int)
	for _, entry := range window {
		groups[entry.EventType]++
	}

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	for eventType, count := range groups {
		if count < m.cfg.SemanticOccurrence {
			continue
		}
		frequency := float64(count) / float64(len(window))
		m.semStore.Reinforce(
			eventType,
			fmt.Sprintf("recurring experience of %q", eventType),
			frequency,
			now,
		)
		result.EpisodicToSemantic++
		result.SemanticUpdates++
	}
	return nil
}

func (m *Manager) optimizeProcedural(result *ConsolidationResult) (err error) {
	defer recoverStage(&err)
	if m.procStore == nil {
		return nil
	}
	result.ProceduralTouched = m.procStore.OptimizePatterns()
	return nil
}

// recoverStage converts a stage panic into an error so partial-failure
// isolation holds even for programming faults inside a store.
func recoverStage(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("stage panic: %v", r)
	}
}
