// Package runtime drives the organism: a single goroutine advances
// SelfState tick by tick, feeding the memory hierarchy and the feedback
// tracker. Nothing else mutates SelfState.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/animus-project/animus/internal/feedback"
	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/meaning"
	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/procedural"
	"github.com/animus-project/animus/internal/sensory"
)

// Snapshotter is the persistence collaborator. Failures are logged per
// tick, never propagated.
type Snapshotter interface {
	Save(state organism.SelfState, hierarchy []byte) error
}

// Options wires the engine.
type Options struct {
	TickInterval     time.Duration
	EventQueueSize   int
	ConsolidateEvery uint64
	SnapshotEvery    uint64
	// MaxEventsPerTick bounds the batch drained from the queue each
	// tick; 0 means 16.
	MaxEventsPerTick  int
	AdaptationHistory int
	IntegrityPenalty  float64 // applied on a recovered tick panic
}

// Engine is the tick loop.
type Engine struct {
	opts    Options
	events  chan organism.Event
	meaning meaning.Engine
	sensory *sensory.Buffer
	tracker *feedback.Tracker
	manager *hierarchy.Manager
	proc    *procedural.Store
	snaps   Snapshotter
	logger  *slog.Logger

	// stateMu guards state for outside readers (View, queries) against
	// the tick goroutine's mutations.
	stateMu sync.Mutex
	state   *organism.SelfState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates an engine around the given collaborators. proc and snaps may
// be nil; the corresponding features degrade.
func New(
	state *organism.SelfState,
	m meaning.Engine,
	buf *sensory.Buffer,
	tracker *feedback.Tracker,
	manager *hierarchy.Manager,
	proc *procedural.Store,
	snaps Snapshotter,
	opts Options,
	logger *slog.Logger,
) *Engine {
	if state == nil {
		state = organism.NewSelfState()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.EventQueueSize < 1 {
		opts.EventQueueSize = 256
	}
	if opts.MaxEventsPerTick < 1 {
		opts.MaxEventsPerTick = 16
	}
	if opts.ConsolidateEvery < 1 {
		opts.ConsolidateEvery = 10
	}
	if opts.IntegrityPenalty == 0 {
		opts.IntegrityPenalty = 0.05
	}
	return &Engine{
		opts:    opts,
		events:  make(chan organism.Event, opts.EventQueueSize),
		meaning: m,
		sensory: buf,
		tracker: tracker,
		manager: manager,
		proc:    proc,
		snaps:   snaps,
		logger:  logger,
		state:   state,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Ingest queues an event for the next tick. Returns false when the queue
// is full (the caller decides whether that is an error).
func (e *Engine) Ingest(ev organism.Event) bool {
	select {
	case e.events <- ev:
		return true
	default:
		return false
	}
}

// Run drives ticks until Stop. A stop signal only prevents the next tick;
// the in-flight tick always completes.
func (e *Engine) Run() {
	defer close(e.done)
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	e.logger.Info("tick loop starting", "interval", e.opts.TickInterval)
	for {
		select {
		case <-e.stop:
			e.logger.Info("tick loop stopped", "ticks", e.TickCount())
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// Stop signals the loop to halt and waits for the in-flight tick.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	<-e.done
}

// tick is one simulation step. Any panic inside the body costs a fixed
// integrity penalty and the loop continues on the next tick.
func (e *Engine) tick() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.state.ApplyImpact(map[string]float64{"integrity": -e.opts.IntegrityPenalty}, 1)
			e.logger.Error("tick recovered from panic", "error", fmt.Sprint(r), "tick", e.state.Ticks)
		}
	}()

	e.state.Ticks++
	e.state.Age += e.opts.TickInterval.Seconds()
	// Subjective time runs at the pace the organism can afford: an
	// exhausted organism experiences a slower now.
	e.state.SubjectiveTime += e.opts.TickInterval.Seconds() * (0.5 + e.state.Energy/200)

	now := float64(time.Now().UnixNano()) / float64(time.Second)

drain:
	for i := 0; i < e.opts.MaxEventsPerTick; i++ {
		select {
		case ev := <-e.events:
			e.processEvent(ev, now)
		default:
			break drain
		}
	}

	// Delayed attribution: consequences of past actions become episodic
	// feedback entries.
	if e.tracker != nil {
		for _, record := range e.tracker.ObserveConsequences(e.state.Snapshot(), now) {
			e.absorbFeedback(record)
		}
	}

	if e.manager != nil && e.state.Ticks%e.opts.ConsolidateEvery == 0 {
		result := e.manager.Consolidate(e.state)
		if !result.Success {
			e.logger.Warn("consolidation failed on all stages", "details", result.Details)
		}
	}

	if e.snaps != nil && e.opts.SnapshotEvery > 0 && e.state.Ticks%e.opts.SnapshotEvery == 0 {
		e.saveSnapshot()
	}
}

func (e *Engine) processEvent(ev organism.Event, now float64) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = now
	}

	result := e.meaning.Evaluate(ev, *e.state)
	before := e.state.Snapshot()

	if result.Pattern != organism.ActionIgnore {
		e.state.ApplyImpact(result.Impact, result.Pattern.ImpactScale())

		actionID := uuid.New().String()
		e.state.RecordAdaptation(organism.Adaptation{
			ID:        actionID,
			EventType: ev.Type,
			Pattern:   result.Pattern,
			Impact:    result.Impact,
			Tick:      e.state.Ticks,
		}, e.opts.AdaptationHistory)

		if e.tracker != nil {
			e.tracker.Register(actionID, result.Pattern, before, now, ev.Type)
		}
		if e.proc != nil {
			e.proc.RecordDecision(
				map[string]any{"event_type": ev.Type, "high_significance": result.Significance >= 0.6},
				string(result.Pattern), "", result.Significance,
			)
		}
	}

	if e.sensory != nil {
		e.sensory.Push(ev)
	}

	e.logger.Debug("event processed",
		"type", ev.Type,
		"intensity", ev.Intensity,
		"pattern", string(result.Pattern),
		"significance", result.Significance,
	)
}

// absorbFeedback converts one feedback record into an episodic entry and a
// procedural learning sample.
func (e *Engine) absorbFeedback(record organism.FeedbackRecord) {
	e.state.AppendMemory(organism.MemoryEntry{
		EventType:    "feedback",
		Significance: significanceOf(record.StateDelta),
		Timestamp:    record.Timestamp,
		Weight:       1.0,
		Feedback: map[string]any{
			"actionId":      record.ActionID,
			"actionPattern": string(record.ActionPattern),
			"stateDelta":    record.StateDelta,
			"delayTicks":    record.DelayTicks,
		},
	})

	if e.proc != nil {
		ctx := map[string]any{"action_pattern": string(record.ActionPattern)}
		for _, evType := range record.AssociatedEvents {
			ctx["event_type"] = evType
			break
		}
		actions := []procedural.ActionStep{{ActionType: string(record.ActionPattern)}}
		e.proc.LearnFromExperience(ctx, actions, outcomeImproved(record.StateDelta))
	}
}

// outcomeImproved judges a state delta: energy counts on its 0-100 scale,
// stability and integrity on their unit scales.
func outcomeImproved(delta map[string]float64) bool {
	score := delta["energy"]/100 + delta["stability"] + delta["integrity"]
	return score > 0
}

func significanceOf(delta map[string]float64) float64 {
	s := 0.0
	for field, v := range delta {
		if field == "energy" {
			v /= 100
		}
		if v < 0 {
			v = -v
		}
		if v > s {
			s = v
		}
	}
	if s > 1 {
		s = 1
	}
	return s
}

func (e *Engine) saveSnapshot() {
	var hierarchyJSON []byte
	if e.manager != nil {
		data, err := e.manager.Serialize()
		if err != nil {
			e.logger.Error("serialize hierarchy failed", "error", err)
		} else {
			hierarchyJSON = data
		}
	}
	if err := e.snaps.Save(e.state.View(), hierarchyJSON); err != nil {
		e.logger.Error("snapshot save failed", "error", err, "tick", e.state.Ticks)
	}
}

// View returns a deep copy of the current state, safe for any goroutine.
func (e *Engine) View() organism.SelfState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.View()
}

// TickCount returns the current tick counter.
func (e *Engine) TickCount() uint64 {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.Ticks
}

// ConsolidateNow triggers a consolidation pass outside the periodic
// schedule, serialized against the tick goroutine.
func (e *Engine) ConsolidateNow() hierarchy.ConsolidationResult {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.manager == nil {
		return hierarchy.ConsolidationResult{Details: []string{"hierarchy manager not wired"}}
	}
	return e.manager.Consolidate(e.state)
}

// Rollback re-applies the inverse impact of a recorded adaptation.
func (e *Engine) Rollback(adaptationID string) bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state.RollbackAdaptation(adaptationID)
}

// StepOnce advances exactly one tick synchronously. Exists for tests and
// scenario replay; must not be mixed with a concurrently running Run loop.
func (e *Engine) StepOnce() {
	e.tick()
}
