package organism

// ActionPattern is the closed set of responses the decision layer can take
// against an incoming event. Impact application switches exhaustively on it.
type ActionPattern string

const (
	ActionIgnore ActionPattern = "ignore"
	ActionDampen ActionPattern = "dampen"
	ActionAbsorb ActionPattern = "absorb"
)

var validActionPatterns = map[ActionPattern]bool{
	ActionIgnore: true,
	ActionDampen: true,
	ActionAbsorb: true,
}

func (p ActionPattern) IsValid() bool {
	return validActionPatterns[p]
}

// ImpactScale returns the multiplier applied to a meaning impact for this
// pattern: ignore suppresses the delta, dampen halves it, absorb applies it
// verbatim.
func (p ActionPattern) ImpactScale() float64 {
	switch p {
	case ActionIgnore:
		return 0
	case ActionDampen:
		return 0.5
	case ActionAbsorb:
		return 1.0
	}
	return 0
}

// Event is an immutable external stimulus. Created by an event source,
// consumed exactly once by the tick loop.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Intensity float64        `json:"intensity"` // [-1, 1]
	Timestamp float64        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MemoryEntry is one episodic record. Append-only: never mutated after
// creation, removed only by an explicit reset.
type MemoryEntry struct {
	EventType    string         `json:"eventType"`
	Significance float64        `json:"significance"` // [0, 1]
	Timestamp    float64        `json:"timestamp"`
	Weight       float64        `json:"weight"`
	Feedback     map[string]any `json:"feedback,omitempty"`
}

// StateSnapshot captures the mutable scalar fields of SelfState at a point
// in time. Used as the "before" image for delayed feedback attribution.
type StateSnapshot struct {
	Energy    float64 `json:"energy"`
	Stability float64 `json:"stability"`
	Integrity float64 `json:"integrity"`
}

// FeedbackRecord is the causally-attributed consequence of a past action:
// the state delta observed after the sampled delay window elapsed.
type FeedbackRecord struct {
	ActionID         string             `json:"actionId"`
	ActionPattern    ActionPattern      `json:"actionPattern"`
	StateDelta       map[string]float64 `json:"stateDelta"`
	DelayTicks       uint64             `json:"delayTicks"`
	AssociatedEvents []string           `json:"associatedEvents,omitempty"`
	Timestamp        float64            `json:"timestamp"`
}

// Adaptation records one applied (non-ignore) impact so the control plane
// can inspect and roll back recent state changes.
type Adaptation struct {
	ID         string             `json:"id"`
	EventType  string             `json:"eventType"`
	Pattern    ActionPattern      `json:"pattern"`
	Impact     map[string]float64 `json:"impact"`
	Tick       uint64             `json:"tick"`
	RolledBack bool               `json:"rolledBack"`
}
