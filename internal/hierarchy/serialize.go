package hierarchy

import (
	"encoding/json"
	"fmt"

	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/procedural"
	"github.com/animus-project/animus/internal/semantic"
)

// serialized is the persisted layout: semantic concepts and procedural
// patterns keyed by id, field-for-field with the in-memory entities.
// Round-tripping an unchanged hierarchy reproduces identical fields.
type serialized struct {
	SemanticStore struct {
		Concepts map[string]semantic.Concept `json:"concepts"`
	} `json:"semantic_store"`
	ProceduralStore struct {
		Patterns map[string]procedural.Pattern `json:"patterns"`
	} `json:"procedural_store"`
}

// Serialize encodes the semantic and procedural stores. Missing stores
// serialize as empty maps so restore is always well-defined.
func (m *Manager) Serialize() ([]byte, error) {
	var s serialized
	s.SemanticStore.Concepts = make(map[string]semantic.Concept)
	s.ProceduralStore.Patterns = make(map[string]procedural.Pattern)

	if m.semStore != nil {
		for _, c := range m.semStore.List() {
			s.SemanticStore.Concepts[c.ConceptID] = c
		}
	}
	if m.procStore != nil {
		for _, p := range m.procStore.List() {
			s.ProceduralStore.Patterns[p.PatternID] = p
		}
	}
	return json.Marshal(s)
}

// Restore replaces store contents from a Serialize payload. Tiers that are
// not wired are skipped; the payload must still parse in full.
func (m *Manager) Restore(data []byte) error {
	var s serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode hierarchy: %w: %v", organism.ErrInvalidArgument, err)
	}

	if m.semStore != nil {
		concepts := make([]semantic.Concept, 0, len(s.SemanticStore.Concepts))
		for _, c := range s.SemanticStore.Concepts {
			concepts = append(concepts, c)
		}
		m.semStore.Restore(concepts)
	}
	if m.procStore != nil {
		patterns := make([]procedural.Pattern, 0, len(s.ProceduralStore.Patterns))
		for _, p := range s.ProceduralStore.Patterns {
			patterns = append(patterns, p)
		}
		m.procStore.Restore(patterns)
	}
	return nil
}
