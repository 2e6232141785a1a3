// Package semantic holds the concept tier: generalized knowledge distilled
// from repeated episodic entries.
package semantic

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Concept is one node in the concept graph. Related concepts are id links,
// never pointers, so the store serializes without cycles.
type Concept struct {
	ConceptID       string   `json:"conceptId"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Confidence      float64  `json:"confidence"` // [0, 1]
	ActivationCount int      `json:"activationCount"`
	LastActivation  float64  `json:"lastActivation"`
	RelatedConcepts []string `json:"relatedConcepts,omitempty"`
	CreatedAt       float64  `json:"createdAt"`
}

// Store is the semantic concept store. Consolidation (tick goroutine) is the
// only writer; the query surface reads concurrently.
type Store struct {
	mu       sync.RWMutex
	concepts map[string]*Concept

	// smoothing controls how far confidence moves toward an observed
	// frequency on each reinforcement.
	smoothing float64
}

// NewStore creates an empty concept store. smoothing must be in (0, 1];
// values outside fall back to 0.3.
func NewStore(smoothing float64) *Store {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 0.3
	}
	return &Store{
		concepts:  make(map[string]*Concept),
		smoothing: smoothing,
	}
}

// Reinforce creates the named concept if absent, otherwise bumps its
// activation count and nudges confidence toward the observed frequency via
// exponential smoothing (never an overwrite). Returns the concept id.
func (s *Store) Reinforce(name, description string, frequency float64, now float64) string {
	if frequency < 0 {
		frequency = 0
	} else if frequency > 1 {
		frequency = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.concepts {
		if c.Name != name {
			continue
		}
		c.ActivationCount++
		c.LastActivation = now
		c.Confidence += s.smoothing * (frequency - c.Confidence)
		return c.ConceptID
	}

	id := uuid.New().String()
	s.concepts[id] = &Concept{
		ConceptID:       id,
		Name:            name,
		Description:     description,
		Confidence:      frequency,
		ActivationCount: 1,
		LastActivation:  now,
		CreatedAt:       now,
	}
	return id
}

// Relate records a directed id link between two concepts. Unknown ids are a
// no-op; duplicate links are collapsed.
func (s *Store) Relate(fromID, toID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.concepts[fromID]
	if !ok {
		return
	}
	if _, ok := s.concepts[toID]; !ok {
		return
	}
	for _, existing := range from.RelatedConcepts {
		if existing == toID {
			return
		}
	}
	from.RelatedConcepts = append(from.RelatedConcepts, toID)
}

// Get returns a copy of the concept, or nil if absent.
func (s *Store) Get(id string) *Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.concepts[id]
	if !ok {
		return nil
	}
	out := *c
	out.RelatedConcepts = append([]string(nil), c.RelatedConcepts...)
	return &out
}

// FindByName returns a copy of the first concept with the given name, or
// nil.
func (s *Store) FindByName(name string) *Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.concepts {
		if c.Name == name {
			out := *c
			out.RelatedConcepts = append([]string(nil), c.RelatedConcepts...)
			return &out
		}
	}
	return nil
}

// List returns copies of all concepts ordered by descending confidence,
// then name for a stable order.
func (s *Store) List() []Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Concept, 0, len(s.concepts))
	for _, c := range s.concepts {
		cp := *c
		cp.RelatedConcepts = append([]string(nil), c.RelatedConcepts...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of stored concepts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.concepts)
}

// Restore replaces the store contents with the given concepts. Used by
// hierarchy deserialization.
func (s *Store) Restore(concepts []Concept) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts = make(map[string]*Concept, len(concepts))
	for i := range concepts {
		c := concepts[i]
		s.concepts[c.ConceptID] = &c
	}
}

// Now is the store's notion of current time in unix seconds, handy for
// callers that reinforce outside a tick context.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
