// Package sensory implements the lowest memory tier: a bounded ring of raw
// events with repetition tracking, feeding promotion into episodic memory.
package sensory

import (
	"sync"

	"github.com/animus-project/animus/internal/organism"
)

// Buffer is a fixed-capacity ring of recent events. Overflow silently
// evicts the oldest entry. Safe for concurrent use: the tick goroutine
// writes, the query surface reads.
type Buffer struct {
	mu       sync.RWMutex
	entries  []organism.Event
	capacity int
}

// NewBuffer creates a buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{capacity: capacity}
}

// Push appends an event, evicting the oldest on overflow. Never errors.
func (b *Buffer) Push(e organism.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Recent returns up to limit events, newest last.
func (b *Buffer) Recent(limit int) []organism.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]organism.Event, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}

// TypeCounts returns the per-type occurrence counts within the current
// window.
func (b *Buffer) TypeCounts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range b.entries {
		counts[e.Type]++
	}
	return counts
}

// DrainPromotable removes and returns events eligible for promotion to the
// episodic tier:
//
//   - single occurrences with |intensity| >= salienceThreshold, and
//   - every occurrence of a type repeated >= repetitionThreshold times
//     within the window.
//
// Promotion is at-most-once per occurrence: returned events leave the
// buffer; everything else stays.
func (b *Buffer) DrainPromotable(salienceThreshold float64, repetitionThreshold int) []organism.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[string]int)
	for _, e := range b.entries {
		counts[e.Type]++
	}

	var promoted []organism.Event
	remaining := b.entries[:0]
	for _, e := range b.entries {
		salient := e.Intensity >= salienceThreshold || e.Intensity <= -salienceThreshold
		repeated := repetitionThreshold > 0 && counts[e.Type] >= repetitionThreshold
		if salient || repeated {
			promoted = append(promoted, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	b.entries = remaining
	return promoted
}

// Reset discards all buffered events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
