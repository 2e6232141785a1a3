package hierarchy

import (
	"fmt"
	"time"

	"github.com/animus-project/animus/internal/organism"
)

// Memory levels exposed by the query surface.
const (
	LevelSensory    = "sensory"
	LevelEpisodic   = "episodic"
	LevelSemantic   = "semantic"
	LevelProcedural = "procedural"
)

// QueryParams narrows a memory query.
type QueryParams struct {
	// Limit caps the number of results; 0 means no cap.
	Limit int `json:"limit"`
	// EventType filters sensory and episodic results by type.
	EventType string `json:"eventType,omitempty"`
	// MinConfidence filters semantic concepts.
	MinConfidence float64 `json:"minConfidence,omitempty"`
	// MinAutomation filters procedural patterns.
	MinAutomation float64 `json:"minAutomation,omitempty"`
}

// QueryResult is the external query contract.
type QueryResult struct {
	Level         string        `json:"level"`
	Results       []any         `json:"results"`
	TotalCount    int           `json:"totalCount"`
	ExecutionTime time.Duration `json:"executionTime"`
	Success       bool          `json:"success"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
}

// Query reads one memory level. Safe for concurrent use while consolidation
// runs; stores synchronize internally. The episodic slice is a read-only
// view supplied by the state owner. An unknown level returns an
// InvalidArgument error, never a silent empty result.
func (m *Manager) Query(level string, params QueryParams, episodic []organism.MemoryEntry) (QueryResult, error) {
	start := time.Now()
	result := QueryResult{Level: level}

	var items []any
	switch level {
	case LevelSensory:
		if m.sensoryBuf == nil {
			return fail(result, start, fmt.Errorf("sensory tier: %w", organism.ErrUnavailable))
		}
		for _, e := range m.sensoryBuf.Recent(0) {
			if params.EventType != "" && e.Type != params.EventType {
				continue
			}
			items = append(items, e)
		}

	case LevelEpisodic:
		for _, entry := range episodic {
			if params.EventType != "" && entry.EventType != params.EventType {
				continue
			}
			items = append(items, entry)
		}

	case LevelSemantic:
		if m.semStore == nil {
			return fail(result, start, fmt.Errorf("semantic tier: %w", organism.ErrUnavailable))
		}
		for _, c := range m.semStore.List() {
			if c.Confidence < params.MinConfidence {
				continue
			}
			items = append(items, c)
		}

	case LevelProcedural:
		if m.procStore == nil {
			return fail(result, start, fmt.Errorf("procedural tier: %w", organism.ErrUnavailable))
		}
		for _, p := range m.procStore.List() {
			if p.AutomationLevel < params.MinAutomation {
				continue
			}
			items = append(items, p)
		}

	default:
		return fail(result, start, fmt.Errorf("unknown memory level %q: %w", level, organism.ErrInvalidArgument))
	}

	result.TotalCount = len(items)
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	if items == nil {
		items = []any{}
	}
	result.Results = items
	result.Success = true
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func fail(result QueryResult, start time.Time, err error) (QueryResult, error) {
	result.Success = false
	result.ErrorMessage = err.Error()
	result.ExecutionTime = time.Since(start)
	result.Results = []any{}
	return result, err
}
