package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/animus-project/animus/internal/feedback"
	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/runtime"
)

type MemoryHandler struct {
	engine  *runtime.Engine
	manager *hierarchy.Manager
	tracker *feedback.Tracker
}

func NewMemoryHandler(engine *runtime.Engine, manager *hierarchy.Manager, tracker *feedback.Tracker) *MemoryHandler {
	return &MemoryHandler{engine: engine, manager: manager, tracker: tracker}
}

// Query handles GET /memory/{level}: the concurrent-read query surface over
// the four tiers.
func (h *MemoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	level := chi.URLParam(r, "level")

	params := hierarchy.QueryParams{
		EventType: r.URL.Query().Get("eventType"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		params.Limit = n
	}
	if v := r.URL.Query().Get("minConfidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "minConfidence must be a number")
			return
		}
		params.MinConfidence = f
	}
	if v := r.URL.Query().Get("minAutomation"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "minAutomation must be a number")
			return
		}
		params.MinAutomation = f
	}

	episodic := h.engine.View().Memory
	result, err := h.manager.Query(level, params, episodic)
	if err != nil {
		switch {
		case errors.Is(err, organism.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, result.ErrorMessage)
		case errors.Is(err, organism.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, result.ErrorMessage)
		default:
			writeError(w, http.StatusInternalServerError, result.ErrorMessage)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Consolidate handles POST /memory/consolidate: an out-of-schedule
// consolidation pass, serialized with the tick loop.
func (h *MemoryHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	result := h.engine.ConsolidateNow()
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// Pending handles GET /memory/pending: outstanding feedback attributions.
func (h *MemoryHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending := h.tracker.Pending()
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"total":   len(pending),
	})
}
