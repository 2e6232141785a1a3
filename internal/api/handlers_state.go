package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/animus-project/animus/internal/runtime"
)

type StateHandler struct {
	engine *runtime.Engine
}

func NewStateHandler(engine *runtime.Engine) *StateHandler {
	return &StateHandler{engine: engine}
}

// Get handles GET /state: a read-only snapshot of the organism.
func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	state := h.engine.View()
	// The episodic store can grow large; the state endpoint reports its
	// size, the memory endpoint serves its contents.
	memoryCount := len(state.Memory)
	state.Memory = nil
	writeJSON(w, http.StatusOK, map[string]any{
		"state":       state,
		"memoryCount": memoryCount,
	})
}

// ListAdaptations handles GET /adaptations.
func (h *StateHandler) ListAdaptations(w http.ResponseWriter, r *http.Request) {
	state := h.engine.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"adaptations": state.Adaptations,
		"total":       len(state.Adaptations),
	})
}

// Rollback handles POST /adaptations/{id}/rollback: re-applies the inverse
// of a recorded impact.
func (h *StateHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.engine.Rollback(id) {
		writeError(w, http.StatusNotFound, "adaptation not found or already rolled back")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rolledBack": id})
}
