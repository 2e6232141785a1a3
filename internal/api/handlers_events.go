package api

import (
	"net/http"

	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/runtime"
)

type EventHandler struct {
	engine *runtime.Engine
}

func NewEventHandler(engine *runtime.Engine) *EventHandler {
	return &EventHandler{engine: engine}
}

type ingestRequest struct {
	Type      string         `json:"type"`
	Intensity float64        `json:"intensity"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ingestResponse struct {
	Accepted bool   `json:"accepted"`
	Tick     uint64 `json:"tick"`
}

// Ingest handles POST /events: queues a stimulus for the next tick.
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.Intensity < -1 || req.Intensity > 1 {
		writeError(w, http.StatusBadRequest, "intensity must be in [-1, 1]")
		return
	}

	ok := h.engine.Ingest(organism.Event{
		Type:      req.Type,
		Intensity: req.Intensity,
		Metadata:  req.Metadata,
	})
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "event queue full")
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: true, Tick: h.engine.TickCount()})
}
