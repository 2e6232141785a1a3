package api

import (
	"net/http"

	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/runtime"
	"github.com/animus-project/animus/internal/snapshot"
)

type HealthHandler struct {
	engine  *runtime.Engine
	manager *hierarchy.Manager
	snaps   *snapshot.Store
}

func NewHealthHandler(engine *runtime.Engine, manager *hierarchy.Manager, snaps *snapshot.Store) *HealthHandler {
	return &HealthHandler{engine: engine, manager: manager, snaps: snaps}
}

type serviceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string       `json:"status"`
	Tick       uint64       `json:"tick"`
	Snapshots  serviceCheck `json:"snapshots"`
	Sensory    bool         `json:"sensory"`
	Semantic   bool         `json:"semantic"`
	Procedural bool         `json:"procedural"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Tick:       h.engine.TickCount(),
		Sensory:    h.manager.SensoryAvailable(),
		Semantic:   h.manager.SemanticAvailable(),
		Procedural: h.manager.ProceduralAvailable(),
	}

	if h.snaps == nil {
		resp.Snapshots = serviceCheck{Status: "disabled"}
	} else if err := h.snaps.Ping(); err != nil {
		resp.Snapshots = serviceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Snapshots = serviceCheck{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
