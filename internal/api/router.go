package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/animus-project/animus/internal/feedback"
	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/runtime"
	"github.com/animus-project/animus/internal/snapshot"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	engine *runtime.Engine,
	manager *hierarchy.Manager,
	tracker *feedback.Tracker,
	snaps *snapshot.Store,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(engine, manager, snaps)
	eventH := NewEventHandler(engine)
	stateH := NewStateHandler(engine)
	memoryH := NewMemoryHandler(engine, manager, tracker)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Post("/events", eventH.Ingest)
		r.Get("/state", stateH.Get)

		r.Route("/memory", func(r chi.Router) {
			r.Post("/consolidate", memoryH.Consolidate)
			r.Get("/pending", memoryH.Pending)
			r.Get("/{level}", memoryH.Query)
		})

		r.Route("/adaptations", func(r chi.Router) {
			r.Get("/", stateH.ListAdaptations)
			r.Post("/{id}/rollback", stateH.Rollback)
		})
	})

	return r
}
