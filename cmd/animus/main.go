package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/animus-project/animus/internal/api"
	"github.com/animus-project/animus/internal/config"
	"github.com/animus-project/animus/internal/feedback"
	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/logging"
	"github.com/animus-project/animus/internal/meaning"
	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/procedural"
	"github.com/animus-project/animus/internal/runtime"
	"github.com/animus-project/animus/internal/scenario"
	"github.com/animus-project/animus/internal/semantic"
	"github.com/animus-project/animus/internal/sensory"
	"github.com/animus-project/animus/internal/snapshot"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger: JSON output behind a bounded async queue so the tick loop
	// never waits on log I/O.
	logLevel := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	asyncHandler := logging.NewAsyncHandler(jsonHandler, cfg.LogQueueSize)
	defer asyncHandler.Close()
	logger := slog.New(asyncHandler)
	slog.SetDefault(logger)

	// Snapshot persistence
	snaps, err := snapshot.Open(cfg.DBPath, 20)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		asyncHandler.Close()
		os.Exit(1)
	}
	defer snaps.Close()

	// Memory tiers
	buf := sensory.NewBuffer(cfg.SensoryCapacity)
	semStore := semantic.NewStore(cfg.SemanticSmoothing)
	procStore := procedural.NewStore(cfg.MinAutomation)
	manager := hierarchy.NewManager(buf, semStore, procStore, hierarchy.Config{
		SalienceThreshold:   cfg.SalienceThreshold,
		RepetitionThreshold: cfg.RepetitionThreshold,
		SemanticOccurrence:  cfg.SemanticOccurrence,
		EpisodicWindow:      cfg.EpisodicWindow,
	}, logger)

	// Feedback attribution
	tracker := feedback.NewTracker(cfg.NoiseFloor, cfg.FeedbackTimeout)

	// Resume from the latest snapshot when one exists.
	state := organism.NewSelfState()
	if prev, hierarchyJSON, err := snaps.LoadLatest(); err != nil {
		logger.Warn("failed to load latest snapshot, starting fresh", "error", err)
	} else if prev != nil {
		state = prev
		if len(hierarchyJSON) > 0 {
			if err := manager.Restore(hierarchyJSON); err != nil {
				logger.Warn("failed to restore hierarchy from snapshot", "error", err)
			}
		}
		logger.Info("resumed from snapshot", "tick", state.Ticks, "energy", state.Energy)
	}

	// Tick engine
	engine := runtime.New(
		state,
		meaning.NewHeuristic(),
		buf,
		tracker,
		manager,
		procStore,
		snaps,
		runtime.Options{
			TickInterval:      cfg.TickInterval,
			EventQueueSize:    cfg.EventQueueSize,
			ConsolidateEvery:  cfg.ConsolidateEvery,
			SnapshotEvery:     cfg.SnapshotEvery,
			AdaptationHistory: cfg.AdaptationHistory,
		},
		logger,
	)
	go engine.Run()

	// Scenario replay, when scripted.
	if path := os.Getenv("ANIMUS_SCENARIO"); path != "" {
		sc, err := scenario.Load(path)
		if err != nil {
			logger.Error("failed to load scenario", "path", path, "error", err)
		} else {
			go scenario.Replay(engine, sc, logger)
		}
	}

	// Control plane
	router := api.NewRouter(engine, manager, tracker, snaps, cfg.APIKey, logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("organism server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// The in-flight tick finishes; only the next tick is prevented.
	engine.Stop()

	logger.Info("organism stopped", "ticks", engine.TickCount())
}
