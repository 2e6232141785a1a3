package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/animus-project/animus/internal/feedback"
	"github.com/animus-project/animus/internal/hierarchy"
	"github.com/animus-project/animus/internal/meaning"
	"github.com/animus-project/animus/internal/organism"
	"github.com/animus-project/animus/internal/procedural"
	"github.com/animus-project/animus/internal/runtime"
	"github.com/animus-project/animus/internal/semantic"
	"github.com/animus-project/animus/internal/sensory"
)

func setupServer(t *testing.T, apiKey string) (*httptest.Server, *runtime.Engine) {
	t.Helper()
	buf := sensory.NewBuffer(50)
	sem := semantic.NewStore(0.3)
	proc := procedural.NewStore(0.8)
	manager := hierarchy.NewManager(buf, sem, proc, hierarchy.DefaultConfig(), nil)
	tracker := feedback.NewTracker(0.001, 20)
	engine := runtime.New(
		organism.NewSelfState(),
		meaning.NewHeuristic(),
		buf, tracker, manager, proc, nil,
		runtime.Options{TickInterval: time.Millisecond},
		slog.Default(),
	)

	router := NewRouter(engine, manager, tracker, nil, apiKey, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, engine
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status   string `json:"status"`
		Sensory  bool   `json:"sensory"`
		Semantic bool   `json:"semantic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || !body.Sensory || !body.Semantic {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestIngestEvent(t *testing.T) {
	srv, engine := setupServer(t, "")

	t.Run("valid event is accepted", func(t *testing.T) {
		payload := []byte(`{"type":"storm","intensity":-0.7}`)
		resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader(payload))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}

		engine.StepOnce()
		if engine.View().Energy == 100 {
			t.Fatal("a strong negative event should cost energy")
		}
	})

	t.Run("missing type is rejected", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader([]byte(`{"intensity":0.5}`)))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("out-of-range intensity is rejected", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader([]byte(`{"type":"x","intensity":2}`)))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestMemoryQueryEndpoint(t *testing.T) {
	srv, _ := setupServer(t, "")

	t.Run("valid level answers", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/memory/semantic")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown level is a 400", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/memory/quantum")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("unknown level must 400, got %d", resp.StatusCode)
		}
	})

	t.Run("bad limit is a 400", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/memory/episodic?limit=many")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestConsolidateEndpoint(t *testing.T) {
	srv, _ := setupServer(t, "")

	resp, err := http.Post(srv.URL+"/memory/consolidate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result hierarchy.ConsolidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("expected a successful pass: %+v", result)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	srv, _ := setupServer(t, "")

	resp, err := http.Post(srv.URL+"/adaptations/nope/rollback", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown adaptation must 404, got %d", resp.StatusCode)
	}
}

func TestBearerAuth(t *testing.T) {
	srv, _ := setupServer(t, "secret")

	t.Run("health is open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("health must not require auth, got %d", resp.StatusCode)
		}
	})

	t.Run("state requires the key", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/state")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/state", nil)
		req.Header.Set("Authorization", "Bearer secret")
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 with key, got %d", resp.StatusCode)
		}
	})
}
