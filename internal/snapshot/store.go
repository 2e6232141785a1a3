// Package snapshot is the persistence collaborator: periodic SelfState and
// hierarchy snapshots in SQLite. Failures here are logged by the caller and
// never stall the tick loop.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/animus-project/animus/internal/organism"
)

// Store persists snapshots to SQLite. One writer (the tick goroutine);
// WAL mode keeps concurrent readers cheap.
type Store struct {
	db *sql.DB
	// keep bounds how many snapshots survive pruning; 0 keeps all.
	keep int
}

// Open creates or opens the snapshot database and runs schema setup.
func Open(dbPath string, keep int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, keep: keep}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  tick INTEGER NOT NULL,
  state_json TEXT NOT NULL,
  hierarchy_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_tick ON snapshots(tick);
`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Save writes one snapshot and prunes past the retention bound.
func (s *Store) Save(state organism.SelfState, hierarchy []byte) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if hierarchy == nil {
		hierarchy = []byte("{}")
	}

	_, err = s.db.Exec(
		`INSERT INTO snapshots (tick, state_json, hierarchy_json, created_at) VALUES (?, ?, ?, ?)`,
		int64(state.Ticks), string(stateJSON), string(hierarchy), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if s.keep > 0 {
		_, err = s.db.Exec(
			`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
			s.keep,
		)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return nil
}

// LoadLatest returns the most recent snapshot, or (nil, nil, nil) when the
// store is empty.
func (s *Store) LoadLatest() (*organism.SelfState, []byte, error) {
	var stateJSON, hierarchyJSON string
	err := s.db.QueryRow(
		`SELECT state_json, hierarchy_json FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&stateJSON, &hierarchyJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}

	var state organism.SelfState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, []byte(hierarchyJSON), nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// Ping verifies the database connection, for health checks.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
