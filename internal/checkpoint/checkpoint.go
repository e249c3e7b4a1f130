// Package checkpoint implements spec §4.13: an atomically persisted
// snapshot of in-flight scheduler state, captured every loop iteration and
// restored at startup so an interrupted run can resume without re-crawling
// or re-validating what it already discovered. Grounded on the teacher's
// internal/crawler/sink_fs.go / internal/storage.Store write-temp-then-
// rename discipline, generalized to a single JSON snapshot file wrapping
// internal/scheduler's own Snapshot/Restore pair.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/scheduler"
)

// State is the full checkpoint document (spec §4.13): last_url, pending
// queue items, budget counters, and the run's start/update timestamps.
type State struct {
	LastURL   string             `json:"last_url"`
	Pending   []scheduler.Item   `json:"pending"`
	Budget    scheduler.Counters `json:"budget"`
	StartedAt time.Time          `json:"started_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store persists and restores checkpoint State atomically at a fixed path.
type Store struct {
	path string
}

// New targets checkpoint.json under root.
func New(root string) *Store {
	return &Store{path: filepath.Join(root, "checkpoint.json")}
}

// Save writes state atomically (write-temp-then-rename within the same
// directory), satisfying spec §4.13's "reflects it fully or reflects the
// pre-state, never partially" checkpoint-safety invariant.
func (s *Store) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}
	return nil
}

// Exists reports whether a checkpoint file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the checkpoint file. Callers should check Exists
// first; Load returns an error if the file is absent.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return state, nil
}

// FromScheduler builds a State from a live Scheduler's current snapshot.
func FromScheduler(sched *scheduler.Scheduler, lastURL string, startedAt time.Time) State {
	snap := sched.Snapshot()
	return State{
		LastURL:   lastURL,
		Pending:   snap.Pending,
		Budget:    snap.Counters,
		StartedAt: startedAt,
		UpdatedAt: time.Now().UTC(),
	}
}

// ApplyTo restores state's pending items and budget counters into sched via
// scheduler.Scheduler.Restore, which forces admission (bypassing scope and
// dedup re-checks per spec §4.13: "they were already validated"). The
// caller is responsible for rebuilding the dedup seen-set from the
// manifest before calling ApplyTo, so future enqueues of these URLs are
// still correctly deduplicated.
func (state State) ApplyTo(sched *scheduler.Scheduler) {
	sched.Restore(scheduler.Snapshot{Pending: state.Pending, Counters: state.Budget})
}
