// Package manifest implements the Manifest & Codex Index Sink of spec §4.12:
// an in-memory accumulator of artifact records, family pattern stats,
// discovered endpoints, and error counts, flushed to manifest.json on a
// count/time trigger or a terminal event, alongside a streamed
// newline-delimited codex index. Grounded on the teacher's
// internal/storage/postgres/progress_store.go for the "accumulate deltas,
// flush on trigger" shape, generalized from job/site stats to crawl
// artifacts.
package manifest

import (
	"sync"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/process"
)

// FlushTrigger is the record-count/time policy from spec §4.12: flush after
// 50 artifacts since the last flush or 60 seconds elapsed, whichever first.
const (
	FlushEveryArtifacts = 50
	FlushEveryInterval  = 60 * time.Second
)

// ArtifactRecord is one entry in manifest.json's "files" array.
type ArtifactRecord struct {
	Kind       string    `json:"kind"`
	SourceURL  string    `json:"source_url"`
	Path       string    `json:"path"`
	SHA256     string    `json:"sha256"`
	Size       int64     `json:"size"`
	Status     int       `json:"status"`
	Depth      int       `json:"depth"`
	CapturedAt time.Time `json:"captured_at"`
	Redacted   bool      `json:"redacted"`
}

// PatternStat is one family key's entry in manifest.json's "patterns" map.
type PatternStat struct {
	Count        int `json:"count"`
	SamplesSaved int `json:"samples_saved"`
	Skipped      int `json:"skipped"`
}

// Endpoint is one entry in manifest.json's "endpoints" array.
type Endpoint struct {
	URL    string  `json:"url"`
	Source string  `json:"source"` // "js" | "html" | "api"
	Score  float64 `json:"score"`
}

// ErrorCount is one entry in manifest.json's "errors" array.
type ErrorCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Metadata is manifest.json's "metadata" object.
type Metadata struct {
	Target      string         `json:"target"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at,omitempty"`
	ConfigHash  string         `json:"config_hash"`
	DepthMax    int            `json:"depth_max"`
	BudgetsUsed map[string]int `json:"budgets_used"`
	BudgetsMax  map[string]int `json:"budgets_max"`
}

// Snapshot is the full manifest.json document shape (spec §4.12).
type Snapshot struct {
	Metadata  Metadata               `json:"metadata"`
	Files     []ArtifactRecord       `json:"files"`
	Patterns  map[string]PatternStat `json:"patterns"`
	Endpoints []Endpoint             `json:"endpoints"`
	Errors    []ErrorCount           `json:"errors"`
}

// Sink accumulates artifact records and error counts in memory and reports
// whether a flush is due, per spec §4.12's trigger policy. It does not
// itself write anything to disk; a Backend (local.go/postgres.go) does that.
type Sink struct {
	mu sync.Mutex

	meta      Metadata
	files     []ArtifactRecord
	endpoints []Endpoint
	errors    map[string]int

	sinceFlush int
	lastFlush  time.Time
}

// New builds a Sink with the given run metadata. now is the run's start
// time, used to seed the flush-interval clock.
func New(meta Metadata, now time.Time) *Sink {
	return &Sink{
		meta:      meta,
		errors:    make(map[string]int),
		lastFlush: now,
	}
}

// RecordArtifact appends an artifact record and any endpoint discoveries it
// carried (js-endpoint hints), returning true if a flush is now due.
func (s *Sink) RecordArtifact(a *process.Artifact, endpoints []Endpoint, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = append(s.files, ArtifactRecord{
		Kind:       string(a.Kind),
		SourceURL:  a.SourceURL,
		Path:       a.Path,
		SHA256:     a.SHA256,
		Size:       a.Size,
		Status:     a.Status,
		Depth:      a.Depth,
		CapturedAt: a.CapturedAt,
		Redacted:   a.Redacted,
	})
	s.endpoints = append(s.endpoints, endpoints...)
	s.sinceFlush++
	return s.dueLocked(now)
}

// RecordError increments the count for a given error kind, returning true
// if a flush is now due.
func (s *Sink) RecordError(kind string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[kind]++
	s.sinceFlush++
	return s.dueLocked(now)
}

func (s *Sink) dueLocked(now time.Time) bool {
	return s.sinceFlush >= FlushEveryArtifacts || now.Sub(s.lastFlush) >= FlushEveryInterval
}

// SetBudgets records the current budget usage/max, refreshed on every
// snapshot per spec §4.12's metadata.budgets_used/max fields.
func (s *Sink) SetBudgets(used, max map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.BudgetsUsed = used
	s.meta.BudgetsMax = max
}

// Finish stamps the run's finished_at time.
func (s *Sink) Finish(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.FinishedAt = at
}

// Snapshot builds the full manifest.json document from accumulated state
// plus the family tracker's pattern stats, and resets the flush counters.
func (s *Sink) Snapshot(patterns map[string]PatternStat) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]ErrorCount, 0, len(s.errors))
	for kind, count := range s.errors {
		errs = append(errs, ErrorCount{Kind: kind, Count: count})
	}

	snap := Snapshot{
		Metadata:  s.meta,
		Files:     append([]ArtifactRecord(nil), s.files...),
		Patterns:  patterns,
		Endpoints: append([]Endpoint(nil), s.endpoints...),
		Errors:    errs,
	}
	s.sinceFlush = 0
	s.lastFlush = time.Now().UTC()
	return snap
}
