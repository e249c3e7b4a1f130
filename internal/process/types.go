// Package process implements the HTML, JS, and API/JSON processors of spec
// §4.8-§4.10: reduction, extraction, redaction, and disk write for each
// artifact kind. Grounded on the teacher's internal/crawler/detector_heuristic.go
// (goquery usage) for HTML parsing, generalized to the extraction and
// redaction rules the pipeline never needed.
package process

import (
	"time"

	"github.com/corvid-labs/reconcrawl/internal/storage"
)

// Outcome enumerates what happened to a processed Response, mirroring the
// spec §6 logging-event vocabulary this package can produce.
type Outcome string

const (
	OutcomeArtifact      Outcome = "artifact"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeFamilySkipped Outcome = "family-skipped"
)

// Artifact is the Artifact entity of spec §3, produced on OutcomeArtifact.
type Artifact struct {
	Kind        storage.Kind
	SourceURL   string
	Path        string
	SHA256      string
	Size        int64
	Status      int
	Depth       int
	CapturedAt  time.Time
	Redacted    bool
}

// Discovery is a URL found and canonicalized during processing, ready for
// the orchestrator to scope-check and enqueue.
type Discovery struct {
	Canonical string
	URLKey    string
	Depth     int
	Reason    string
}

// Result is the common return shape for all three processors.
type Result struct {
	Outcome        Outcome
	DuplicateKind  string // "content-hash" | "simhash" | "etag", set when Outcome == OutcomeDuplicate
	Artifact       *Artifact
	Discoveries    []Discovery
	Redacted       bool
	CodexHints     []string
}
