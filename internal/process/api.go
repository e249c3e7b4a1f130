package process

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/family"
	"github.com/corvid-labs/reconcrawl/internal/storage"
)

// APIProcessor implements spec §4.10: content-hash and validator-based
// dedup, recursive JSON redaction (falling back to string-level scanning for
// non-JSON bodies), and the same family cap as the HTML processor.
type APIProcessor struct {
	dedup  *dedup.Index
	family *family.Tracker
	store  *storage.Store

	mu         sync.Mutex
	validators map[string]string // url_key -> ETag or Last-Modified seen previously
}

// NewAPIProcessor builds an APIProcessor.
func NewAPIProcessor(idx *dedup.Index, tracker *family.Tracker, store *storage.Store) *APIProcessor {
	return &APIProcessor{
		dedup:      idx,
		family:     tracker,
		store:      store,
		validators: make(map[string]string),
	}
}

// Process runs the spec §4.10 pipeline against a JSON response body fetched
// from canonicalURL/urlKey at depth, given the response's ETag/Last-Modified
// validator (whichever is present; empty if neither).
func (p *APIProcessor) Process(canonicalURL, urlKey string, body []byte, status, depth int, validator string) (*Result, error) {
	originalSum := sha256.Sum256(body)
	originalSHA := hex.EncodeToString(originalSum[:])

	if p.dedup.SeenContent(originalSHA) {
		return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "content-hash"}, nil
	}
	if validator != "" {
		p.mu.Lock()
		prior, ok := p.validators[urlKey]
		p.validators[urlKey] = validator
		p.mu.Unlock()
		if ok && prior == validator {
			return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "etag"}, nil
		}
	}

	redactedBody, redacted, err := p.redact(body)
	if err != nil {
		return nil, fmt.Errorf("redact api body: %w", err)
	}

	familyKey, err := family.Key(canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("family key: %w", err)
	}
	shouldSave, _ := p.family.Observe(familyKey, family.Sample{
		BodyLen:    len(body),
		StatusCode: status,
	})
	if !shouldSave {
		return &Result{Outcome: OutcomeFamilySkipped}, nil
	}

	relPath, err := p.store.PathFor(storage.KindAPI, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("derive api path: %w", err)
	}
	if _, err := p.store.WriteAtomic(relPath, redactedBody); err != nil {
		return nil, fmt.Errorf("write api artifact: %w", err)
	}
	p.dedup.MarkContent(originalSHA)

	return &Result{
		Outcome: OutcomeArtifact,
		Artifact: &Artifact{
			Kind:       storage.KindAPI,
			SourceURL:  canonicalURL,
			Path:       relPath,
			SHA256:     originalSHA,
			Size:       int64(len(redactedBody)),
			Status:     status,
			Depth:      depth,
			CapturedAt: time.Now().UTC(),
			Redacted:   redacted,
		},
		Redacted: redacted,
	}, nil
}

// redact parses body as JSON and redacts recursively; on parse failure the
// body is treated as opaque text and scanned for sensitive patterns.
func (p *APIProcessor) redact(body []byte) ([]byte, bool, error) {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		text, changed := redactText(body)
		return text, changed, nil
	}
	redactedVal, changed := redactValue(decoded, "")
	if !changed {
		return body, false, nil
	}
	out, err := json.Marshal(redactedVal)
	if err != nil {
		return nil, false, fmt.Errorf("marshal redacted json: %w", err)
	}
	return out, true, nil
}
