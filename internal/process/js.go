package process

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/storage"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

// fingerprintBasename matches a webpack/rollup-style hashed filename, e.g.
// "main.8f3c21.js" or "vendor.a1b2c3d4.js".
var fingerprintBasename = regexp.MustCompile(`^(.+)\.([a-f0-9]{6,})\.js$`)

var (
	fetchCallPattern   = regexp.MustCompile(`(?i)\bfetch\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	axiosCallPattern   = regexp.MustCompile(`(?i)\baxios\.(?:get|post|put|delete|patch)\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	graphqlCallPattern = regexp.MustCompile(`(?i)\bgraphql\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)
	apiPathLiteral     = regexp.MustCompile(`['"` + "`" + `](/(?:api|v1|v2|graphql)(?:/[^'"` + "`" + `]*)?)['"` + "`" + `]`)
	absoluteURLLiteral = regexp.MustCompile(`['"` + "`" + `](https?://[^'"` + "`" + `\s]+)['"` + "`" + `]`)
	sourceMapComment   = regexp.MustCompile(`(?m)//# sourceMappingURL=(\S+)`)
)

// JSProcessor implements spec §4.9: content-hash dedup, fingerprint-family
// collapsing, disk write with collision handling, and endpoint-candidate
// extraction via lightweight source scanning.
type JSProcessor struct {
	dedup   *dedup.Index
	store   *storage.Store
	urlOpts urlkey.Options

	mu                 sync.Mutex
	fingerprintFamSeen map[string]bool
}

// NewJSProcessor builds a JSProcessor.
func NewJSProcessor(idx *dedup.Index, store *storage.Store, urlOpts urlkey.Options) *JSProcessor {
	return &JSProcessor{
		dedup:               idx,
		store:               store,
		urlOpts:             urlOpts,
		fingerprintFamSeen:  make(map[string]bool),
	}
}

// Process runs the spec §4.9 pipeline against a JS response body fetched
// from canonicalURL at depth.
func (p *JSProcessor) Process(canonicalURL string, body []byte, depth int) (*Result, error) {
	sum := sha256.Sum256(body)
	shaHex := hex.EncodeToString(sum[:])

	if p.dedup.SeenContent(shaHex) {
		return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "content-hash"}, nil
	}

	base := basenameOf(canonicalURL)
	if fam := fingerprintBasename.FindStringSubmatch(base); fam != nil {
		family := fam[1]
		p.mu.Lock()
		seen := p.fingerprintFamSeen[family]
		p.fingerprintFamSeen[family] = true
		p.mu.Unlock()
		if seen {
			return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "content-hash"}, nil
		}
	}

	relPath := "js/" + base
	if p.store.Exists(relPath) {
		relPath = p.store.ResolveJSCollision(base, canonicalURL)
	}
	if _, err := p.store.WriteAtomic(relPath, body); err != nil {
		return nil, fmt.Errorf("write js artifact: %w", err)
	}
	p.dedup.MarkContent(shaHex)

	endpoints := p.extractEndpoints(string(body), canonicalURL)
	discoveries := make([]Discovery, 0, len(endpoints))
	for _, ep := range endpoints {
		result, err := urlkey.Canonicalize(ep, canonicalURL, p.urlOpts)
		if err != nil {
			continue
		}
		discoveries = append(discoveries, Discovery{
			Canonical: result.Canonical,
			URLKey:    result.URLKey,
			Depth:     depth + 1,
			Reason:    "js-endpoint",
		})
	}

	var hints []string
	if len(discoveries) > 0 {
		hints = append(hints, "signal=endpoints")
	}

	return &Result{
		Outcome: OutcomeArtifact,
		Artifact: &Artifact{
			Kind:       storage.KindJS,
			SourceURL:  canonicalURL,
			Path:       relPath,
			SHA256:     shaHex,
			Size:       int64(len(body)),
			Depth:      depth,
			CapturedAt: time.Now().UTC(),
		},
		Discoveries: discoveries,
		CodexHints:  hints,
	}, nil
}

func basenameOf(canonicalURL string) string {
	u := canonicalURL
	if idx := strings.IndexByte(u, '?'); idx >= 0 {
		u = u[:idx]
	}
	if idx := strings.LastIndexByte(u, '/'); idx >= 0 {
		u = u[idx+1:]
	}
	if u == "" {
		u = "script.js"
	}
	return u
}

// extractEndpoints scans source for fetch/axios/graphql call arguments,
// bare API-shaped literals, absolute URLs, and (best-effort, same-origin
// only) a referenced source map's own path — never fetching beyond scope.
func (p *JSProcessor) extractEndpoints(source, sourceURL string) []string {
	var found []string
	for _, pat := range []*regexp.Regexp{fetchCallPattern, axiosCallPattern, graphqlCallPattern, apiPathLiteral, absoluteURLLiteral} {
		for _, m := range pat.FindAllStringSubmatch(source, -1) {
			found = append(found, m[1])
		}
	}
	if m := sourceMapComment.FindStringSubmatch(source); m != nil {
		if mapURL := m[1]; sameOrigin(mapURL, sourceURL) {
			found = append(found, mapURL)
		}
	}
	return dedupeStrings(found)
}

func sameOrigin(candidate, sourceURL string) bool {
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return strings.HasPrefix(candidate, originOf(sourceURL))
	}
	return true // relative reference resolves within the same origin
}

func originOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rawURL[:idx+3] + rest
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
