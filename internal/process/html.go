package process

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/family"
	"github.com/corvid-labs/reconcrawl/internal/storage"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

var refreshURLPattern = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'";]+)`)

// HTMLProcessor implements spec §4.8: dedup, family cap, atomic write, link
// extraction, and pagination-aware sibling comparison.
type HTMLProcessor struct {
	dedup       *dedup.Index
	family      *family.Tracker
	store       *storage.Store
	shingleSize int
	urlOpts     urlkey.Options

	mu       sync.Mutex
	siblings map[string][]byte // pagination base key -> first saved sibling's body
}

// NewHTMLProcessor builds an HTMLProcessor.
func NewHTMLProcessor(idx *dedup.Index, tracker *family.Tracker, store *storage.Store, shingleSize int, urlOpts urlkey.Options) *HTMLProcessor {
	return &HTMLProcessor{
		dedup:       idx,
		family:      tracker,
		store:       store,
		shingleSize: shingleSize,
		urlOpts:     urlOpts,
		siblings:    make(map[string][]byte),
	}
}

// Process runs the full spec §4.8 pipeline against body (rendered HTML if
// available, else the raw fetch body) fetched from canonicalURL at depth.
func (p *HTMLProcessor) Process(canonicalURL string, body []byte, status, depth int) (*Result, error) {
	sum := sha256.Sum256(body)
	shaHex := hex.EncodeToString(sum[:])

	if p.dedup.SeenContent(shaHex) {
		return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "content-hash"}, nil
	}

	fp := dedup.Fingerprint(string(body), p.shingleSize)
	if p.dedup.NearDuplicateHTML(fp) {
		return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "simhash"}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	if skip := p.paginationSkip(canonicalURL, body); skip {
		return &Result{Outcome: OutcomeDuplicate, DuplicateKind: "content-hash"}, nil
	}

	familyKey, err := family.Key(canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("family key: %w", err)
	}
	titleLen := len(strings.TrimSpace(doc.Find("title").First().Text()))
	shouldSave, _ := p.family.Observe(familyKey, family.Sample{
		TitleLen:   titleLen,
		BodyLen:    len(body),
		StatusCode: status,
	})
	if !shouldSave {
		return &Result{Outcome: OutcomeFamilySkipped}, nil
	}

	relPath, err := p.store.PathFor(storage.KindHTML, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("derive html path: %w", err)
	}
	if _, err := p.store.WriteAtomic(relPath, body); err != nil {
		return nil, fmt.Errorf("write html artifact: %w", err)
	}
	p.dedup.MarkContent(shaHex)
	p.dedup.RegisterHTML(fp)

	discoveries := p.extractDiscoveries(doc, canonicalURL, depth)

	return &Result{
		Outcome: OutcomeArtifact,
		Artifact: &Artifact{
			Kind:       storage.KindHTML,
			SourceURL:  canonicalURL,
			Path:       relPath,
			SHA256:     shaHex,
			Size:       int64(len(body)),
			Status:     status,
			Depth:      depth,
			CapturedAt: time.Now().UTC(),
		},
		Discoveries: discoveries,
	}, nil
}

// paginationSkip implements the pagination policy of spec §4.8: when
// canonicalURL differs from a previously saved sibling only by a
// pagination parameter, save only if the content diff ratio exceeds 0.15.
func (p *HTMLProcessor) paginationSkip(canonicalURL string, body []byte) bool {
	base := stripPaginationParams(canonicalURL)

	p.mu.Lock()
	defer p.mu.Unlock()

	first, ok := p.siblings[base]
	if !ok {
		p.siblings[base] = append([]byte(nil), body...)
		return false
	}
	return diffRatio(first, body) <= 0.15
}

var paginationParams = map[string]bool{"page": true, "offset": true, "cursor": true}

func stripPaginationParams(canonicalURL string) string {
	idx := strings.IndexByte(canonicalURL, '?')
	if idx < 0 {
		return canonicalURL
	}
	base, query := canonicalURL[:idx], canonicalURL[idx+1:]
	var kept []string
	for _, pair := range strings.Split(query, "&") {
		key := pair
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			key = pair[:eq]
		}
		if !paginationParams[strings.ToLower(key)] {
			kept = append(kept, pair)
		}
	}
	if len(kept) == 0 {
		return base
	}
	return base + "?" + strings.Join(kept, "&")
}

// diffRatio approximates a content difference ratio using word-set Jaccard
// distance: 1 - |intersection|/|union|. Cheap, dependency-free, and stable
// under whitespace/attribute-order noise that a byte diff would flag as
// wholly different.
func diffRatio(a, b []byte) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return 1 - float64(intersection)/float64(union)
}

func wordSet(b []byte) map[string]bool {
	fields := strings.Fields(strings.ToLower(string(b)))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func (p *HTMLProcessor) extractDiscoveries(doc *goquery.Document, sourceURL string, depth int) []Discovery {
	var raws []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			raws = append(raws, href)
		}
	})
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			raws = append(raws, href)
		}
	})
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			raws = append(raws, src)
		}
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			raws = append(raws, src)
		}
	})
	doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
		if action, ok := s.Attr("action"); ok {
			raws = append(raws, action)
		}
	})
	doc.Find(`meta[http-equiv]`).Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "refresh") {
			return
		}
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		if m := refreshURLPattern.FindStringSubmatch(content); m != nil {
			raws = append(raws, m[1])
		}
	})

	discoveries := make([]Discovery, 0, len(raws))
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "mailto:") || strings.HasPrefix(raw, "data:") {
			continue
		}
		result, err := urlkey.Canonicalize(raw, sourceURL, p.urlOpts)
		if err != nil {
			continue
		}
		discoveries = append(discoveries, Discovery{
			Canonical: result.Canonical,
			URLKey:    result.URLKey,
			Depth:     depth + 1,
			Reason:    "html-discovery",
		})
	}
	return discoveries
}
