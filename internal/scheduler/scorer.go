package scheduler

import (
	"net/url"
	"strings"
	"sync"
)

// Weights are the scoring coefficients from spec §4.5.1.
type Weights struct {
	Type    float64
	Depth   float64
	Novelty float64
	Family  float64
	Noise   float64
}

// DefaultWeights matches spec §4.5.1's defaults.
func DefaultWeights() Weights {
	return Weights{Type: 0.35, Depth: 0.35, Novelty: 0.2, Family: 0.3, Noise: 0.15}
}

var typeMarkers = []string{"/api", "/graphql", "/auth", "/admin", "/config", "/v1", "/v2"}

var noiseQueryKeys = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "gclid": {}, "fbclid": {},
	"cursor": {}, "session": {},
}

// Scorer computes the score ∈ [0,1] for a candidate URL, tracking which
// host/subdomain and first-path-segment combinations have been seen before
// in this run for the novelty term.
type Scorer struct {
	mu      sync.Mutex
	weights Weights
	seen    map[string]struct{}
}

// NewScorer builds a Scorer with the given weights (DefaultWeights() if
// zero-valued).
func NewScorer(w Weights) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Scorer{weights: w, seen: make(map[string]struct{})}
}

// FamilyLookup resolves the current hit count for a family key, used for the
// family-saturation penalty.
type FamilyLookup func(familyKey string) (count int, max int)

// Score computes the clipped weighted sum described in spec §4.5.1.
func (s *Scorer) Score(canonical string, depth int, familyKey string, lookup FamilyLookup) float64 {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return 0
	}

	var score float64
	if hasTypeMarker(parsed.Path) {
		score += s.weights.Type
	}
	score += s.weights.Depth * (1.0 / float64(1+depth))
	if s.isNovel(parsed) {
		score += s.weights.Novelty
	}
	if lookup != nil {
		count, max := lookup(familyKey)
		if max > 0 {
			ratio := float64(count) / float64(max)
			if ratio > 1 {
				ratio = 1
			}
			score -= s.weights.Family * ratio
		}
	}
	if isNoisy(parsed) {
		score -= s.weights.Noise
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func hasTypeMarker(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range typeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isNovel reports whether the URL's host or its first path segment has not
// been observed yet this run, recording it as seen either way.
func (s *Scorer) isNovel(parsed *url.URL) bool {
	host := strings.ToLower(parsed.Hostname())
	segments := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)
	firstSegment := ""
	if len(segments) > 0 {
		firstSegment = segments[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	novel := false
	if _, ok := s.seen[host]; !ok {
		novel = true
		s.seen[host] = struct{}{}
	}
	key := host + "/" + firstSegment
	if _, ok := s.seen[key]; !ok {
		novel = true
		s.seen[key] = struct{}{}
	}
	return novel
}

func isNoisy(parsed *url.URL) bool {
	for key := range parsed.Query() {
		lower := strings.ToLower(key)
		if _, ok := noiseQueryKeys[lower]; ok {
			return true
		}
		if strings.HasPrefix(lower, "utm_") {
			return true
		}
	}
	return false
}
