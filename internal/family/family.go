// Package family implements the Family Generalizer: reducing a canonical URL
// to a pattern key that groups structurally identical endpoints, plus the
// per-key sample-quota tracking described in spec §4.3. There is no teacher
// analogue for this component (the teacher's pipeline has no notion of URL
// families); it is built fresh in the idiom of the teacher's other pure
// string-processing helpers (internal/crawler/util.go).
package family

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	hexSegment     = regexp.MustCompile(`^[0-9a-f]{8,}$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// idLikeQueryParams are query parameter names collapsed to the {id}
// placeholder when computing the normalized query shape.
var idLikeQueryParams = map[string]struct{}{
	"id":   {},
	"item": {},
	"ref":  {},
}

const (
	entropyThreshold   = 3.5
	minSlugLenForEntropy = 12
)

// Key computes the family key for a canonical URL: host + generalized path +
// normalized query shape.
func Key(canonical string) (string, error) {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return "", err
	}
	genPath := GeneralizePath(parsed.Path)
	queryShape := normalizeQueryShape(parsed.Query())
	return strings.ToLower(parsed.Hostname()) + genPath + queryShape, nil
}

// GeneralizePath replaces numeric, hex-hash, UUID, and high-entropy slug
// segments with placeholders, preserving the rest of the path.
func GeneralizePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		segments[i] = generalizeSegment(seg)
	}
	return strings.Join(segments, "/")
}

func generalizeSegment(seg string) string {
	lower := strings.ToLower(seg)
	switch {
	case numericSegment.MatchString(seg):
		return "{id}"
	case uuidSegment.MatchString(lower):
		return "{id}"
	case hexSegment.MatchString(lower):
		return "{hash}"
	case len(seg) >= minSlugLenForEntropy && shannonEntropy(seg) > entropyThreshold:
		return "{id}"
	default:
		return seg
	}
}

// shannonEntropy computes Shannon bits-per-character entropy of s.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	total := float64(len(s))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func normalizeQueryShape(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		lowerKey := strings.ToLower(k)
		b.WriteByte('?')
		b.WriteString(lowerKey)
		b.WriteByte('=')
		if _, ok := idLikeQueryParams[lowerKey]; ok {
			b.WriteString("{id}")
			continue
		}
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		b.WriteString(strconv.Itoa(len(vals)))
	}
	return b.String()
}
