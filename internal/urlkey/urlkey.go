// Package urlkey implements the URL Canonicalizer: a pure function that
// turns a raw URL (plus optional base for relative resolution) into a stable
// canonical form and a url_key hash, grounded on the teacher's
// internal/crawler/url.go (NormalizeURL) and internal/crawler/util.go
// (canonicalizeURL, hashURL), extended to the full normalization rule set.
package urlkey

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
)

// defaultNoisePatterns are dropped from the query string unless the caller
// supplies its own set via Options.DropParams.
var defaultNoisePatterns = []string{"utm_*", "gclid", "fbclid", "session*"}

// Options configures canonicalization beyond the fixed rule order.
type Options struct {
	// DropParams are glob patterns (only trailing `*` is honored) matching
	// query parameter names to drop. Defaults to utm_*, gclid, fbclid,
	// session* when nil.
	DropParams []string
}

// Result is the canonical output: the normalized URL string and its stable
// hash key.
type Result struct {
	Canonical string
	URLKey    string
}

var percentEncoded = regexp.MustCompile(`%[0-9a-fA-F]{2}`)

// Canonicalize resolves raw against base (if non-empty), then applies the
// fixed normalization pipeline described in spec §4.1. The function is pure.
func Canonicalize(raw, base string, opts Options) (Result, error) {
	target, err := url.Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("invalid url %q: %w", raw, err)
	}

	if base != "" {
		baseURL, err := url.Parse(base)
		if err != nil {
			return Result{}, fmt.Errorf("invalid base url %q: %w", base, err)
		}
		target = baseURL.ResolveReference(target)
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return Result{}, fmt.Errorf("unsupported scheme %q in %q", target.Scheme, raw)
	}

	target.Host = strings.ToLower(target.Host)
	target.Fragment = ""
	target.RawFragment = ""

	target.Path = collapseDotSegments(target.Path)
	target.Path = normalizeTrailingSlash(target.Path)

	patterns := opts.DropParams
	if patterns == nil {
		patterns = defaultNoisePatterns
	}
	target.RawQuery = sortAndFilterQuery(target.RawQuery, patterns)

	canonical := target.String()
	canonical = normalizePercentEncoding(canonical)

	sum := sha1.Sum([]byte(canonical))
	return Result{
		Canonical: canonical,
		URLKey:    hex.EncodeToString(sum[:]),
	}, nil
}

func collapseDotSegments(p string) string {
	if p == "" {
		return "/"
	}
	trailingSlash := strings.HasSuffix(p, "/") && p != "/"
	cleaned := path.Clean(p)
	if cleaned == "." {
		cleaned = "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if trailingSlash && !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}
	return cleaned
}

func normalizeTrailingSlash(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

func sortAndFilterQuery(rawQuery string, dropPatterns []string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}

	for key := range values {
		if matchesAny(key, dropPatterns) {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func matchesAny(key string, patterns []string) bool {
	lower := strings.ToLower(key)
	for _, pat := range patterns {
		pat = strings.ToLower(pat)
		if strings.HasSuffix(pat, "*") {
			if strings.HasPrefix(lower, strings.TrimSuffix(pat, "*")) {
				return true
			}
			continue
		}
		if lower == pat {
			return true
		}
	}
	return false
}

// normalizePercentEncoding uppercases the hex digits of any %XX escape
// sequence, matching the canonical form RFC 3986 prefers.
func normalizePercentEncoding(s string) string {
	return percentEncoded.ReplaceAllStringFunc(s, strings.ToUpper)
}
