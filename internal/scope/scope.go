// Package scope implements the Scope Guard: accept/reject a canonical URL by
// host, scheme, path extension, and disallowed-path wildcards. It is grounded
// on the teacher's internal/crawler/blocklist.go (exact/suffix host matching
// idiom), extended with the wildcard-to-regex path matching and extension
// filtering spec §4.2 requires.
package scope

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Config carries the scope rules evaluated, in order, by Guard.Allowed.
type Config struct {
	AllowedDomains    []string
	DisallowedPaths   []string // `*` wildcard glob patterns
	ExcludeExtensions []string
}

// Guard evaluates canonical URLs against a Config.
type Guard struct {
	allowed    []string
	disallowed []*regexp.Regexp
	excludeExt map[string]struct{}
}

// New compiles a Config into a Guard. Wildcard patterns are compiled once;
// `*` becomes `.*`, every other regex metacharacter is escaped, and the
// pattern is anchored at both ends, case-insensitive.
func New(cfg Config) (*Guard, error) {
	g := &Guard{
		allowed:    normalizeDomains(cfg.AllowedDomains),
		excludeExt: make(map[string]struct{}, len(cfg.ExcludeExtensions)),
	}
	for _, ext := range cfg.ExcludeExtensions {
		g.excludeExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	for _, pattern := range cfg.DisallowedPaths {
		re, err := compileWildcard(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile disallowed path %q: %w", pattern, err)
		}
		g.disallowed = append(g.disallowed, re)
	}
	return g, nil
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		out = append(out, strings.ToLower(strings.TrimSpace(d)))
	}
	return out
}

// compileWildcard turns a `*`-glob into an anchored, case-insensitive regex.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		if r == '*' {
			b.WriteString(".*")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Allowed evaluates a canonical URL against the guard's rules, in the order
// specified by §4.2: scheme, allowed-domain membership, excluded extension,
// disallowed-path wildcard.
func (g *Guard) Allowed(canonical string) bool {
	parsed, err := url.Parse(canonical)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if !g.hostAllowed(parsed.Hostname()) {
		return false
	}
	if g.extensionExcluded(parsed.Path) {
		return false
	}
	if g.pathDisallowed(parsed.Path) {
		return false
	}
	return true
}

func (g *Guard) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range g.allowed {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (g *Guard) extensionExcluded(p string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return false
	}
	_, excluded := g.excludeExt[ext]
	return excluded
}

func (g *Guard) pathDisallowed(p string) bool {
	for _, re := range g.disallowed {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}
