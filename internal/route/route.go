// Package route implements the Content Router of spec §4.7: classifying a
// Fetch Response into the processor kind that should consume it, grounded
// on the teacher's internal/crawler/util.go content-type sniffing helpers.
package route

import (
	"path"
	"strings"
)

// Kind is a processor destination.
type Kind string

const (
	KindHTML   Kind = "html"
	KindJS     Kind = "js"
	KindAPI    Kind = "api"
	KindBinary Kind = "binary"
)

// Route classifies contentType (as reported by the Fetch Response) into a
// processor Kind. When contentType is empty, url's extension is used as a
// best-effort fallback, restricted to includeExt (lowercased, without the
// leading dot; empty means no restriction).
func Route(contentType, rawURL string, includeExt map[string]bool) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"):
		return KindHTML
	case strings.Contains(ct, "javascript"):
		return KindJS
	case strings.Contains(ct, "json"):
		return KindAPI
	case ct != "":
		return KindBinary
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(pathOf(rawURL)), "."))
	if ext == "" {
		return KindBinary
	}
	if len(includeExt) > 0 && !includeExt[ext] {
		return KindBinary
	}
	switch ext {
	case "html", "htm":
		return KindHTML
	case "js", "mjs":
		return KindJS
	case "json":
		return KindAPI
	default:
		return KindBinary
	}
}

func pathOf(rawURL string) string {
	if idx := strings.IndexAny(rawURL, "?#"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	if idx := strings.Index(rawURL, "://"); idx >= 0 {
		rawURL = rawURL[idx+3:]
	}
	if idx := strings.Index(rawURL, "/"); idx >= 0 {
		return rawURL[idx:]
	}
	return ""
}
