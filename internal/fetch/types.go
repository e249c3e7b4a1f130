// Package fetch implements the Fetcher Interface contract of spec §4.6: an
// abstract transport combining an HTTP leg (Colly), an optional headless
// render leg (chromedp), a global rate limiter, per-host robots.txt policy,
// and retry-with-backoff, grounded on the teacher's
// internal/crawler/fetcher_colly.go, internal/crawler/renderer_chromedp.go,
// internal/crawler/robotspolicy.go, and internal/crawler/retry_policy.go.
package fetch

import (
	"net/http"
	"time"
)

// WaitFor selects the render strategy used when a headless fetch is issued.
type WaitFor string

// Supported wait strategies (spec §4.6 "strategy options").
const (
	WaitDOMContentLoaded WaitFor = "domcontentloaded"
	WaitNetworkIdle      WaitFor = "networkidle"
)

// Strategy configures a single Fetch call.
type Strategy struct {
	WaitFor      WaitFor
	Timeout      time.Duration
	MaxBodyBytes int64
	Render       bool // true routes through the chromedp leg instead of the HTTP leg
}

// Subresource is a resource captured alongside a rendered page (spec §3
// "Fetch Response").
type Subresource struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Response is the Fetch Response entity of spec §3.
type Response struct {
	FinalURL      string
	Status        int
	Headers       http.Header
	ContentType   string
	Body          []byte
	RenderedHTML  string // non-empty only when Strategy.Render was used
	Subresources  []Subresource
	Attempts      int
	Duration      time.Duration
}
