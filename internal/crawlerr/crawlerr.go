// Package crawlerr holds the typed error taxonomy shared across the crawl
// pipeline, following the style of the teacher's retry_policy.go: sentinel
// errors compared with errors.Is, plus a small Kind enum for counters that
// need a category without a full error value (e.g. manifest error tallies).
package crawlerr

import "errors"

// Kind categorizes an error for counting and policy decisions. Values mirror
// the taxonomy table.
type Kind string

const (
	KindInvalidURL             Kind = "invalid-url"
	KindOutOfScope             Kind = "out-of-scope"
	KindBodyTooLarge           Kind = "body-too-large"
	KindUnsupportedContentType Kind = "unsupported-content-type"
	KindFetchTimeout           Kind = "fetch-timeout"
	KindFetchDNS               Kind = "fetch-dns"
	KindFetchTLS               Kind = "fetch-tls"
	KindFetchNetwork           Kind = "fetch-network"
	KindFetchHTTP4xx           Kind = "fetch-http-4xx"
	KindFetchHTTP5xx           Kind = "fetch-http-5xx"
	KindFetchRateLimited       Kind = "fetch-rate-limited"
	KindFetchAntiBot           Kind = "fetch-anti-bot"
	KindProcessParse           Kind = "process-parse"
	KindProcessIO              Kind = "process-io"
	KindStorageCollision       Kind = "storage-collision"
	KindCheckpointIO           Kind = "checkpoint-io"
)

var (
	ErrInvalidURL             = errors.New("invalid url")
	ErrOutOfScope             = errors.New("out of scope")
	ErrBodyTooLarge           = errors.New("body too large")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrFetchTimeout           = errors.New("fetch timeout")
	ErrFetchDNS               = errors.New("fetch dns failure")
	ErrFetchTLS               = errors.New("fetch tls failure")
	ErrFetchNetwork           = errors.New("fetch network failure")
	ErrFetchHTTP4xx           = errors.New("fetch http 4xx")
	ErrFetchHTTP5xx           = errors.New("fetch http 5xx")
	ErrFetchRateLimited       = errors.New("fetch rate limited")
	ErrFetchAntiBot           = errors.New("fetch anti-bot detected")
	ErrAccessDenied           = errors.New("access denied")
	ErrProcessParse           = errors.New("process parse error")
	ErrProcessIO              = errors.New("process io error")
	ErrStorageCollision       = errors.New("storage collision")
	ErrCheckpointIO           = errors.New("checkpoint io error")
)

// Error wraps an underlying cause with a Kind, carrying enough context for
// the orchestrator to decide whether to retry, count, or surface it.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + " (" + e.URL + "): " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed Error for the given kind, url, and cause.
func New(kind Kind, url string, cause error) *Error {
	return &Error{Kind: kind, URL: url, Err: cause}
}

// Retryable reports whether the taxonomy says this kind should be retried by
// the Fetcher's backoff policy (§4.6/§7): timeouts, 5xx, rate limiting, and
// DNS/TLS failures are retried; other 4xx and scope/validation errors are
// not.
func Retryable(kind Kind) bool {
	switch kind {
	case KindFetchTimeout, KindFetchHTTP5xx, KindFetchRateLimited, KindFetchDNS, KindFetchTLS, KindFetchNetwork:
		return true
	default:
		return false
	}
}

// Counted reports whether the kind should be counted silently rather than
// surfaced as a fatal error, matching §7's "silently skipped; counted"
// category.
func Counted(kind Kind) bool {
	switch kind {
	case KindInvalidURL, KindOutOfScope, KindBodyTooLarge, KindUnsupportedContentType,
		KindProcessParse, KindProcessIO:
		return true
	default:
		return false
	}
}
