package fetch

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/crawlerr"
)

// RetryPolicy implements the exponential-backoff-with-jitter policy of spec
// §4.6/§7, grounded on the teacher's internal/crawler/retry_policy.go.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy builds a RetryPolicy from crawl.max_retries (3 when unset),
// always with the teacher's 250ms base and 5s max delay.
func NewRetryPolicy(maxAttempts int) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// ShouldRetry takes err's crawlerr.Kind (from a wrapped *crawlerr.Error, or
// via Classify otherwise) and reports whether the taxonomy (spec §7) calls
// for another attempt.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var typed *crawlerr.Error
	if errors.As(err, &typed) && typed.Kind != "" {
		return crawlerr.Retryable(typed.Kind)
	}
	return crawlerr.Retryable(Classify(err))
}

// Backoff returns the jittered wait duration before the next attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Classify maps a transport-level error to the taxonomy of spec §7. HTTP
// status errors are classified by StatusKind instead, since they carry no
// Go error of their own.
func Classify(err error) crawlerr.Kind {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return crawlerr.KindFetchTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return crawlerr.KindFetchDNS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return crawlerr.KindFetchNetwork
		}
	}
	return crawlerr.KindFetchNetwork
}

// StatusKind maps an HTTP response status to the taxonomy of spec §7.
func StatusKind(status int) crawlerr.Kind {
	switch {
	case status == 429:
		return crawlerr.KindFetchRateLimited
	case status == 401 || status == 403:
		return crawlerr.KindFetchHTTP4xx
	case status >= 400 && status < 500:
		return crawlerr.KindFetchHTTP4xx
	case status >= 500:
		return crawlerr.KindFetchHTTP5xx
	default:
		return ""
	}
}

// StatusRetryable reports whether an HTTP status code should be retried per
// spec §4.6: 429 and 5xx retry; 408 also retries; other 4xx do not.
func StatusRetryable(status int) bool {
	if status == 408 || status == 429 {
		return true
	}
	return status >= 500
}
