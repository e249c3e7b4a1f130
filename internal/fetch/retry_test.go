package fetch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/corvid-labs/reconcrawl/internal/crawlerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyShouldRetry(t *testing.T) {
	policy := NewRetryPolicy(3)

	timeoutErr := &net.DNSError{IsTimeout: true, Err: "timeout"}
	assert.True(t, policy.ShouldRetry(timeoutErr, 0))
	assert.True(t, policy.ShouldRetry(timeoutErr, 2))
	assert.False(t, policy.ShouldRetry(timeoutErr, 3), "attempt count exhausted")

	assert.False(t, policy.ShouldRetry(nil, 0))
	assert.False(t, policy.ShouldRetry(context.Canceled, 0), "cancellation is never retried")
	assert.False(t, policy.ShouldRetry(context.DeadlineExceeded, 0))
}

func TestRetryPolicyShouldRetryWrappedTypedError(t *testing.T) {
	policy := NewRetryPolicy(3)
	dnsErr := &net.DNSError{IsTimeout: true, Err: "no such host"}
	wrapped := crawlerr.New(crawlerr.KindFetchDNS, "http://example.com", dnsErr)
	assert.True(t, policy.ShouldRetry(wrapped, 0))

	notFound := crawlerr.New(crawlerr.KindFetchHTTP4xx, "http://example.com", errors.New("http status 404"))
	assert.False(t, policy.ShouldRetry(notFound, 0), "4xx other than 408/429 is not retried")
}

func TestRetryPolicyBackoffGrowsAndClamps(t *testing.T) {
	policy := NewRetryPolicy(5)
	policy.BaseDelay = 100 * time.Millisecond
	policy.MaxDelay = 400 * time.Millisecond

	first := policy.Backoff(0)
	fourth := policy.Backoff(4)

	require.LessOrEqual(t, first, policy.BaseDelay)
	assert.LessOrEqual(t, fourth, policy.MaxDelay)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, crawlerr.KindFetchDNS, Classify(&net.DNSError{Err: "no such host"}))
	assert.Equal(t, crawlerr.KindFetchTimeout, Classify(&net.DNSError{IsTimeout: true, Err: "timeout"}))
	assert.Equal(t, crawlerr.KindFetchNetwork, Classify(errors.New("boom")))
}

func TestStatusKindAndRetryable(t *testing.T) {
	assert.Equal(t, crawlerr.KindFetchRateLimited, StatusKind(429))
	assert.Equal(t, crawlerr.KindFetchHTTP4xx, StatusKind(404))
	assert.Equal(t, crawlerr.KindFetchHTTP5xx, StatusKind(503))

	assert.True(t, StatusRetryable(429))
	assert.True(t, StatusRetryable(503))
	assert.True(t, StatusRetryable(408))
	assert.False(t, StatusRetryable(404))
}
