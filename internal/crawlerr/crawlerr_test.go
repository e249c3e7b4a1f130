package crawlerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapAndIs(t *testing.T) {
	wrapped := New(KindFetchTimeout, "https://example.com/", ErrFetchTimeout)

	require.ErrorIs(t, wrapped, ErrFetchTimeout)
	assert.Equal(t, "fetch-timeout (https://example.com/): fetch timeout", wrapped.Error())
}

func TestErrorMessageWithoutURL(t *testing.T) {
	wrapped := New(KindCheckpointIO, "", errors.New("disk full"))
	assert.Equal(t, "checkpoint-io: disk full", wrapped.Error())
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindFetchTimeout, KindFetchHTTP5xx, KindFetchRateLimited, KindFetchDNS, KindFetchTLS, KindFetchNetwork}
	for _, k := range retryable {
		assert.Truef(t, Retryable(k), "expected %s to be retryable", k)
	}

	notRetryable := []Kind{KindInvalidURL, KindOutOfScope, KindFetchHTTP4xx, KindProcessParse}
	for _, k := range notRetryable {
		assert.Falsef(t, Retryable(k), "expected %s to not be retryable", k)
	}
}

func TestCounted(t *testing.T) {
	counted := []Kind{KindInvalidURL, KindOutOfScope, KindBodyTooLarge, KindUnsupportedContentType, KindProcessParse, KindProcessIO}
	for _, k := range counted {
		assert.Truef(t, Counted(k), "expected %s to be counted", k)
	}

	assert.False(t, Counted(KindFetchTimeout))
	assert.False(t, Counted(KindStorageCollision))
}
