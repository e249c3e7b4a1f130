package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexSeenURLStrictSet(t *testing.T) {
	idx := New(Options{})

	assert.False(t, idx.SeenURL("https://example.com/a"))
	idx.MarkURL("https://example.com/a")
	assert.True(t, idx.SeenURL("https://example.com/a"))
	assert.False(t, idx.SeenURL("https://example.com/b"))
	assert.Equal(t, 1, idx.URLCount())
}

func TestIndexSeenURLBloomNeverForgets(t *testing.T) {
	idx := New(Options{UseBloom: true, BloomExpectedItems: 1000, BloomFalsePositive: 0.01})

	assert.False(t, idx.SeenURL("https://example.com/a"))
	idx.MarkURL("https://example.com/a")
	assert.True(t, idx.SeenURL("https://example.com/a"))
	// Bloom-backed sets track no exact membership count.
	assert.Equal(t, 0, idx.URLCount())
}

func TestIndexSeenContent(t *testing.T) {
	idx := New(Options{})

	assert.False(t, idx.SeenContent("abc123"))
	idx.MarkContent("abc123")
	assert.True(t, idx.SeenContent("abc123"))
	assert.Equal(t, 1, idx.ContentCount())
}

func TestIndexNearDuplicateHTML(t *testing.T) {
	idx := New(Options{SimHashThreshold: 0.9})

	fp := Fingerprint("the quick brown fox jumps over the lazy dog", 4)
	assert.False(t, idx.NearDuplicateHTML(fp))

	idx.RegisterHTML(fp)
	assert.True(t, idx.NearDuplicateHTML(fp))

	distinct := Fingerprint("completely unrelated content about spreadsheets and taxes", 4)
	assert.False(t, idx.NearDuplicateHTML(distinct))
}
