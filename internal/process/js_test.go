package process

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/storage"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

func newJSProcessor(t *testing.T) (*JSProcessor, *storage.Store) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	idx := dedup.New(dedup.Options{})
	return NewJSProcessor(idx, store, urlkey.Options{}), store
}

const sampleJS = `
fetch('/api/v1/widgets').then(r => r.json());
axios.post('/api/v2/orders', payload);
graphql('/graphql');
const raw = "https://cdn.example.com/assets/bundle.js";
`

func TestJSProcessorExtractsEndpoints(t *testing.T) {
	p, _ := newJSProcessor(t)

	result, err := p.Process("https://example.com/static/app.js", []byte(sampleJS), 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeArtifact, result.Outcome)

	var canon []string
	for _, d := range result.Discoveries {
		canon = append(canon, d.Canonical)
		assert.Equal(t, "js-endpoint", d.Reason)
		assert.Equal(t, 2, d.Depth)
	}
	assert.Contains(t, canon, "https://example.com/api/v1/widgets")
	assert.Contains(t, canon, "https://example.com/api/v2/orders")
	assert.Contains(t, canon, "https://example.com/graphql")
	assert.Contains(t, canon, "https://cdn.example.com/assets/bundle.js")
}

func TestJSProcessorContentHashDuplicate(t *testing.T) {
	p, _ := newJSProcessor(t)

	_, err := p.Process("https://example.com/a.js", []byte(sampleJS), 0)
	require.NoError(t, err)

	result, err := p.Process("https://example.com/b.js", []byte(sampleJS), 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, result.Outcome)
}

func TestJSProcessorFingerprintFamilyCollapsesRepeats(t *testing.T) {
	p, _ := newJSProcessor(t)

	first, err := p.Process("https://example.com/static/main.8f3c21.js", []byte(sampleJS), 0)
	require.NoError(t, err)
	require.Equal(t, OutcomeArtifact, first.Outcome)

	second, err := p.Process("https://example.com/static/main.aa11bb.js", []byte(sampleJS+"\n// build 2"), 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome, "same fingerprint family keeps only the first copy")
}

func TestJSProcessorResolvesBasenameCollision(t *testing.T) {
	p, store := newJSProcessor(t)

	first, err := p.Process("https://a.example.com/vendor.js", []byte("var a = 1;"), 0)
	require.NoError(t, err)
	require.Equal(t, OutcomeArtifact, first.Outcome)
	assert.Equal(t, filepath.Join("js", "vendor.js"), first.Artifact.Path)

	second, err := p.Process("https://b.example.com/vendor.js", []byte("var b = 2;"), 0)
	require.NoError(t, err)
	require.Equal(t, OutcomeArtifact, second.Outcome)
	assert.NotEqual(t, first.Artifact.Path, second.Artifact.Path)
	assert.True(t, store.Exists(first.Artifact.Path))
	assert.True(t, store.Exists(second.Artifact.Path))
}
