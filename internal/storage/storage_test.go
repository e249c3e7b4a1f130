package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathForHTMLRoot(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := s.PathFor(KindHTML, "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("pages", "index.html"), p)
}

func TestPathForHTMLSlug(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := s.PathFor(KindHTML, "https://example.com/About/Team")
	require.NoError(t, err)
	assert.Contains(t, p, "pages")
	assert.Contains(t, p, "about-team")
	assert.True(t, filepath.Ext(p) == ".html")
}

func TestPathForAPISlugifiesHostAndPath(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	p, err := s.PathFor(KindAPI, "https://api.example.com/v1/users?id=1")
	require.NoError(t, err)
	assert.Contains(t, p, "api")
	assert.Contains(t, p, "api-example-com-v1-users")
}

func TestResolveJSCollisionAppendsSuffix(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	resolved := s.ResolveJSCollision("app.js", "https://example.com/static/app.js")
	assert.NotEqual(t, filepath.Join("js", "app.js"), resolved)
	assert.Contains(t, resolved, "app-")
}

func TestWriteAtomicThenExists(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	full, err := s.WriteAtomic(filepath.Join("pages", "index.html"), []byte("<html></html>"))
	require.NoError(t, err)

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
	assert.True(t, s.Exists(filepath.Join("pages", "index.html")))
	assert.False(t, s.Exists(filepath.Join("pages", "missing.html")))
}
