package manifest

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodexWriterAppendsNDJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codex", "index.ndjson")
	w, err := NewCodexWriter(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(CodexEntry{Path: "pages/index.html", Kind: "html", SHA256: "a", URL: "https://example.com/"}))
	require.NoError(t, w.Append(CodexEntry{Path: "js/app.js", Kind: "js", SHA256: "b", URL: "https://example.com/app.js", Hints: []string{"signal=endpoints"}}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first CodexEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "pages/index.html", first.Path)

	var second CodexEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Contains(t, second.Hints, "signal=endpoints")
}

func TestCodexWriterReopenAppendsRatherThanTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.ndjson")
	w1, err := NewCodexWriter(path)
	require.NoError(t, err)
	require.NoError(t, w1.Append(CodexEntry{Path: "a", Kind: "html"}))
	require.NoError(t, w1.Close())

	w2, err := NewCodexWriter(path)
	require.NoError(t, err)
	require.NoError(t, w2.Append(CodexEntry{Path: "b", Kind: "js"}))
	require.NoError(t, w2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a"`)
	assert.Contains(t, string(data), `"b"`)
}
