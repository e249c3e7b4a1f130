package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/reconcrawl/internal/manifest"
	"github.com/corvid-labs/reconcrawl/internal/report"
)

func TestWriteIndexRendersSummary(t *testing.T) {
	snap := manifest.Snapshot{
		Metadata: manifest.Metadata{
			Target:      "https://example.com/",
			StartedAt:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			FinishedAt:  time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC),
			ConfigHash:  "deadbeef",
			DepthMax:    3,
			BudgetsUsed: map[string]int{"pages": 10},
			BudgetsMax:  map[string]int{"pages": 10},
		},
		Files: []manifest.ArtifactRecord{
			{Kind: "html", SourceURL: "https://example.com/", Path: "pages/index.html", SHA256: "abc"},
		},
		Patterns: map[string]manifest.PatternStat{
			"/product/:id": {Count: 5, SamplesSaved: 2, Skipped: 3},
		},
		Endpoints: []manifest.Endpoint{
			{URL: "https://example.com/api/v1/products", Source: "html", Score: 0.8},
		},
		Errors: []manifest.ErrorCount{
			{Kind: "fetch-timeout", Count: 2},
		},
	}

	var buf strings.Builder
	require.NoError(t, report.WriteIndex(&buf, "run-1", snap))

	out := buf.String()
	assert.Contains(t, out, "Crawl Report")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "https://example.com/")
	assert.Contains(t, out, "/product/:id")
	assert.Contains(t, out, "https://example.com/api/v1/products")
	assert.Contains(t, out, "fetch-timeout")
}

func TestWriteIndexHandlesEmptySections(t *testing.T) {
	snap := manifest.Snapshot{
		Metadata: manifest.Metadata{Target: "https://example.com/"},
	}

	var buf strings.Builder
	require.NoError(t, report.WriteIndex(&buf, "run-2", snap))

	out := buf.String()
	assert.Contains(t, out, "_none observed_")
	assert.Contains(t, out, "_none recorded_")
}
