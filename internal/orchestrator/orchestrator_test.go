package orchestrator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/corvid-labs/reconcrawl/internal/config"
	"github.com/corvid-labs/reconcrawl/internal/orchestrator"
	"github.com/corvid-labs/reconcrawl/internal/progress"
)

func testConfig(t *testing.T, seed string) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		Target: config.TargetConfig{
			BaseURLs:       []string{seed},
			AllowedDomains: []string{"127.0.0.1"},
		},
		Crawl: config.CrawlConfig{
			DepthMax:     3,
			Budgets:      config.BudgetsConfig{PagesMax: 1},
			TimeoutMs:    2000,
			RateLimitRPS: 50,
			Concurrency:  2,
			MaxRetries:   1,
			MaxBodyBytes: 1 << 20,
			UserAgent:    "reconcrawl-test/1.0",
		},
		Heuristics: config.HeuristicsConfig{
			FamilyMaxSamples:   2,
			SimhashShingleSize: 4,
			HTMLSimilarityDrop: 0.92,
		},
		Content: config.ContentConfig{},
		Output: config.OutputConfig{
			RootDir:         root,
			ManifestBackend: "local",
			ArtifactBackend: "local",
		},
	}
}

func TestEngineRunStopsAtPagesBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>hello</h1><a href="/other">other</a></body></html>`))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/")
	logger := zaptest.NewLogger(t)
	hub := progress.NewHub(progress.Config{Logger: logger})
	defer hub.Close(context.Background())

	engine, err := orchestrator.Build(context.Background(), cfg, logger, orchestrator.Deps{Hub: hub})
	require.NoError(t, err)

	err = engine.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, engine.Close(context.Background()))

	status := engine.StatusSnapshot()
	assert.Equal(t, "pages_max", status.StopReason)
	assert.Equal(t, 1, status.Counters["pages"])

	_, statErr := os.Stat(filepath.Join(cfg.Output.RootDir, "manifest.json"))
	assert.NoError(t, statErr)
}

func TestEngineRestoresFromCheckpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>page</body></html>`))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/")
	logger := zaptest.NewLogger(t)
	hub := progress.NewHub(progress.Config{Logger: logger})

	engine, err := orchestrator.Build(context.Background(), cfg, logger, orchestrator.Deps{Hub: hub})
	require.NoError(t, err)
	require.NoError(t, engine.Run(context.Background()))
	require.NoError(t, engine.Close(context.Background()))

	// A second Build against the same root_dir restores the dedup seen-set
	// from manifest.json and the budget counters from checkpoint.json, so
	// the resumed run saves nothing new and still reports the first run's
	// single page.
	hub2 := progress.NewHub(progress.Config{Logger: logger})
	defer hub2.Close(context.Background())
	resumed, err := orchestrator.Build(context.Background(), cfg, logger, orchestrator.Deps{Hub: hub2})
	require.NoError(t, err)
	require.NoError(t, resumed.Run(context.Background()))
	require.NoError(t, resumed.Close(context.Background()))

	status := resumed.StatusSnapshot()
	assert.Equal(t, 1, status.Counters["pages"])
}
