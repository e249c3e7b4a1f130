package statusapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/corvid-labs/reconcrawl/internal/statusapi"
)

func TestServerHealthz(t *testing.T) {
	srv := statusapi.New(func() statusapi.Status { return statusapi.Status{} }, http.NotFoundHandler(), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServerStatusReflectsFunc(t *testing.T) {
	want := statusapi.Status{
		RunID:      "run-1",
		Target:     "https://example.com/",
		Counters:   map[string]int{"pages": 3},
		Budgets:    map[string]int{"pages": 10},
		QueueDepth: 4,
		Elapsed:    "1m0s",
	}
	srv := statusapi.New(func() statusapi.Status { return want }, http.NotFoundHandler(), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got statusapi.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got)
}

func TestServerMetricsDelegatesToHandler(t *testing.T) {
	called := false
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	srv := statusapi.New(func() statusapi.Status { return statusapi.Status{} }, metrics, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
