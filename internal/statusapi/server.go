// Package statusapi exposes a small read-only HTTP surface over a running
// crawl: liveness, Prometheus metrics, and a JSON status snapshot. Grounded
// on the teacher's internal/api/server.go chi wiring (router, middleware
// stack, /healthz), stripped of every write route (job submission,
// cancellation) since a single-run crawler has nothing to accept commands
// for — the operator only ever observes it.
package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Status is the JSON shape served at /status, supplied by the caller so
// this package stays decoupled from the orchestrator's Engine type.
type Status struct {
	RunID      string         `json:"run_id"`
	Target     string         `json:"target"`
	StopReason string         `json:"stop_reason,omitempty"`
	Counters   map[string]int `json:"counters"`
	Budgets    map[string]int `json:"budgets"`
	QueueDepth int            `json:"queue_depth"`
	Elapsed    string         `json:"elapsed"`
}

// StatusFunc produces a fresh Status snapshot on every request.
type StatusFunc func() Status

// Server is the read-only status HTTP surface.
type Server struct {
	router chi.Router
}

// New builds a Server. metrics is typically telemetry.Handler(); statusFn
// is called once per /status request.
func New(statusFn StatusFunc, metrics http.Handler, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics)
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusFn())
	})

	return &Server{router: r}
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
