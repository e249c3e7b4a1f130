package orchestrator

import (
	"time"

	"github.com/corvid-labs/reconcrawl/internal/manifest"
	"github.com/corvid-labs/reconcrawl/internal/statusapi"
)

// StatusSnapshot reports the Engine's current run state for statusapi's
// /status endpoint. Safe to call concurrently with Run: the fields it reads
// are the Scheduler's own thread-safe accessors.
func (e *Engine) StatusSnapshot() statusapi.Status {
	counters := e.sched.Counters()
	budgets := e.sched.Budgets()
	return statusapi.Status{
		RunID:      e.runID,
		Target:     firstOrEmpty(e.cfg.Target.BaseURLs),
		StopReason: e.stopReason,
		Counters:   map[string]int{"pages": counters.Pages, "js": counters.JS, "api": counters.API},
		Budgets:    map[string]int{"pages": budgets.PagesMax, "js": budgets.JSMax, "api": budgets.APIMax},
		QueueDepth: e.sched.Len(),
		Elapsed:    time.Since(e.startedAt).Round(time.Second).String(),
	}
}

// FinalSnapshot returns the manifest state as of the last flush, for
// callers (the report package) that render a summary after Close.
func (e *Engine) FinalSnapshot() manifest.Snapshot {
	return e.manifestS.Snapshot(e.familyPatterns())
}

// RunID returns the UUIDv7 identifier stamped on this run's events.
func (e *Engine) RunID() string {
	return e.runID
}
