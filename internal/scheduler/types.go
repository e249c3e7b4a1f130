// Package scheduler implements the priority-queue Scheduler (spec §4.5):
// score-descending ordering with FIFO tie-break, stop-condition evaluation,
// and checkpoint snapshot/restore. There is no teacher analogue (the
// teacher's Colly collector has no explicit queue); it is built fresh in the
// idiom of the teacher's other small, single-purpose types (plain structs,
// constructor functions, no hidden global state).
package scheduler

import "time"

// Meta carries the bookkeeping attached to a Work Item (spec §3). FamilyKey
// is populated by the caller (the orchestrator, via internal/family) before
// enqueue so the scorer's family-saturation penalty (§4.5.1) has something
// to look up; it is not computed by the scheduler itself.
type Meta struct {
	Depth     int
	Reason    string
	Parent    string
	FamilyKey string
}

// Item is a Work Item (spec §3): a pending URL plus its priority score.
type Item struct {
	URLKey    string
	Canonical string
	Meta      Meta
	Score     float64

	seq int64 // insertion order, used only for FIFO tie-break
}

// EnqueueOptions modifies Enqueue's admission checks.
type EnqueueOptions struct {
	// Force bypasses the out-of-scope, already-visited, and already-pending
	// checks. Used for seeds and checkpoint restore (spec §4.5, §4.13).
	Force bool
}

// Budgets mirrors config.BudgetsConfig without importing the config
// package, keeping the scheduler dependency-free of configuration shape.
type Budgets struct {
	PagesMax int
	JSMax    int
	APIMax   int
}

// Counters tracks the monotone per-kind artifact counts (spec §3 "Budget
// Counters").
type Counters struct {
	Pages int
	JS    int
	API   int
}

// ExceedsAny reports whether any counter has reached its budget max.
func (c Counters) ExceedsAny(b Budgets) bool {
	if b.PagesMax > 0 && c.Pages >= b.PagesMax {
		return true
	}
	if b.JSMax > 0 && c.JS >= b.JSMax {
		return true
	}
	if b.APIMax > 0 && c.API >= b.APIMax {
		return true
	}
	return false
}

// StopMetrics is the snapshot ShouldStop evaluates against (spec §4.5
// "shouldStop(metrics)").
type StopMetrics struct {
	Counters     Counters
	Budgets      Budgets
	Elapsed      time.Duration
	TimeMax      time.Duration
	ErrorRate    float64
	ErrorRateMax float64
}

// Snapshot is the serializable view of pending work handed to Checkpoint
// (spec §4.5 "snapshot()/restore()", §4.13).
type Snapshot struct {
	Pending  []Item
	Counters Counters
}
