package scheduler

import (
	"container/heap"
	"sync"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/scope"
	"github.com/corvid-labs/reconcrawl/internal/urlkey"
)

// itemHeap is a max-heap by Score, breaking ties by insertion order (lower
// seq first) to give FIFO-within-equal-score ordering (spec §4.5 ordering
// guarantee).
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score > h[j].Score
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Scheduler is the priority queue described in spec §4.5. It exclusively
// owns the pending set and queue (spec §3 ownership); all methods are
// intended to be called from the single orchestrator goroutine (spec §5).
type Scheduler struct {
	mu           sync.Mutex
	heap         itemHeap
	pending      map[string]struct{} // url_key -> pending
	counters     Counters
	budgets      Budgets
	scorer       *Scorer
	scope        *scope.Guard
	dedup        *dedup.Index
	nextSeq      int64
	familyLookup FamilyLookup
}

// New builds a Scheduler.
func New(b Budgets, scorer *Scorer, guard *scope.Guard, idx *dedup.Index) *Scheduler {
	return &Scheduler{
		pending: make(map[string]struct{}),
		budgets: b,
		scorer:  scorer,
		scope:   guard,
		dedup:   idx,
	}
}

// FamilyLookup is injected lazily because the Family tracker is owned by the
// orchestrator's processors, not the scheduler itself; SetFamilyLookup wires
// it once at startup.
func (s *Scheduler) SetFamilyLookup(lookup FamilyLookup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.familyLookup = lookup
}

// Enqueue canonicalizes raw (relative to base), checks scope/dedup/pending
// admission (unless opts.Force), computes a score, and inserts a new Item.
// It reports whether the item was admitted.
func (s *Scheduler) Enqueue(raw, base string, meta Meta, opts EnqueueOptions) (Item, bool, error) {
	canon, err := urlkey.Canonicalize(raw, base, urlkey.Options{})
	if err != nil {
		return Item{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.Force {
		if s.scope != nil && !s.scope.Allowed(canon.Canonical) {
			return Item{}, false, nil
		}
		if s.dedup != nil && s.dedup.SeenURL(canon.URLKey) {
			return Item{}, false, nil
		}
		if _, already := s.pending[canon.URLKey]; already {
			return Item{}, false, nil
		}
	}

	score := s.scorer.Score(canon.Canonical, meta.Depth, meta.FamilyKey, s.familyLookup)

	item := &Item{
		URLKey:    canon.URLKey,
		Canonical: canon.Canonical,
		Meta:      meta,
		Score:     score,
		seq:       s.nextSeq,
	}
	s.nextSeq++
	s.pending[canon.URLKey] = struct{}{}
	heap.Push(&s.heap, item)
	return *item, true, nil
}

// Dequeue pops the highest-score pending item, or (Item{}, false) if empty.
func (s *Scheduler) Dequeue() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.heap.Len() == 0 {
		return Item{}, false
	}
	item := heap.Pop(&s.heap).(*Item)
	delete(s.pending, item.URLKey)
	return *item, true
}

// MarkProcessed increments the counter for kind and is bookkeeping-only
// (spec §4.5); the actual dedup/manifest registration happens in the
// orchestrator and processors.
func (s *Scheduler) MarkProcessed(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case "html":
		s.counters.Pages++
	case "js":
		s.counters.JS++
	case "api":
		s.counters.API++
	}
}

// MarkSkipped is bookkeeping-only; reason is accepted for symmetry with
// spec §4.5 but the scheduler itself keeps no skip counters (the Manifest
// sink's errors[] tally covers operator-visible accounting).
func (s *Scheduler) MarkSkipped(_ Item, _ string) {}

// MarkFailed is bookkeeping-only, mirroring MarkSkipped.
func (s *Scheduler) MarkFailed(_ Item, _ error) {}

// ShouldStop evaluates the stop-conditions in spec §4.5.
func (s *Scheduler) ShouldStop(metrics StopMetrics) bool {
	if metrics.Counters.ExceedsAny(metrics.Budgets) {
		return true
	}
	if metrics.TimeMax > 0 && metrics.Elapsed >= metrics.TimeMax {
		return true
	}
	if metrics.ErrorRateMax > 0 && metrics.ErrorRate >= metrics.ErrorRateMax {
		return true
	}
	return false
}

// Counters returns a copy of the current budget counters.
func (s *Scheduler) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Budgets returns the configured budgets.
func (s *Scheduler) Budgets() Budgets {
	return s.budgets
}

// Len reports the number of currently pending items.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Snapshot returns a serializable view of pending items and counters for
// Checkpoint (spec §4.5 "snapshot()").
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, len(s.heap))
	for i, it := range s.heap {
		items[i] = *it
	}
	return Snapshot{Pending: items, Counters: s.counters}
}

// Restore re-enqueues every pending item from a Snapshot with Force=true,
// bypassing scope/dedup re-checks (spec §4.13: "they were already
// validated"), and restores the budget counters.
func (s *Scheduler) Restore(snap Snapshot) {
	s.mu.Lock()
	s.counters = snap.Counters
	s.mu.Unlock()
	for _, it := range snap.Pending {
		_, _, _ = s.Enqueue(it.Canonical, "", it.Meta, EnqueueOptions{Force: true})
	}
}
