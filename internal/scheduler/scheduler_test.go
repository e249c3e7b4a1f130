package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/reconcrawl/internal/dedup"
	"github.com/corvid-labs/reconcrawl/internal/scheduler"
	"github.com/corvid-labs/reconcrawl/internal/scope"
)

func newScheduler(t *testing.T, b scheduler.Budgets) *scheduler.Scheduler {
	t.Helper()
	guard, err := scope.New(scope.Config{AllowedDomains: []string{"example.org"}})
	require.NoError(t, err)
	idx := dedup.New(dedup.Options{})
	return scheduler.New(b, scheduler.NewScorer(scheduler.DefaultWeights()), guard, idx)
}

func TestScheduler_OrderingByScoreThenFIFO(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})

	_, ok, err := s.Enqueue("https://example.org/about-us", "", scheduler.Meta{Depth: 1}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.Enqueue("https://example.org/api/v1/users", "", scheduler.Meta{Depth: 1}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	first, ok := s.Dequeue()
	require.True(t, ok)
	require.Equal(t, "https://example.org/api/v1/users", first.Canonical)

	second, ok := s.Dequeue()
	require.True(t, ok)
	require.Equal(t, "https://example.org/about-us", second.Canonical)
}

func TestScheduler_RejectsOutOfScope(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})

	_, ok, err := s.Enqueue("https://evil.example.com/x", "", scheduler.Meta{}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestScheduler_RejectsDuplicateEnqueue(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})

	_, ok, err := s.Enqueue("https://example.org/a", "", scheduler.Meta{}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.Enqueue("https://example.org/a", "", scheduler.Meta{}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.False(t, ok, "already-pending URL must not be re-admitted")
}

func TestScheduler_ForceBypassesScopeAndDedup(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})

	_, ok, err := s.Enqueue("https://evil.example.com/x", "", scheduler.Meta{}, scheduler.EnqueueOptions{Force: true})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestScheduler_ShouldStopOnBudget(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 2})
	s.MarkProcessed("html")
	s.MarkProcessed("html")

	require.True(t, s.ShouldStop(scheduler.StopMetrics{
		Counters: s.Counters(),
		Budgets:  s.Budgets(),
	}))
}

func TestScheduler_SnapshotRestoreRoundTrip(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})
	_, _, err := s.Enqueue("https://example.org/a", "", scheduler.Meta{Depth: 2}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	s.MarkProcessed("html")

	snap := s.Snapshot()
	require.Len(t, snap.Pending, 1)

	restored := newScheduler(t, scheduler.Budgets{PagesMax: 100})
	restored.Restore(snap)
	require.Equal(t, 1, restored.Len())
	require.Equal(t, snap.Counters, restored.Counters())
}

func TestScheduler_FamilySaturationLowersScore(t *testing.T) {
	s := newScheduler(t, scheduler.Budgets{PagesMax: 100})
	s.SetFamilyLookup(func(string) (int, int) { return 10, 3 })

	item, ok, err := s.Enqueue("https://example.org/store/item/9", "", scheduler.Meta{FamilyKey: "example.org/store/item/{id}"}, scheduler.EnqueueOptions{})
	require.NoError(t, err)
	require.True(t, ok)
	require.Less(t, item.Score, 1.0)
}
