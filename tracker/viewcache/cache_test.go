package viewcache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/lifecycle-tracker-go/testutil/observability/testdoubles"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/memoryengine"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/viewcache"
)

type fakeComponent struct {
	name string
}

func setup(t *testing.T, options ...viewcache.Option) (*memoryengine.TrackingStore, *viewcache.ViewCache, *memoryengine.SubjectHandle) {
	t.Helper()

	store, err := memoryengine.NewTrackingStore()
	require.NoError(t, err)

	cache, err := viewcache.New(store, options...)
	require.NoError(t, err)

	handle, err := store.Track(&fakeComponent{name: "subject"})
	require.NoError(t, err)

	return store, cache, handle
}

func Test_New_RejectsNilStore(t *testing.T) {
	_, err := viewcache.New(nil)
	assert.ErrorIs(t, err, tracker.ErrNilStore)
}

func Test_Queries_EmptyHistoryYieldsZeroValues(t *testing.T) {
	_, cache, handle := setup(t)

	events, err := cache.EventsOf(handle, tracker.CategoryUpdate)
	require.NoError(t, err)
	assert.Empty(t, events)

	has, err := cache.HasCategory(handle, tracker.CategoryInitial)
	require.NoError(t, err)
	assert.False(t, has)

	counts, err := cache.Counts(handle)
	require.NoError(t, err)
	assert.Equal(t, viewcache.CountSummary{}, counts)

	last, err := cache.LastCategory(handle)
	require.NoError(t, err)
	assert.Equal(t, "", last)

	stats, err := cache.TimingStats(handle, "actual")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Samples)
	assert.Empty(t, stats.Outliers)
}

func Test_Queries_MatchFreshRecomputationAfterEveryAppend(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	appends := []tracker.CategoryString{
		tracker.CategoryInitial,
		tracker.CategoryUpdate,
		tracker.CategoryUpdate,
		tracker.CategoryNestedUpdate,
		tracker.CategoryUpdate,
	}

	expectedUpdates := 0
	for i, category := range appends {
		require.NoError(t, store.Append(ctx, handle, category))
		if category == tracker.CategoryUpdate {
			expectedUpdates++
		}

		// Interleave queries with appends; a result computed before this
		// append must never surface again.
		counts, err := cache.Counts(handle)
		require.NoError(t, err)
		assert.Equal(t, i+1, counts.Total)
		assert.Equal(t, 1, counts.Initial)
		assert.Equal(t, i, counts.NonInitial)

		updates, err := cache.EventsOf(handle, tracker.CategoryUpdate)
		require.NoError(t, err)
		assert.Len(t, updates, expectedUpdates)

		last, err := cache.LastCategory(handle)
		require.NoError(t, err)
		assert.Equal(t, category, last)
	}

	has, err := cache.HasCategory(handle, tracker.CategoryNestedUpdate)
	require.NoError(t, err)
	assert.True(t, has)
}

func Test_Queries_CategoryFilterPreservesOrderAndIndexes(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryNestedUpdate))
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))

	updates, err := cache.EventsOf(handle, tracker.CategoryUpdate)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, 1, updates[0].SequenceIndex)
	assert.Equal(t, 3, updates[1].SequenceIndex)
}

func Test_CacheHitAccounting_OneMissThenHits(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))

	const queries = 5
	for i := 0; i < queries; i++ {
		_, err := cache.Counts(handle)
		require.NoError(t, err)
	}

	report := cache.Metrics()
	counters := report.PerKind[viewcache.KindCounts]
	assert.Equal(t, uint64(1), counters.Misses)
	assert.Equal(t, uint64(queries-1), counters.Hits)
}

func Test_CacheHit_ReturnsIdenticalResultValue(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))

	first, err := cache.EventsOf(handle, tracker.CategoryUpdate)
	require.NoError(t, err)
	second, err := cache.EventsOf(handle, tracker.CategoryUpdate)
	require.NoError(t, err)

	// A hit returns the stored result unchanged, not a re-wrapped copy.
	assert.Same(t, &first[0], &second[0])
}

func Test_Cache_AppendInvalidatesOnlyOnNextRead(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))

	counts, err := cache.Counts(handle)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total)

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))

	counts, err = cache.Counts(handle)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total, "stale slot recomputes on next access")

	report := cache.Metrics()
	assert.Equal(t, uint64(2), report.PerKind[viewcache.KindCounts].Misses)
}

func Test_Cache_SlotsAreIndependentPerParameter(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate))

	hasInitial, err := cache.HasCategory(handle, tracker.CategoryInitial)
	require.NoError(t, err)
	assert.True(t, hasInitial)

	hasNested, err := cache.HasCategory(handle, tracker.CategoryNestedUpdate)
	require.NoError(t, err)
	assert.False(t, hasNested)

	report := cache.Metrics()
	assert.Equal(t, uint64(2), report.PerKind[viewcache.KindHasCategory].Misses,
		"distinct parameters occupy distinct slots")
}

func Test_TimingStats_MeanAndOutliers(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	// Samples: 1, 1, 1, 1, 6 -> mean 2, outlier threshold 3, one outlier.
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate, tracker.T("actual", 1)))
	}
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryUpdate, tracker.T("actual", 6)))

	// An event without the timing field must not skew the statistics.
	require.NoError(t, store.Append(ctx, handle, tracker.CategoryNestedUpdate))

	stats, err := cache.TimingStats(handle, "actual")
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Samples)
	assert.InDelta(t, 2.0, stats.Mean, 0.0001)
	assert.InDelta(t, 3.0, stats.OutlierThreshold, 0.0001)
	require.Len(t, stats.Outliers, 1)
	assert.InDelta(t, 6.0, stats.Outliers[0], 0.0001)
}

func Test_Metrics_ResetClearsAccountingOnly(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))

	_, err := cache.Counts(handle)
	require.NoError(t, err)

	cache.ResetMetrics()
	report := cache.Metrics()
	assert.Empty(t, report.PerKind)

	// The cached slot survived: the next query is a hit.
	_, err = cache.Counts(handle)
	require.NoError(t, err)
	report = cache.Metrics()
	assert.Equal(t, uint64(1), report.PerKind[viewcache.KindCounts].Hits)
	assert.Equal(t, uint64(0), report.PerKind[viewcache.KindCounts].Misses)
}

func Test_Metrics_ReportSerialisesToJSON(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))
	_, err := cache.Counts(handle)
	require.NoError(t, err)

	data, err := cache.Metrics().JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), viewcache.KindCounts)
}

func Test_Metrics_MirroredToCollector(t *testing.T) {
	spy := testdoubles.NewMetricsCollectorSpy()
	store, cache, handle := setup(t, viewcache.WithMetrics(spy))
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))

	_, err := cache.Counts(handle)
	require.NoError(t, err)
	_, err = cache.Counts(handle)
	require.NoError(t, err)

	assert.Equal(t, 2, spy.CounterTotal("tracker_view_lookups_total"))
}

func Test_Queries_UsageErrors(t *testing.T) {
	_, cache, _ := setup(t)

	_, err := cache.Counts(nil)
	assert.ErrorIs(t, err, tracker.ErrNilHandle)

	otherStore, err := memoryengine.NewTrackingStore()
	require.NoError(t, err)
	foreign, err := otherStore.Track(&fakeComponent{name: "foreign"})
	require.NoError(t, err)

	_, err = cache.Counts(foreign)
	assert.ErrorIs(t, err, tracker.ErrForeignHandle)
}

func Test_Cache_ForgetAndReset(t *testing.T) {
	store, cache, handle := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, handle, tracker.CategoryInitial))

	_, err := cache.Counts(handle)
	require.NoError(t, err)

	cache.Forget(handle)

	_, err = cache.Counts(handle)
	require.NoError(t, err)

	report := cache.Metrics()
	assert.Equal(t, uint64(2), report.PerKind[viewcache.KindCounts].Misses,
		"forgotten slots recompute on next access")

	cache.Reset()
	cache.Reset()

	_, err = cache.Counts(handle)
	require.NoError(t, err)
	report = cache.Metrics()
	assert.Equal(t, uint64(3), report.PerKind[viewcache.KindCounts].Misses)
}
