package viewcache

import (
	"sync"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/memoryengine"
)

// View kind names, used as slot keys and metrics labels.
const (
	KindEventsOf     = "events_of"
	KindHasCategory  = "has_category"
	KindCounts       = "counts"
	KindLastCategory = "last_category"
	KindTimingStats  = "timing_stats"
)

// paramSeparator joins view kind and parameter into one slot key.
// Unit separator, cannot occur in a category or timing field name by convention.
const paramSeparator = "\x1f"

// slot memoizes one derived view result together with the history version it
// was computed from. A slot self-validates lazily on the next access; there is
// no eager invalidation walk on append.
type slot struct {
	result            any
	computedAtVersion tracker.HistoryVersionUint
}

// ViewCache memoizes derived-view computations over a TrackingStore's
// histories. A cached result is returned only while the history it was
// computed from is unchanged; any append makes the next access recompute.
//
// Queries against a subject without recorded history return the view kind's
// zero value. Errors are reported for usage problems only (nil, foreign, or
// disposed handles).
type ViewCache struct {
	mu               sync.Mutex
	store            *memoryengine.TrackingStore
	slots            map[*memoryengine.SubjectHandle]map[string]slot
	hits             map[string]uint64
	misses           map[string]uint64
	metricsCollector tracker.MetricsCollector
}

// Option defines a functional option for configuring a ViewCache.
type Option func(*ViewCache) error

// WithMetrics mirrors the cache's hit/miss accounting to a metrics collector.
// The side channel is purely observational and never influences which result
// a query returns.
func WithMetrics(collector tracker.MetricsCollector) Option {
	return func(vc *ViewCache) error {
		vc.metricsCollector = collector
		return nil
	}
}

// New creates a ViewCache over the given store with optional configuration.
func New(store *memoryengine.TrackingStore, options ...Option) (*ViewCache, error) {
	if store == nil {
		return nil, tracker.ErrNilStore
	}

	vc := &ViewCache{
		store:  store,
		slots:  make(map[*memoryengine.SubjectHandle]map[string]slot),
		hits:   make(map[string]uint64),
		misses: make(map[string]uint64),
	}

	for _, option := range options {
		if err := option(vc); err != nil {
			return nil, err
		}
	}

	return vc, nil
}

// EventsOf returns the category-filtered subsequence of the subject's history.
// The returned slice is the cached result; callers must treat it as read-only.
func (vc *ViewCache) EventsOf(handle *memoryengine.SubjectHandle, category tracker.CategoryString) (tracker.LifecycleEvents, error) {
	result, err := vc.query(handle, KindEventsOf, category, func(history *tracker.History) any {
		return projectEventsOf(history, category)
	})
	if err != nil {
		return nil, err
	}

	return result.(tracker.LifecycleEvents), nil
}

// HasCategory reports whether any event of the category was recorded for the subject.
func (vc *ViewCache) HasCategory(handle *memoryengine.SubjectHandle, category tracker.CategoryString) (bool, error) {
	result, err := vc.query(handle, KindHasCategory, category, func(history *tracker.History) any {
		return projectHasCategory(history, category)
	})
	if err != nil {
		return false, err
	}

	return result.(bool), nil
}

// Counts returns total, initial, and non-initial event counts for the subject.
func (vc *ViewCache) Counts(handle *memoryengine.SubjectHandle) (CountSummary, error) {
	result, err := vc.query(handle, KindCounts, "", func(history *tracker.History) any {
		return projectCounts(history)
	})
	if err != nil {
		return CountSummary{}, err
	}

	return result.(CountSummary), nil
}

// LastCategory returns the category of the subject's most recent event, or "" without events.
func (vc *ViewCache) LastCategory(handle *memoryengine.SubjectHandle) (tracker.CategoryString, error) {
	result, err := vc.query(handle, KindLastCategory, "", func(history *tracker.History) any {
		return projectLastCategory(history)
	})
	if err != nil {
		return "", err
	}

	return result.(tracker.CategoryString), nil
}

// TimingStats returns mean and outlier statistics for one named timing field.
func (vc *ViewCache) TimingStats(handle *memoryengine.SubjectHandle, field string) (TimingStats, error) {
	result, err := vc.query(handle, KindTimingStats, field, func(history *tracker.History) any {
		return projectTimingStats(history, field)
	})
	if err != nil {
		return TimingStats{}, err
	}

	return result.(TimingStats), nil
}

// Forget drops all cached slots for one handle, typically after the store
// disposed the subject.
func (vc *ViewCache) Forget(handle *memoryengine.SubjectHandle) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	delete(vc.slots, handle)
}

// Reset drops every cached slot. Idempotent; the hit/miss accounting is
// reset separately via ResetMetrics.
func (vc *ViewCache) Reset() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	vc.slots = make(map[*memoryengine.SubjectHandle]map[string]slot)
}

// query implements the shared slot lookup: hit when a slot exists and was
// computed at the history's current version, otherwise recompute and store.
func (vc *ViewCache) query(
	handle *memoryengine.SubjectHandle,
	kind string,
	param string,
	compute func(history *tracker.History) any,
) (any, error) {

	// The snapshot carries data and version atomically, so a concurrent
	// append cannot slip between the staleness check and the recompute.
	history, err := vc.store.Snapshot(handle)
	if err != nil {
		return nil, err
	}

	key := kind + paramSeparator + param

	vc.mu.Lock()
	if cached, ok := vc.slots[handle][key]; ok && cached.computedAtVersion == history.Version() {
		vc.hits[kind]++
		vc.mu.Unlock()
		vc.recordLookup(kind, lookupHit)

		return cached.result, nil
	}
	vc.mu.Unlock()

	result := compute(history)

	vc.mu.Lock()
	subjectSlots, ok := vc.slots[handle]
	if !ok {
		subjectSlots = make(map[string]slot)
		vc.slots[handle] = subjectSlots
	}
	subjectSlots[key] = slot{result: result, computedAtVersion: history.Version()}
	vc.misses[kind]++
	vc.mu.Unlock()
	vc.recordLookup(kind, lookupMiss)

	return result, nil
}
