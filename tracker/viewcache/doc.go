// Package viewcache memoizes derived-view computations over a TrackingStore.
//
// One cache slot exists per (subject handle, view kind, parameter). Each slot
// stores the result together with the history version it was computed from and
// self-validates lazily on the next access, so appends stay O(1) and the
// invalidation "cost" is deferred entirely to the next read. A stale result is
// never returned: staleness is a correctness bug here, not a performance one.
//
// The per-kind hit/miss accounting is a purely observational side channel,
// resettable via ResetMetrics and exportable as JSON.
package viewcache
