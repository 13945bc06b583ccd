package viewcache

import (
	jsoniter "github.com/json-iterator/go"
)

const (
	metricViewLookups = "tracker_view_lookups_total"

	labelViewKind = "view_kind"
	labelResult   = "result"

	lookupHit  = "hit"
	lookupMiss = "miss"
)

// KindCounters holds the cumulative hit/miss counts for one view kind.
type KindCounters struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// MetricsReport is a point-in-time copy of the cache's hit/miss accounting,
// keyed by view kind.
type MetricsReport struct {
	PerKind map[string]KindCounters `json:"per_kind"`
}

// JSON serialises the report for external tooling.
func (r MetricsReport) JSON() ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(r)
}

// Metrics returns a copy of the cumulative hit/miss counters per view kind.
func (vc *ViewCache) Metrics() MetricsReport {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	report := MetricsReport{PerKind: make(map[string]KindCounters)}

	for kind, hits := range vc.hits {
		counters := report.PerKind[kind]
		counters.Hits = hits
		report.PerKind[kind] = counters
	}

	for kind, misses := range vc.misses {
		counters := report.PerKind[kind]
		counters.Misses = misses
		report.PerKind[kind] = counters
	}

	return report
}

// ResetMetrics clears the hit/miss accounting without touching cached slots.
func (vc *ViewCache) ResetMetrics() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	vc.hits = make(map[string]uint64)
	vc.misses = make(map[string]uint64)
}

// recordLookup mirrors one lookup outcome to the metrics collector, if configured.
func (vc *ViewCache) recordLookup(kind string, outcome string) {
	if vc.metricsCollector == nil {
		return
	}

	vc.metricsCollector.IncrementCounter(metricViewLookups, map[string]string{
		labelViewKind: kind,
		labelResult:   outcome,
	})
}
