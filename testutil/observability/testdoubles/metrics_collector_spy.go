package testdoubles

import (
	"sync"
	"time"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// SpyMetricRecord represents one recorded metrics call.
type SpyMetricRecord struct {
	Kind     string // "duration", "counter", or "value"
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// MetricsCollectorSpy is a tracker.MetricsCollector implementation that captures
// metrics calls for testing.
type MetricsCollectorSpy struct {
	mu      sync.Mutex
	records []SpyMetricRecord
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy instance.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

// RecordDuration implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: "duration", Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: "counter", Metric: metric, Labels: labels})
}

// RecordValue implements the MetricsCollector interface for testing.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(SpyMetricRecord{Kind: "value", Metric: metric, Value: value, Labels: labels})
}

// Records returns a copy of all captured metric records.
func (s *MetricsCollectorSpy) Records() []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]SpyMetricRecord, len(s.records))
	copy(copied, s.records)

	return copied
}

// CounterTotal reports how often the named counter was incremented.
func (s *MetricsCollectorSpy) CounterTotal(metric string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, record := range s.records {
		if record.Kind == "counter" && record.Metric == metric {
			total++
		}
	}

	return total
}

// LastValue reports the most recently recorded gauge value for the metric.
func (s *MetricsCollectorSpy) LastValue(metric string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Kind == "value" && s.records[i].Metric == metric {
			return s.records[i].Value, true
		}
	}

	return 0, false
}

func (s *MetricsCollectorSpy) record(r SpyMetricRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
}

// Ensure MetricsCollectorSpy implements tracker.MetricsCollector.
var _ tracker.MetricsCollector = (*MetricsCollectorSpy)(nil)
