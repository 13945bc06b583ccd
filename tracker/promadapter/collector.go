// Package promadapter provides a Prometheus adapter for the tracker
// MetricsCollector interface, for users who scrape rather than push.
package promadapter

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// Collector implements tracker.MetricsCollector on top of Prometheus
// collectors. Instruments are created and registered lazily, one per metric
// name:
//   - RecordDuration -> HistogramVec (seconds, default buckets)
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// Prometheus fixes a metric's label set at registration, so the label keys
// seen on the first call for a metric name become canonical: later calls drop
// unknown keys and fill missing ones with "".
type Collector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	labelKeys  map[string][]string
}

// NewCollector creates a Collector that registers its instruments with the
// given registerer, typically prometheus.DefaultRegisterer or a per-test registry.
func NewCollector(registerer prometheus.Registerer) *Collector {
	return &Collector{
		registerer: registerer,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		labelKeys:  make(map[string][]string),
	}
}

// RecordDuration observes a duration in seconds on the metric's histogram.
func (c *Collector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	c.mu.Lock()
	histogram, ok := c.histograms[metricName]
	if !ok {
		keys := c.canonicalKeys(metricName, labels)
		histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName,
			Help:    "Tracker operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, keys)

		if err := c.registerer.Register(histogram); err != nil {
			c.mu.Unlock()
			return
		}
		c.histograms[metricName] = histogram
	}
	values := c.labelValues(metricName, labels)
	c.mu.Unlock()

	histogram.WithLabelValues(values...).Observe(duration.Seconds())
}

// IncrementCounter adds one to the metric's counter.
func (c *Collector) IncrementCounter(metricName string, labels map[string]string) {
	c.mu.Lock()
	counter, ok := c.counters[metricName]
	if !ok {
		keys := c.canonicalKeys(metricName, labels)
		counter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName,
			Help: "Tracker operation counter.",
		}, keys)

		if err := c.registerer.Register(counter); err != nil {
			c.mu.Unlock()
			return
		}
		c.counters[metricName] = counter
	}
	values := c.labelValues(metricName, labels)
	c.mu.Unlock()

	counter.WithLabelValues(values...).Inc()
}

// RecordValue sets the metric's gauge to the given value.
func (c *Collector) RecordValue(metricName string, value float64, labels map[string]string) {
	c.mu.Lock()
	gauge, ok := c.gauges[metricName]
	if !ok {
		keys := c.canonicalKeys(metricName, labels)
		gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricName,
			Help: "Tracker current value.",
		}, keys)

		if err := c.registerer.Register(gauge); err != nil {
			c.mu.Unlock()
			return
		}
		c.gauges[metricName] = gauge
	}
	values := c.labelValues(metricName, labels)
	c.mu.Unlock()

	gauge.WithLabelValues(values...).Set(value)
}

// canonicalKeys fixes the sorted label keys for a metric name on first sight.
// Caller must hold the mutex.
func (c *Collector) canonicalKeys(metricName string, labels map[string]string) []string {
	if keys, ok := c.labelKeys[metricName]; ok {
		return keys
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	c.labelKeys[metricName] = keys

	return keys
}

// labelValues maps the labels onto the metric's canonical key order,
// filling missing keys with "". Caller must hold the mutex.
func (c *Collector) labelValues(metricName string, labels map[string]string) []string {
	keys := c.labelKeys[metricName]

	values := make([]string, len(keys))
	for i, key := range keys {
		values[i] = labels[key]
	}

	return values
}

// Ensure Collector implements tracker.MetricsCollector.
var _ tracker.MetricsCollector = (*Collector)(nil)
