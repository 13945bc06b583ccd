package memoryengine

import (
	"time"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// Option defines a functional option for configuring a TrackingStore.
type Option func(*TrackingStore) error

// WithHistoryLimit sets the safety ceiling for one subject's history length.
// Appends beyond the ceiling fail with tracker.ErrHistoryLimitExceeded instead
// of letting view recomputation cost grow without bound.
func WithHistoryLimit(limit int) Option {
	return func(ts *TrackingStore) error {
		if limit <= 0 {
			return tracker.ErrNonPositiveHistoryLimit
		}

		ts.historyLimit = limit

		return nil
	}
}

// WithClock sets the time source used to stamp appended events.
// Intended for tests; the default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(ts *TrackingStore) error {
		if clock == nil {
			return tracker.ErrNilClock
		}

		ts.clock = clock

		return nil
	}
}

// WithLogger sets the logger for the TrackingStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: per-append details with timing (development use)
// Info level: subject tracking, disposal, resets (production-safe)
// Warn level: non-critical issues like appends against the history ceiling
// Error level: critical failures that cause operation failures.
func WithLogger(logger tracker.Logger) Option {
	return func(ts *TrackingStore) error {
		ts.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the TrackingStore.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
func WithContextualLogger(logger tracker.ContextualLogger) Option {
	return func(ts *TrackingStore) error {
		ts.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the TrackingStore.
// The metrics collector will receive performance and operational metrics including
// append durations, per-category append counts, history ceiling hits, and the
// number of tracked subjects.
func WithMetrics(collector tracker.MetricsCollector) Option {
	return func(ts *TrackingStore) error {
		ts.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the TrackingStore.
// The tracing collector will receive span creation for append operations,
// context propagation, and error tracking.
func WithTracing(collector tracker.TracingCollector) Option {
	return func(ts *TrackingStore) error {
		ts.tracingCollector = collector
		return nil
	}
}
