package awaiter

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker/memoryengine"
)

const (
	logMsgWaitRegistered      = "wait registered"
	logMsgWaitSatisfied       = "wait satisfied"
	logMsgWaitImmediate       = "wait satisfied at registration"
	logMsgWaitTimedOut        = "wait timed out"
	logAttrWaiterID           = "waiter_id"
	logAttrCondition          = "condition"
	logAttrTimeoutMS          = "timeout_ms"
	logAttrElapsedMS          = "elapsed_ms"
	logAttrObservedEventCount = "observed_event_count"

	metricWaitsStarted   = "tracker_waits_started_total"
	metricWaitsSatisfied = "tracker_waits_satisfied_total"
	metricWaitsTimedOut  = "tracker_waits_timed_out_total"
	metricWaitDuration   = "tracker_wait_duration_seconds"

	labelConditionKind = "condition_kind"
	labelOutcome       = "outcome"

	outcomeImmediate = "immediate"
	outcomeNotified  = "notified"
	outcomeTimedOut  = "timed_out"
)

// Registry lets any number of independent callers each obtain a Waiter that
// settles the instant a condition over one subject's history becomes true, or
// times out - without polling.
//
// Waiters on the same subject are fully independent: every registered waiter
// is re-evaluated on every append, one waiter's satisfaction never
// unregisters another's listener, and one waiter's timeout never cancels
// another's wait.
type Registry struct {
	store            *memoryengine.TrackingStore
	logger           tracker.Logger
	metricsCollector tracker.MetricsCollector
}

// Option defines a functional option for configuring a Registry.
type Option func(*Registry) error

// WithLogger sets the logger for the Registry.
func WithLogger(logger tracker.Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Registry.
// It will receive per-condition-kind counters for started, satisfied, and
// timed-out waits plus a wait duration histogram.
func WithMetrics(collector tracker.MetricsCollector) Option {
	return func(r *Registry) error {
		r.metricsCollector = collector
		return nil
	}
}

// NewRegistry creates a Registry over the given store with optional configuration.
func NewRegistry(store *memoryengine.TrackingStore, options ...Option) (*Registry, error) {
	if store == nil {
		return nil, tracker.ErrNilStore
	}

	r := &Registry{store: store}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// WaitFor registers a wait for the condition over the handle's subject.
//
// Usage errors (nil or foreign handle, malformed condition, timeout <= 0) are
// returned synchronously, before any listener registration or timer is set up.
//
// A condition that already holds at registration time settles the returned
// Waiter before WaitFor returns - it never waits for a future append that may
// never come. Otherwise a listener is registered atomically with the
// satisfaction check, and a timer is armed for the full timeout. On either
// terminal transition the listener is unregistered and the timer stopped
// before the Waiter's Done channel closes.
func (r *Registry) WaitFor(
	handle *memoryengine.SubjectHandle,
	condition tracker.Condition,
	timeout time.Duration,
) (*Waiter, error) {

	if err := condition.Validate(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		return nil, tracker.ErrNonPositiveTimeout
	}

	w := &Waiter{
		id:           uuid.New(),
		condition:    condition,
		timeout:      timeout,
		registeredAt: time.Now(),
		done:         make(chan struct{}),
	}

	listener := func(history *tracker.History) bool {
		if !condition.IsSatisfiedBy(history) {
			return false
		}

		if w.settleSatisfied() {
			r.recordOutcome(w, outcomeNotified)
			r.logWaitOutcome(logMsgWaitSatisfied, w, history.Len())
		}

		return true
	}

	current, cancel, err := r.store.Subscribe(handle, listener)
	if err != nil {
		return nil, err
	}

	r.recordStarted(condition)

	// An append dispatched between Subscribe returning and this check may have
	// settled the waiter already; settleSatisfied reports the transition so
	// the outcome is counted once either way.
	if condition.IsSatisfiedBy(current) {
		cancel()
		if w.settleSatisfied() {
			r.recordOutcome(w, outcomeImmediate)
			r.logWaitOutcome(logMsgWaitImmediate, w, current.Len())
		}

		return w, nil
	}

	w.armTimer(cancel, func() {
		r.timeOut(w, handle)
	})

	r.logWaitRegistered(w)

	return w, nil
}

// timeOut performs the timed-out transition for one waiter, capturing the
// state observed at timeout time for the error report.
func (r *Registry) timeOut(w *Waiter, handle *memoryengine.SubjectHandle) {
	observedCount := 0
	observedLast := tracker.CategoryString("")

	// Snapshot takes the store mutex on its own; no waiter lock is held yet.
	if history, err := r.store.Snapshot(handle); err == nil {
		observedCount = history.Len()
		if last, ok := history.Last(); ok {
			observedLast = last.Category
		}
	}

	timeoutErr := &TimeoutError{
		ConditionDescription: w.condition.Describe(),
		ConditionKind:        w.condition.Kind(),
		Timeout:              w.timeout,
		Elapsed:              time.Since(w.registeredAt),
		ObservedCount:        observedCount,
		ObservedLastCategory: observedLast,
	}

	if !w.settleTimedOut(timeoutErr) {
		return // lost the race against a satisfying append
	}

	r.recordOutcome(w, outcomeTimedOut)
	r.logWaitOutcome(logMsgWaitTimedOut, w, observedCount)
}

// recordStarted counts one registered wait if a metrics collector is configured.
func (r *Registry) recordStarted(condition tracker.Condition) {
	if r.metricsCollector == nil {
		return
	}

	r.metricsCollector.IncrementCounter(metricWaitsStarted, map[string]string{
		labelConditionKind: condition.Kind().String(),
	})
}

// recordOutcome counts one terminal transition and records the wait duration.
func (r *Registry) recordOutcome(w *Waiter, outcome string) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelConditionKind: w.condition.Kind().String(),
		labelOutcome:       outcome,
	}

	metricName := metricWaitsSatisfied
	if outcome == outcomeTimedOut {
		metricName = metricWaitsTimedOut
	}

	r.metricsCollector.IncrementCounter(metricName, labels)
	r.metricsCollector.RecordDuration(metricWaitDuration, time.Since(w.registeredAt), labels)
}

// logWaitRegistered logs one pending registration at debug level if a logger is configured.
func (r *Registry) logWaitRegistered(w *Waiter) {
	if r.logger == nil {
		return
	}

	r.logger.Debug(logMsgWaitRegistered,
		logAttrWaiterID, w.id.String(),
		logAttrCondition, w.condition.Describe(),
		logAttrTimeoutMS, w.timeout.Milliseconds(),
	)
}

// logWaitOutcome logs one terminal transition at debug level if a logger is configured.
func (r *Registry) logWaitOutcome(msg string, w *Waiter, observedCount int) {
	if r.logger == nil {
		return
	}

	r.logger.Debug(msg,
		logAttrWaiterID, w.id.String(),
		logAttrCondition, w.condition.Describe(),
		logAttrElapsedMS, time.Since(w.registeredAt).Milliseconds(),
		logAttrObservedEventCount, observedCount,
	)
}
