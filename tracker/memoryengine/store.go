package memoryengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

const (
	defaultHistoryLimit = 100_000

	logMsgEventAppended        = "lifecycle event appended"
	logMsgSubjectTracked       = "subject tracked"
	logMsgSubjectDisposed      = "subject disposed"
	logMsgStoreReset           = "store reset"
	logMsgHistoryLimitExceeded = "history limit exceeded for subject"
	logMsgAppendRejected       = "append rejected"
	logAttrError               = "error"
	logAttrCategory            = "category"
	logAttrSequenceIndex       = "sequence_index"
	logAttrEventCount          = "event_count"
	logAttrListenerCount       = "listener_count"
	logAttrSubjectCount        = "subject_count"
	logAttrDurationMS          = "duration_ms"
	logAttrHistoryLimit        = "history_limit"

	metricAppendDuration  = "tracker_append_duration_seconds"
	metricAppendsTotal    = "tracker_appends_total"
	metricAppendErrors    = "tracker_append_errors_total"
	metricTrackedSubjects = "tracker_tracked_subjects"

	labelCategory  = "category"
	labelStatus    = "status"
	labelErrorType = "error_type"

	statusSuccess = "success"
	statusError   = "error"

	spanNameAppend    = "tracker.append"
	spanAttrCategory  = "category"
	spanAttrEventNum  = "sequence_index"
	errorTypeLimit    = "history_limit"
	errorTypeUsage    = "usage"
)

// ListenerFunc is invoked synchronously by Append with the post-append history
// snapshot of the subject it was registered for. Returning true unregisters the
// listener; every listener registered for a subject is evaluated on every
// append, regardless of what the others return.
type ListenerFunc func(history *tracker.History) (unsubscribe bool)

// CancelFunc removes a registered listener. Safe to call more than once.
type CancelFunc func()

// subjectRecord holds one subject's isolated mutable state.
// No two records ever share state; all access goes through the store mutex.
type subjectRecord struct {
	events    tracker.LifecycleEvents
	version   tracker.HistoryVersionUint
	snapshot  *tracker.History // cached at version, nil when stale
	listeners map[uuid.UUID]ListenerFunc
	disposed  bool
}

// SubjectHandle is the per-subject record reference handed out by Track.
// Repeated Track calls with the same subject identity return the identical
// handle instance; handles from different subjects or stores never alias.
type SubjectHandle struct {
	subject tracker.Subject
	record  *subjectRecord
	owner   *TrackingStore
}

// Subject returns the identity this handle is associated with.
func (h *SubjectHandle) Subject() tracker.Subject {
	return h.subject
}

// TrackingStore is an in-memory, append-only store of lifecycle events,
// isolated per subject identity.
//
// All mutation (append, listener dispatch, disposal) happens under one mutex,
// so "mutation, then visible invalidation, then listener re-evaluation" holds
// as a fixed order before Append returns, for callers on any goroutine.
type TrackingStore struct {
	mu               sync.Mutex
	handles          map[tracker.Subject]*SubjectHandle
	historyLimit     int
	clock            func() time.Time
	logger           tracker.Logger
	contextualLogger tracker.ContextualLogger
	metricsCollector tracker.MetricsCollector
	tracingCollector tracker.TracingCollector
}

// NewTrackingStore creates a new TrackingStore with optional configuration.
func NewTrackingStore(options ...Option) (*TrackingStore, error) {
	ts := &TrackingStore{
		handles:      make(map[tracker.Subject]*SubjectHandle),
		historyLimit: defaultHistoryLimit,
		clock:        time.Now,
	}

	for _, option := range options {
		if err := option(ts); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// Track returns the handle for the given subject, creating an empty record on
// first sight. Idempotent: the same subject identity always yields the
// identical handle instance.
func (ts *TrackingStore) Track(subject tracker.Subject) (*SubjectHandle, error) {
	if err := tracker.ValidateSubject(subject); err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if handle, ok := ts.handles[subject]; ok {
		return handle, nil
	}

	handle := &SubjectHandle{
		subject: subject,
		record: &subjectRecord{
			events:    make(tracker.LifecycleEvents, 0),
			listeners: make(map[uuid.UUID]ListenerFunc),
		},
		owner: ts,
	}
	ts.handles[subject] = handle

	ts.logOperation(logMsgSubjectTracked, logAttrSubjectCount, len(ts.handles))
	ts.recordSubjectGauge(len(ts.handles))

	return handle, nil
}

// Has reports whether the subject currently has a live record.
func (ts *TrackingStore) Has(subject tracker.Subject) bool {
	if tracker.ValidateSubject(subject) != nil {
		return false
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	_, ok := ts.handles[subject]

	return ok
}

// Append appends one lifecycle event with empty metadata.
// See AppendWithMetadata for the full contract.
func (ts *TrackingStore) Append(
	ctx context.Context,
	handle *SubjectHandle,
	category tracker.CategoryString,
	timings ...tracker.Timing,
) error {

	return ts.AppendWithMetadata(ctx, handle, category, []byte("{}"), timings...)
}

// AppendWithMetadata appends one lifecycle event with the next sequence index,
// then synchronously dispatches the subject's listeners with the fresh history
// snapshot before returning. The version bump that invalidates derived views
// happens before dispatch, so a listener that queries views observes
// post-append state.
//
// Usage errors (nil or foreign handle, empty category, malformed metadata) are
// reported before any state mutation. Appending beyond the configured history
// ceiling fails with tracker.ErrHistoryLimitExceeded.
func (ts *TrackingStore) AppendWithMetadata(
	ctx context.Context,
	handle *SubjectHandle,
	category tracker.CategoryString,
	metadataJSON []byte,
	timings ...tracker.Timing,
) error {

	start := time.Now()
	ctx, span := ts.startAppendSpan(ctx, category)

	if err := ts.validateHandle(handle); err != nil {
		ts.recordAppendError(ctx, err, errorTypeUsage, span)
		return err
	}

	ts.mu.Lock()

	record := handle.record
	if record.disposed {
		ts.mu.Unlock()
		ts.recordAppendError(ctx, tracker.ErrDisposedHandle, errorTypeUsage, span)
		return tracker.ErrDisposedHandle
	}

	if len(record.events) >= ts.historyLimit {
		limitErr := fmt.Errorf("%w: %d events recorded, limit is %d",
			tracker.ErrHistoryLimitExceeded, len(record.events), ts.historyLimit)
		ts.mu.Unlock()
		ts.logError(logMsgHistoryLimitExceeded, limitErr, logAttrHistoryLimit, ts.historyLimit)
		ts.recordAppendError(ctx, limitErr, errorTypeLimit, span)
		return limitErr
	}

	event, buildErr := tracker.BuildLifecycleEvent(category, len(record.events), ts.clock(), metadataJSON, timings...)
	if buildErr != nil {
		ts.mu.Unlock()
		ts.logError(logMsgAppendRejected, buildErr, logAttrCategory, category)
		ts.recordAppendError(ctx, buildErr, errorTypeUsage, span)
		return buildErr
	}

	record.events = append(record.events, event)
	record.version++
	record.snapshot = tracker.BuildHistory(record.version, record.events)

	listenerCount := ts.dispatchListeners(record)

	eventCount := len(record.events)
	ts.mu.Unlock()

	duration := time.Since(start)
	ts.logAppend(ctx, event, eventCount, listenerCount, duration)
	ts.recordAppendMetrics(ctx, category, duration)
	ts.finishSpan(span, statusSuccess, map[string]string{spanAttrEventNum: fmt.Sprintf("%d", event.SequenceIndex)})

	return nil
}

// dispatchListeners evaluates every registered listener against the current
// snapshot and removes the ones that ask to be unregistered.
// Caller must hold the store mutex.
func (ts *TrackingStore) dispatchListeners(record *subjectRecord) int {
	if len(record.listeners) == 0 {
		return 0
	}

	history := record.snapshot
	dispatched := 0
	var done []uuid.UUID

	for id, listener := range record.listeners {
		dispatched++
		if listener(history) {
			done = append(done, id)
		}
	}

	for _, id := range done {
		delete(record.listeners, id)
	}

	return dispatched
}

// Snapshot returns the immutable history snapshot for the handle's subject.
// As long as no append occurred, repeated calls return the identical pointer,
// so callers can detect "nothing changed" with a cheap identity check.
func (ts *TrackingStore) Snapshot(handle *SubjectHandle) (*tracker.History, error) {
	if err := ts.validateHandle(handle); err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	record := handle.record
	if record.disposed {
		return nil, tracker.ErrDisposedHandle
	}

	if record.snapshot == nil {
		record.snapshot = tracker.BuildHistory(record.version, record.events)
	}

	return record.snapshot, nil
}

// Count reports the number of events recorded for the handle's subject.
func (ts *TrackingStore) Count(handle *SubjectHandle) (int, error) {
	if err := ts.validateHandle(handle); err != nil {
		return 0, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if handle.record.disposed {
		return 0, tracker.ErrDisposedHandle
	}

	return len(handle.record.events), nil
}

// Version reports the handle's current mutation version.
// Derived views use it for lazy slot self-validation.
func (ts *TrackingStore) Version(handle *SubjectHandle) (tracker.HistoryVersionUint, error) {
	if err := ts.validateHandle(handle); err != nil {
		return 0, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if handle.record.disposed {
		return 0, tracker.ErrDisposedHandle
	}

	return handle.record.version, nil
}

// LastCategory reports the category of the most recent event recorded for the
// handle's subject, and whether any event was recorded at all. This is the
// uncached read; the derived-view cache memoizes the same projection.
func (ts *TrackingStore) LastCategory(handle *SubjectHandle) (tracker.CategoryString, bool, error) {
	if err := ts.validateHandle(handle); err != nil {
		return "", false, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	record := handle.record
	if record.disposed {
		return "", false, tracker.ErrDisposedHandle
	}

	if len(record.events) == 0 {
		return "", false, nil
	}

	return record.events[len(record.events)-1].Category, true, nil
}

// Subscribe registers a listener for the handle's subject and returns the
// current history snapshot atomically with the registration. Evaluating a
// condition against the returned snapshot before consuming notifications
// closes the register-versus-append race: no append can fall between the two.
func (ts *TrackingStore) Subscribe(handle *SubjectHandle, listener ListenerFunc) (*tracker.History, CancelFunc, error) {
	if err := ts.validateHandle(handle); err != nil {
		return nil, nil, err
	}
	if listener == nil {
		return nil, nil, tracker.ErrNilListener
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	record := handle.record
	if record.disposed {
		return nil, nil, tracker.ErrDisposedHandle
	}

	if record.snapshot == nil {
		record.snapshot = tracker.BuildHistory(record.version, record.events)
	}

	id := uuid.New()
	record.listeners[id] = listener

	cancel := func() {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		delete(record.listeners, id)
	}

	return record.snapshot, cancel, nil
}

// Dispose drops the record associated with the subject, if any.
// The subject itself is untouched; pending listeners are discarded and any
// still-pending waiters run to their timeouts.
func (ts *TrackingStore) Dispose(subject tracker.Subject) bool {
	if tracker.ValidateSubject(subject) != nil {
		return false
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	handle, ok := ts.handles[subject]
	if !ok {
		return false
	}

	handle.record.disposed = true
	handle.record.listeners = make(map[uuid.UUID]ListenerFunc)
	delete(ts.handles, subject)

	ts.logOperation(logMsgSubjectDisposed, logAttrSubjectCount, len(ts.handles))
	ts.recordSubjectGauge(len(ts.handles))

	return true
}

// Reset drops every record in the store. Idempotent; meant as the bulk-clear
// call between independent test runs. Handles obtained before the reset are
// disposed and fail further operations.
func (ts *TrackingStore) Reset() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for subject, handle := range ts.handles {
		handle.record.disposed = true
		handle.record.listeners = make(map[uuid.UUID]ListenerFunc)
		delete(ts.handles, subject)
	}

	ts.logOperation(logMsgStoreReset, logAttrSubjectCount, 0)
	ts.recordSubjectGauge(0)
}

// TrackedCount reports the number of subjects with a live record.
func (ts *TrackingStore) TrackedCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return len(ts.handles)
}

// validateHandle rejects nil handles and handles created by another store.
func (ts *TrackingStore) validateHandle(handle *SubjectHandle) error {
	if handle == nil {
		return tracker.ErrNilHandle
	}

	if handle.owner != ts {
		return tracker.ErrForeignHandle
	}

	return nil
}
