package memoryengine

import (
	"context"
	"math"
	"time"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// logOperation logs operational information at info level if a logger is configured.
func (ts *TrackingStore) logOperation(msg string, args ...any) {
	if ts.logger != nil {
		ts.logger.Info(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (ts *TrackingStore) logError(msg string, err error, args ...any) {
	if ts.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		ts.logger.Error(msg, allArgs...)
	}
}

// logAppend logs one successful append at debug level, preferring the
// contextual logger when both are configured.
func (ts *TrackingStore) logAppend(
	ctx context.Context,
	event tracker.LifecycleEvent,
	eventCount int,
	listenerCount int,
	duration time.Duration,
) {

	args := []any{
		logAttrCategory, event.Category,
		logAttrSequenceIndex, event.SequenceIndex,
		logAttrEventCount, eventCount,
		logAttrListenerCount, listenerCount,
		logAttrDurationMS, ts.toMilliseconds(duration),
	}

	if ts.contextualLogger != nil {
		ts.contextualLogger.DebugContext(ctx, logMsgEventAppended, args...)
		return
	}

	if ts.logger != nil {
		ts.logger.Debug(logMsgEventAppended, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (ts *TrackingStore) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordAppendMetrics records duration and count for one successful append
// if a metrics collector is configured, using context-aware methods when available.
func (ts *TrackingStore) recordAppendMetrics(ctx context.Context, category tracker.CategoryString, duration time.Duration) {
	if ts.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelCategory: category,
		labelStatus:   statusSuccess,
	}

	if contextualCollector, ok := ts.metricsCollector.(tracker.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricAppendDuration, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, metricAppendsTotal, labels)
		return
	}

	ts.metricsCollector.RecordDuration(metricAppendDuration, duration, labels)
	ts.metricsCollector.IncrementCounter(metricAppendsTotal, labels)
}

// recordAppendError records one failed append in metrics and finishes the span with error status.
func (ts *TrackingStore) recordAppendError(ctx context.Context, err error, errorType string, span tracker.SpanContext) {
	if ts.metricsCollector != nil {
		labels := map[string]string{
			labelStatus:    statusError,
			labelErrorType: errorType,
		}

		if contextualCollector, ok := ts.metricsCollector.(tracker.ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, metricAppendErrors, labels)
		} else {
			ts.metricsCollector.IncrementCounter(metricAppendErrors, labels)
		}
	}

	ts.finishSpan(span, statusError, map[string]string{logAttrError: err.Error()})
}

// recordSubjectGauge records the current number of tracked subjects if a metrics collector is configured.
func (ts *TrackingStore) recordSubjectGauge(count int) {
	if ts.metricsCollector != nil {
		ts.metricsCollector.RecordValue(metricTrackedSubjects, float64(count), nil)
	}
}

// startAppendSpan starts a tracing span for an append operation if a tracing collector is configured.
func (ts *TrackingStore) startAppendSpan(ctx context.Context, category tracker.CategoryString) (context.Context, tracker.SpanContext) {
	if ts.tracingCollector == nil {
		return ctx, nil
	}

	return ts.tracingCollector.StartSpan(ctx, spanNameAppend, map[string]string{spanAttrCategory: category})
}

// finishSpan finishes a tracing span if one was started.
func (ts *TrackingStore) finishSpan(span tracker.SpanContext, status string, attrs map[string]string) {
	if ts.tracingCollector == nil || span == nil {
		return
	}

	ts.tracingCollector.FinishSpan(span, status, attrs)
}
