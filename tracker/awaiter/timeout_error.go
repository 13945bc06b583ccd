package awaiter

import (
	"fmt"
	"time"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// TimeoutError is the terminal outcome of a waiter whose deadline elapsed
// before its condition became true. It wraps tracker.ErrWaitTimeout and
// carries the condition description plus the state observed at timeout time,
// so the assertion layer can build its own report.
type TimeoutError struct {
	ConditionDescription string
	ConditionKind        tracker.ConditionKind
	Timeout              time.Duration
	Elapsed              time.Duration
	ObservedCount        int
	ObservedLastCategory tracker.CategoryString
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"%s: condition %q not satisfied within %s (elapsed %s, observed %d events, last category %q)",
		tracker.ErrWaitTimeout.Error(),
		e.ConditionDescription,
		e.Timeout,
		e.Elapsed.Round(time.Millisecond),
		e.ObservedCount,
		e.ObservedLastCategory,
	)
}

func (e *TimeoutError) Unwrap() error {
	return tracker.ErrWaitTimeout
}
