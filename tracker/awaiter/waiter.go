package awaiter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// Waiter is one pending asynchronous condition registered against a subject's
// future history. It settles exactly once: satisfied (Err returns nil) or
// timed out (Err returns a *TimeoutError). Cleanup of listener and timer is
// unconditional on both terminal paths, and running it twice is a no-op.
type Waiter struct {
	id           uuid.UUID
	condition    tracker.Condition
	timeout      time.Duration
	registeredAt time.Time
	done         chan struct{}

	mu             sync.Mutex
	settled        bool
	err            error
	timer          *time.Timer
	cancelListener func()
}

// ID returns the unique registration id, carried in logs and metrics.
func (w *Waiter) ID() uuid.UUID {
	return w.id
}

// Condition returns the condition this waiter was registered with.
func (w *Waiter) Condition() tracker.Condition {
	return w.condition
}

// Done returns a channel that is closed when the waiter settles.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Err reports the terminal outcome: nil for satisfied, a *TimeoutError
// (wrapping tracker.ErrWaitTimeout) for timed out. Only meaningful once
// Done is closed.
func (w *Waiter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.err
}

// Await blocks until the waiter settles and returns its terminal outcome.
func (w *Waiter) Await() error {
	<-w.done

	return w.Err()
}

// AwaitContext blocks until the waiter settles or the context ends.
// The context governs only this call's waiting; the registration itself has
// no cancel API and runs to satisfaction or timeout either way.
func (w *Waiter) AwaitContext(ctx context.Context) error {
	select {
	case <-w.done:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settleSatisfied transitions to satisfied, stops the timer, and closes Done.
// No-op when already settled; reports whether this call performed the
// transition, so outcome accounting happens exactly once per waiter. Safe to
// call from listener dispatch, which runs under the store mutex: no store
// lock is taken here.
func (w *Waiter) settleSatisfied() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.settled {
		return false
	}

	w.settled = true
	w.err = nil

	if w.timer != nil {
		w.timer.Stop()
	}

	close(w.done)

	return true
}

// settleTimedOut transitions to timed out and closes Done, then removes the
// listener outside the waiter mutex. No-op when already settled; reports
// whether this call performed the transition.
func (w *Waiter) settleTimedOut(timeoutErr *TimeoutError) bool {
	w.mu.Lock()

	if w.settled {
		w.mu.Unlock()
		return false
	}

	w.settled = true
	w.err = timeoutErr
	close(w.done)
	cancel := w.cancelListener
	w.mu.Unlock()

	// Listener removal takes the store mutex; doing it after releasing the
	// waiter mutex keeps the lock order acyclic with listener dispatch.
	if cancel != nil {
		cancel()
	}

	return true
}

// armTimer attaches the listener cancel and starts the timeout timer, unless
// the waiter settled while registration was still in flight.
func (w *Waiter) armTimer(cancel func(), onTimeout func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelListener = cancel

	if w.settled {
		return
	}

	w.timer = time.AfterFunc(w.timeout, onTimeout)
}
