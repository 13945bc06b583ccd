package tracker

// History is the full ordered event sequence for one subject, frozen at one version.
//
// A History is an immutable snapshot: the engine builds a new one per observed
// version and hands out the identical pointer as long as no append occurred,
// so callers can detect "nothing changed" with a cheap identity check.
// Mutating anything a History returns never affects the underlying store.
type History struct {
	version HistoryVersionUint
	events  LifecycleEvents
}

// BuildHistory creates a History snapshot from the given events.
// The slice is copied so later growth on the caller's side stays invisible.
func BuildHistory(version HistoryVersionUint, events LifecycleEvents) *History {
	copied := make(LifecycleEvents, len(events))
	copy(copied, events)

	return &History{version: version, events: copied}
}

// Version reports the mutation version this snapshot was taken at.
func (h *History) Version() HistoryVersionUint {
	if h == nil {
		return 0
	}

	return h.version
}

// Len reports the number of recorded events.
func (h *History) Len() int {
	if h == nil {
		return 0
	}

	return len(h.events)
}

// Events returns a copy of the recorded events in sequence order.
func (h *History) Events() LifecycleEvents {
	if h == nil {
		return nil
	}

	copied := make(LifecycleEvents, len(h.events))
	copy(copied, h.events)

	return copied
}

// EventAt returns the event at the given sequence index without copying the history.
func (h *History) EventAt(index int) (LifecycleEvent, bool) {
	if h == nil || index < 0 || index >= len(h.events) {
		return LifecycleEvent{}, false
	}

	return h.events[index], true
}

// Last returns the most recently appended event, if any.
func (h *History) Last() (LifecycleEvent, bool) {
	if h == nil || len(h.events) == 0 {
		return LifecycleEvent{}, false
	}

	return h.events[len(h.events)-1], true
}

// CountOf reports how many recorded events carry the given category.
func (h *History) CountOf(category CategoryString) int {
	if h == nil {
		return 0
	}

	count := 0
	for _, event := range h.events {
		if event.Category == category {
			count++
		}
	}

	return count
}
