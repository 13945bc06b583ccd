package tracker

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidMetadataJSON = errors.New("metadata json is not valid")
var ErrNegativeSequenceIndex = errors.New("sequence index must not be negative")

// CategoryString is a type alias for string, representing the category of a lifecycle event.
type CategoryString = string

// Categories used by the reference instrumentation. The enumeration is open:
// callers may supply any non-empty category string.
const (
	CategoryInitial      CategoryString = "initial"
	CategoryUpdate       CategoryString = "update"
	CategoryNestedUpdate CategoryString = "nested-update"
)

// LifecycleEvents is an alias type for a slice of LifecycleEvent.
type LifecycleEvents = []LifecycleEvent

// Timing is one named numeric measurement attached to a lifecycle event,
// consumed only by the timing-statistics derived view.
type Timing struct {
	Name  string
	Value float64
}

// T is a factory method for Timing, for concise call sites.
func T(name string, value float64) Timing {
	return Timing{Name: name, Value: value}
}

// LifecycleEvent is one recorded occurrence in a subject's history.
//
// It is built on scalars to be completely agnostic of how the instrumentation
// side detects lifecycle events. Immutable once appended.
//
// While its properties are exported, it should only be constructed with the supplied factory methods:
//   - BuildLifecycleEvent
//   - BuildLifecycleEventWithEmptyMetadata
type LifecycleEvent struct {
	Category      CategoryString
	SequenceIndex int
	OccurredAt    time.Time
	Timings       []Timing
	MetadataJSON  []byte
}

// BuildLifecycleEvent is a factory method for LifecycleEvent.
//
// It populates the LifecycleEvent with the given scalar input.
// Returns an error if the category is empty, the sequence index is negative,
// or metadataJSON is not valid JSON.
func BuildLifecycleEvent(
	category CategoryString,
	sequenceIndex int,
	occurredAt time.Time,
	metadataJSON []byte,
	timings ...Timing,
) (LifecycleEvent, error) {

	if category == "" {
		return LifecycleEvent{}, ErrEmptyCategory
	}

	if sequenceIndex < 0 {
		return LifecycleEvent{}, ErrNegativeSequenceIndex
	}

	if !jsoniter.ConfigFastest.Valid(metadataJSON) {
		return LifecycleEvent{}, ErrInvalidMetadataJSON
	}

	return LifecycleEvent{
		Category:      category,
		SequenceIndex: sequenceIndex,
		OccurredAt:    occurredAt,
		Timings:       timings,
		MetadataJSON:  metadataJSON,
	}, nil
}

// BuildLifecycleEventWithEmptyMetadata is a factory method for LifecycleEvent.
//
// It populates the LifecycleEvent with the given scalar input and valid empty JSON metadata.
func BuildLifecycleEventWithEmptyMetadata(
	category CategoryString,
	sequenceIndex int,
	occurredAt time.Time,
	timings ...Timing,
) (LifecycleEvent, error) {

	return BuildLifecycleEvent(category, sequenceIndex, occurredAt, []byte("{}"), timings...)
}

// TimingValue returns the value of the named timing field and whether it was recorded.
func (e LifecycleEvent) TimingValue(name string) (float64, bool) {
	for _, timing := range e.Timings {
		if timing.Name == name {
			return timing.Value, true
		}
	}

	return 0, false
}
