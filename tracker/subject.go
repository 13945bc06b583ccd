package tracker

import (
	"reflect"
)

// Subject is the opaque identity whose lifecycle events are tracked.
//
// Subjects are compared by identity only: two subjects are the same record if and
// only if they are equal under Go map-key semantics. Pointers are the typical
// choice. The tracker never inspects a subject beyond using it as a key, and it
// never keeps a subject alive on its own - callers reclaim associated state with
// an explicit Dispose or a bulk Reset.
type Subject = any

// ValidateSubject checks that a value can serve as a subject identity.
// It rejects nil and values whose type cannot be used as a map key.
func ValidateSubject(subject Subject) error {
	if subject == nil {
		return ErrNilSubject
	}

	if !reflect.TypeOf(subject).Comparable() {
		return ErrSubjectNotComparable
	}

	return nil
}
