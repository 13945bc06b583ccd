package tracker

import (
	"fmt"
)

// ConditionKind defines the shape of a waiter condition.
type ConditionKind int

const (
	// ConditionExactCount is satisfied when the history holds exactly the target number of events.
	ConditionExactCount ConditionKind = iota

	// ConditionMinCount is satisfied when the history holds at least the target number of events.
	ConditionMinCount

	// ConditionPhaseReached is satisfied when the most recent event carries the target category.
	// It deliberately matches the last event only, not "has this category ever occurred":
	// a later non-matching append makes a previously true condition false again.
	ConditionPhaseReached
)

// String provides a string representation of ConditionKind for logging and debugging.
func (k ConditionKind) String() string {
	switch k {
	case ConditionExactCount:
		return "exact-count"
	case ConditionMinCount:
		return "min-count"
	case ConditionPhaseReached:
		return "phase-reached"
	default:
		return "unknown"
	}
}

// Condition describes when a pending wait over one subject's History should resolve.
//
// It should only be constructed with the supplied factory methods:
//   - ExactCount
//   - MinCount
//   - PhaseReached
type Condition struct {
	kind     ConditionKind
	target   int
	category CategoryString
}

// ExactCount builds a Condition that resolves when the event count equals target.
func ExactCount(target int) Condition {
	return Condition{kind: ConditionExactCount, target: target}
}

// MinCount builds a Condition that resolves when the event count is at least target.
func MinCount(target int) Condition {
	return Condition{kind: ConditionMinCount, target: target}
}

// PhaseReached builds a Condition that resolves when the most recent event carries the given category.
func PhaseReached(category CategoryString) Condition {
	return Condition{kind: ConditionPhaseReached, category: category}
}

func (c Condition) Kind() ConditionKind {
	return c.kind
}

func (c Condition) Target() int {
	return c.target
}

func (c Condition) Category() CategoryString {
	return c.category
}

// Validate ensures the condition is well-formed before any registration happens.
func (c Condition) Validate() error {
	switch c.kind {
	case ConditionExactCount, ConditionMinCount:
		if c.target < 0 {
			return fmt.Errorf("%w: target %d for %s condition", ErrNegativeConditionTarget, c.target, c.kind)
		}
	case ConditionPhaseReached:
		if c.category == "" {
			return fmt.Errorf("%w: %s condition needs a category", ErrEmptyCategory, c.kind)
		}
	}

	return nil
}

// IsSatisfiedBy evaluates the condition against a history snapshot.
// A nil history counts as empty.
func (c Condition) IsSatisfiedBy(history *History) bool {
	switch c.kind {
	case ConditionExactCount:
		return history.Len() == c.target
	case ConditionMinCount:
		return history.Len() >= c.target
	case ConditionPhaseReached:
		last, ok := history.Last()
		return ok && last.Category == c.category
	default:
		return false
	}
}

// Describe renders the condition for timeout errors and logging.
func (c Condition) Describe() string {
	switch c.kind {
	case ConditionExactCount:
		return fmt.Sprintf("event count == %d", c.target)
	case ConditionMinCount:
		return fmt.Sprintf("event count >= %d", c.target)
	case ConditionPhaseReached:
		return fmt.Sprintf("last event category == %q", c.category)
	default:
		return "unknown condition"
	}
}
