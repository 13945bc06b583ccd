package tracker

import (
	"errors"
)

var ErrNilSubject = errors.New("subject must not be nil")
var ErrSubjectNotComparable = errors.New("subject must be a comparable value (pointer, struct of comparable fields, ...)")
var ErrNilHandle = errors.New("subject handle must not be nil")
var ErrDisposedHandle = errors.New("subject handle has been disposed")
var ErrEmptyCategory = errors.New("category must not be empty")
var ErrNegativeConditionTarget = errors.New("condition target must not be negative")
var ErrNonPositiveTimeout = errors.New("timeout must be greater than zero")
var ErrHistoryLimitExceeded = errors.New("history limit exceeded, subject accumulated too many lifecycle events")
var ErrWaitTimeout = errors.New("wait timed out before the condition was satisfied")
var ErrNonPositiveHistoryLimit = errors.New("history limit must be greater than zero")
var ErrNilClock = errors.New("clock must not be nil")
var ErrForeignHandle = errors.New("subject handle belongs to a different store")
var ErrNilListener = errors.New("listener must not be nil")
var ErrNilStore = errors.New("tracking store must not be nil")

// HistoryVersionUint is a type alias for uint64, representing the mutation version of one subject's history.
// It equals the number of events ever appended for that subject and only ever grows.
type HistoryVersionUint = uint64
