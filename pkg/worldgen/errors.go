package worldgen

import (
	"errors"
	"fmt"
)

// LogicError is a recoverable contradiction discovered during deduction: an
// enum with no remaining values, a port with no candidates, a necessity loop
// forcing known-false, and so on. FastDeduce, Choice.Make (a choice with no
// value, default, or strategy) and the strategies' Make return one; the
// driver reacts to it by backtracking.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string { return "logic error: " + e.Msg }

// NewLogicError builds a LogicError with a formatted message.
func NewLogicError(format string, args ...interface{}) error {
	return &LogicError{Msg: fmt.Sprintf(format, args...)}
}

// UsageError is a programmer mistake: an invalid port connection, renaming a
// parented object, writing to a read-only universe. It is never recoverable
// and always propagates.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "usage error: " + e.Msg }

// NewUsageError builds a UsageError with a formatted message.
func NewUsageError(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// InvariantViolation marks a debug-assert class failure: a count mismatch in
// an ordered dictionary's linked list, impossible values that are not a
// subset of values, a duplicate sufficient placeholder. These are programmer
// bugs in the engine itself and must fail fast rather than be handled.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.Msg }

// NewInvariantViolation builds an InvariantViolation with a formatted message.
func NewInvariantViolation(format string, args ...interface{}) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}

// ErrNoSuchAttribute is wrapped by the error Object.Get returns when the key
// is absent from the object's local dictionary.
var ErrNoSuchAttribute = fmt.Errorf("no such attribute")

// ErrExternalObject names the failure of translating an object that does not
// exist relative to a given base universe. No function in this package
// returns it: Fork remaps references through its own old-to-new map instead
// of translating values between universes.
var ErrExternalObject = fmt.Errorf("external object")

// ErrReadOnlyUniverse names the failure of writing into a universe marked
// read-only by Freeze. Object.Set reports that case as a *UsageError and
// does not return this value.
var ErrReadOnlyUniverse = fmt.Errorf("read-only universe")

// IsLogicError reports whether err is (or wraps) a *LogicError.
func IsLogicError(err error) bool {
	var le *LogicError
	return errors.As(err, &le)
}
