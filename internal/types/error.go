package types

import (
	"errors"
	"fmt"
)

// ErrOperationInProgress rejects a mutating call that arrived while another
// one is in flight, reentrant callbacks from asset transfers included.
var ErrOperationInProgress = errors.New("another mutating operation is in progress")

// InputError marks a request the caller got wrong: bad account, bad amount.
type InputError struct {
	Message string
}

func NewInputError(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string {
	return e.Message
}

func IsInputError(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}

// InsufficientFundsError covers both sides of the pool: a caller asking for
// more than they have, and the pool unable to reserve reward for new stake.
type InsufficientFundsError struct {
	Message string
}

func NewInsufficientFundsError(format string, args ...any) *InsufficientFundsError {
	return &InsufficientFundsError{Message: fmt.Sprintf(format, args...)}
}

func (e *InsufficientFundsError) Error() string {
	return e.Message
}

func IsInsufficientFundsError(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

// LockedError rejects an unstake that would touch an entry still inside its
// lock period. UnlocksAt is the unix time the blocking entry unlocks.
type LockedError struct {
	UnlocksAt int64
	Message   string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s (unlocks at %d)", e.Message, e.UnlocksAt)
}

func IsLockedError(err error) bool {
	var target *LockedError
	return errors.As(err, &target)
}

// InvariantViolationError means the accounting state is internally
// inconsistent. It is never the caller's fault and always a bug.
type InvariantViolationError struct {
	Message string
}

func NewInvariantViolationError(format string, args ...any) *InvariantViolationError {
	return &InvariantViolationError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvariantViolationError) Error() string {
	return e.Message
}

func IsInvariantViolationError(err error) bool {
	var target *InvariantViolationError
	return errors.As(err, &target)
}
