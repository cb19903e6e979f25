package errors

import (
	"errors"
	"fmt"
)

// requested entity is not found.
var ErrMissing = errors.New("missing")

// entity with same identity exists already.
var ErrConflict = errors.New("conflict")

// the requested status transition is not in the lifecycle table.
//
// For event consumers this signals duplicate or stale delivery: log and drop,
// do not raise.
var ErrInvalidStatusChanging = errors.New("invalid status changing")

// request is rejected before entering the state machine.
var ErrValidation = errors.New("validation error")

// no active pool can satisfy the requested resources right now.
var ErrNoCapacity = fmt.Errorf("%w: no capacity", ErrValidation)

// retry attempts are used up.
var ErrExhausted = errors.New("retry attempts exhausted")

// NewValidation makes an ErrValidation with a caller-facing reason.
func NewValidation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func AsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func AsMissingError(err error) bool {
	return errors.Is(err, ErrMissing)
}

func AsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func AsInvalidStatusChanging(err error) bool {
	return errors.Is(err, ErrInvalidStatusChanging)
}
