package guest

import (
	"errors"
	"fmt"
)

// ErrAbsent is returned by Outcome.Err when the host reported no result.
var ErrAbsent = errors.New("no result")

// DecodeError occurs when read-back bytes cannot be decoded into the
// declared result type.
type DecodeError struct {
	Size int64
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d-byte result: %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CallError occurs when the boundary call primitive itself fails, for
// example when the host module traps.
type CallError struct {
	Name string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call '%s': %v", e.Name, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
