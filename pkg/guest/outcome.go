package guest

import "fmt"

// State is the terminal state of a proxied call.
type State uint8

const (
	// StateAbsent means the host reported no result. No bytes were read.
	StateAbsent State = iota

	// StatePresent means the result was read back and decoded.
	StatePresent

	// StateFailed means bytes were read back but could not be decoded,
	// or the call itself could not be made.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Outcome is the result of a proxied call: an optional value that also
// records why it is missing. The zero value is Absent.
type Outcome[T any] struct {
	state State
	value T
	err   error
}

// Present wraps a decoded value.
func Present[T any](v T) Outcome[T] {
	return Outcome[T]{state: StatePresent, value: v}
}

// Absent reports that the host produced no result.
func Absent[T any]() Outcome[T] {
	return Outcome[T]{state: StateAbsent}
}

// Failed reports that a result could not be reconstructed.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{state: StateFailed, err: err}
}

// State returns the terminal state.
func (o Outcome[T]) State() State { return o.state }

// IsPresent reports whether a value is available.
func (o Outcome[T]) IsPresent() bool { return o.state == StatePresent }

// Get returns the value and whether it is present.
func (o Outcome[T]) Get() (T, bool) {
	return o.value, o.state == StatePresent
}

// OrElse returns the value if present, fallback otherwise.
func (o Outcome[T]) OrElse(fallback T) T {
	if o.state == StatePresent {
		return o.value
	}
	return fallback
}

// Err returns nil for Present, ErrAbsent for Absent, and the failure cause
// for Failed.
func (o Outcome[T]) Err() error {
	switch o.state {
	case StatePresent:
		return nil
	case StateFailed:
		return o.err
	default:
		return ErrAbsent
	}
}

// Unwrap returns the value and Err, for callers that prefer (T, error).
func (o Outcome[T]) Unwrap() (T, error) {
	return o.value, o.Err()
}

func (o Outcome[T]) String() string {
	switch o.state {
	case StatePresent:
		return fmt.Sprintf("Present(%v)", o.value)
	case StateFailed:
		return fmt.Sprintf("Failed(%v)", o.err)
	default:
		return "Absent"
	}
}
