package codec

import (
	"strings"
)

// Phase indicates which direction failed.
type Phase string

const (
	PhaseEncode Phase = "encode" // Go value to bytes
	PhaseDecode Phase = "decode" // bytes to Go value
)

// Kind categorizes the failure.
type Kind string

const (
	KindUnsupported   Kind = "unsupported"
	KindOverflow      Kind = "overflow"
	KindTruncated     Kind = "truncated"
	KindTrailing      Kind = "trailing_data"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidTarget Kind = "invalid_target"
	KindInvalidWidth  Kind = "invalid_width"
	KindMarshaler     Kind = "marshaler"
)

// Error is the structured error returned by every codec in this package.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Sentinels for errors.Is matching on phase alone.
var (
	ErrEncode = &Error{Phase: PhaseEncode}
	ErrDecode = &Error{Phase: PhaseDecode}
)

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}
	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by phase, and by kind when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Phase != t.Phase {
		return false
	}
	return t.Kind == "" || e.Kind == t.Kind
}
