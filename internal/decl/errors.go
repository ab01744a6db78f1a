package decl

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDeclaration matches every rejection by Transform.
	ErrMalformedDeclaration = errors.New("malformed declaration")

	// ErrNoReturnType matches declarations skipped for lacking a result.
	ErrNoReturnType = errors.New("declaration has no return type")
)

// Reason classifies why a declaration was rejected.
type Reason string

const (
	ReasonName            Reason = "invalid_name"
	ReasonMethod          Reason = "method"
	ReasonGeneric         Reason = "type_parameters"
	ReasonVariadic        Reason = "variadic"
	ReasonParamName       Reason = "param_name"
	ReasonParamType       Reason = "param_type"
	ReasonNoResult        Reason = "no_result"
	ReasonMultipleResults Reason = "multiple_results"
	ReasonResultType      Reason = "result_type"
)

// MalformedDeclarationError occurs when a declaration does not fit the
// supported shape. Generation for that declaration is skipped.
type MalformedDeclarationError struct {
	Name   string
	Pos    string
	Reason Reason
	Detail string
}

func (e *MalformedDeclarationError) Error() string {
	where := ""
	if e.Pos != "" {
		where = " at " + e.Pos
	}
	return fmt.Sprintf("malformed declaration '%s'%s: %s (%s)", e.Name, where, e.Detail, e.Reason)
}

// Is lets callers match with ErrMalformedDeclaration, and with
// ErrNoReturnType for the no-result case.
func (e *MalformedDeclarationError) Is(target error) bool {
	switch target {
	case ErrMalformedDeclaration:
		return true
	case ErrNoReturnType:
		return e.Reason == ReasonNoResult
	}
	return false
}
