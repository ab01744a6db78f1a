package decl

import (
	"go/ast"
	"strings"
)

// Param is one named, by-value parameter.
type Param struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Type string `yaml:"type" json:"type" validate:"required"`
}

// Declaration is a function as written by the user, before any checks.
type Declaration struct {
	// Name is the function identifier, shared by both stubs and the
	// narrow entry point.
	Name string

	Params []Param

	// Results holds one entry per declared result type. Exactly one is
	// supported; none means the declaration is skipped.
	Results []string

	// Receiver is set when the source declared a method.
	Receiver string

	// TypeParams lists type parameter names of a generic function.
	TypeParams []string

	// Variadic is set when the last parameter was declared with "...".
	Variadic bool

	Doc string

	// Pos locates the declaration in its source, e.g. "calc.go:12".
	Pos string
}

// Signature is the transformer output shared by the host wrapper and guest
// proxy generators.
type Signature struct {
	Name string

	// Params is the parameter list exactly as declared.
	Params []Param

	// ParamNames is used to forward arguments positionally.
	ParamNames []string

	// ParamKinds gives the scalar each parameter travels as.
	ParamKinds []Scalar

	// Result is the declared return type expression.
	Result string

	// ResultExpr is Result parsed as a Go type expression.
	ResultExpr ast.Expr

	Doc string
	Pos string
}

// ParamList renders the parameter list verbatim, e.g. "a int, b int".
func (s *Signature) ParamList() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}

// String renders the signature in Go syntax without the func keyword.
func (s *Signature) String() string {
	return s.Name + "(" + s.ParamList() + ") " + s.Result
}

// SameShape reports whether two signatures declare the same entry point:
// same name, same parameter types in order, same result type. Parameter
// names may differ.
func (s *Signature) SameShape(o *Signature) bool {
	if s.Name != o.Name || s.Result != o.Result || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i].Type != o.Params[i].Type {
			return false
		}
	}
	return true
}
