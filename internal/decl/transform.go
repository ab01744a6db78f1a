package decl

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// Transform checks d against the supported shape and derives the signature
// record used by both generators. Parameter types are resolved through
// types; a nil table accepts predeclared scalars only.
//
// A declaration without a result yields an error matching both
// ErrMalformedDeclaration and ErrNoReturnType; callers skip it.
func Transform(d Declaration, types *TypeTable) (*Signature, error) {
	reject := func(reason Reason, format string, args ...any) (*Signature, error) {
		return nil, &MalformedDeclarationError{
			Name:   d.Name,
			Pos:    d.Pos,
			Reason: reason,
			Detail: fmt.Sprintf(format, args...),
		}
	}

	if !token.IsIdentifier(d.Name) || d.Name == "_" {
		return reject(ReasonName, "%q is not a usable function name", d.Name)
	}
	if d.Receiver != "" {
		return reject(ReasonMethod, "methods cannot cross the boundary (receiver %s)", d.Receiver)
	}
	if len(d.TypeParams) > 0 {
		return reject(ReasonGeneric, "generic functions cannot cross the boundary")
	}
	if d.Variadic {
		return reject(ReasonVariadic, "variadic parameters cannot cross the boundary")
	}

	sig := &Signature{
		Name:       d.Name,
		Params:     make([]Param, 0, len(d.Params)),
		ParamNames: make([]string, 0, len(d.Params)),
		ParamKinds: make([]Scalar, 0, len(d.Params)),
		Doc:        d.Doc,
		Pos:        d.Pos,
	}

	seen := make(map[string]bool, len(d.Params))
	for i, p := range d.Params {
		if p.Name == "" || p.Name == "_" || !token.IsIdentifier(p.Name) {
			return reject(ReasonParamName, "parameter %d must have a name", i+1)
		}
		if seen[p.Name] {
			return reject(ReasonParamName, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true

		kind, ok := types.Resolve(p.Type)
		if !ok {
			return reject(ReasonParamType, "parameter %s has type %s, which is neither a scalar nor a transparent type", p.Name, p.Type)
		}
		sig.Params = append(sig.Params, p)
		sig.ParamNames = append(sig.ParamNames, p.Name)
		sig.ParamKinds = append(sig.ParamKinds, kind)
	}

	switch len(d.Results) {
	case 0:
		return reject(ReasonNoResult, "no return type, nothing to marshal")
	case 1:
	default:
		return reject(ReasonMultipleResults, "%d results declared, at most one is supported", len(d.Results))
	}

	expr, err := parser.ParseExpr(d.Results[0])
	if err != nil {
		return reject(ReasonResultType, "cannot parse result type %q: %v", d.Results[0], err)
	}
	if err := checkResultType(expr); err != nil {
		return reject(ReasonResultType, "result type %s: %v", d.Results[0], err)
	}
	sig.Result = d.Results[0]
	sig.ResultExpr = expr

	return sig, nil
}

// checkResultType accepts type expressions whose values the codecs can
// encode without runtime type information.
func checkResultType(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Ident:
		switch e.Name {
		case "any", "error", "complex64", "complex128":
			return fmt.Errorf("%s values cannot be encoded", e.Name)
		}
		return nil
	case *ast.SelectorExpr:
		if _, ok := e.X.(*ast.Ident); !ok {
			return fmt.Errorf("unsupported qualified type")
		}
		return nil
	case *ast.ParenExpr:
		return checkResultType(e.X)
	case *ast.StarExpr:
		return checkResultType(e.X)
	case *ast.ArrayType:
		if e.Len != nil {
			if _, ok := e.Len.(*ast.BasicLit); !ok {
				return fmt.Errorf("array length must be a literal")
			}
		}
		return checkResultType(e.Elt)
	case *ast.MapType:
		if err := checkResultType(e.Key); err != nil {
			return err
		}
		return checkResultType(e.Value)
	case *ast.InterfaceType:
		return fmt.Errorf("interface values cannot be encoded")
	case *ast.FuncType:
		return fmt.Errorf("function values cannot be encoded")
	case *ast.ChanType:
		return fmt.Errorf("channel values cannot be encoded")
	default:
		return fmt.Errorf("unsupported type expression %T", expr)
	}
}
