package gen

import (
	"fmt"
	"go/ast"
	"go/types"

	"github.com/dave/jennifer/jen"
	"github.com/woxQAQ/narrowcall/internal/decl"
)

// typeCode renders a result type expression. Qualified names are resolved
// through imports so jennifer can manage the import block.
func typeCode(expr ast.Expr, imports map[string]string) (*jen.Statement, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		return jen.Id(e.Name), nil
	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("unsupported type %s", types.ExprString(e))
		}
		path, ok := imports[pkg.Name]
		if !ok {
			return nil, fmt.Errorf("type %s: no import for package %q", types.ExprString(e), pkg.Name)
		}
		return jen.Qual(path, e.Sel.Name), nil
	case *ast.ParenExpr:
		return typeCode(e.X, imports)
	case *ast.StarExpr:
		elem, err := typeCode(e.X, imports)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case *ast.ArrayType:
		elem, err := typeCode(e.Elt, imports)
		if err != nil {
			return nil, err
		}
		if e.Len == nil {
			return jen.Index().Add(elem), nil
		}
		return jen.Index(jen.Id(types.ExprString(e.Len))).Add(elem), nil
	case *ast.MapType:
		key, err := typeCode(e.Key, imports)
		if err != nil {
			return nil, err
		}
		val, err := typeCode(e.Value, imports)
		if err != nil {
			return nil, err
		}
		return jen.Map(key).Add(val), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", types.ExprString(expr))
	}
}

// valueType is the wazero api constant for a scalar.
func valueType(s decl.Scalar) jen.Code {
	switch s.Wasm() {
	case decl.ValueI64:
		return jen.Qual(wazeroAPI, "ValueTypeI64")
	case decl.ValueF32:
		return jen.Qual(wazeroAPI, "ValueTypeF32")
	case decl.ValueF64:
		return jen.Qual(wazeroAPI, "ValueTypeF64")
	default:
		return jen.Qual(wazeroAPI, "ValueTypeI32")
	}
}

// decodeWord converts stack word i back into a parameter of type typ.
func decodeWord(s decl.Scalar, typ string, i int) jen.Code {
	word := jen.Id("stack").Index(jen.Lit(i))

	var raw *jen.Statement
	var rawType string
	switch s {
	case decl.ScalarBool:
		raw, rawType = jen.Qual(wazeroAPI, "DecodeU32").Call(word).Op("!=").Lit(0), "bool"
	case decl.ScalarInt8, decl.ScalarInt16, decl.ScalarInt32:
		raw, rawType = jen.Qual(wazeroAPI, "DecodeI32").Call(word), "int32"
	case decl.ScalarUint8, decl.ScalarUint16, decl.ScalarUint32:
		raw, rawType = jen.Qual(wazeroAPI, "DecodeU32").Call(word), "uint32"
	case decl.ScalarInt, decl.ScalarInt64:
		raw, rawType = jen.Int64().Call(word), "int64"
	case decl.ScalarFloat32:
		raw, rawType = jen.Qual(wazeroAPI, "DecodeF32").Call(word), "float32"
	case decl.ScalarFloat64:
		raw, rawType = jen.Qual(wazeroAPI, "DecodeF64").Call(word), "float64"
	default:
		raw, rawType = word, "uint64"
	}
	if typ == rawType {
		return raw
	}
	return jen.Id(typ).Call(raw)
}

// encodeArg converts proxy parameter name of type typ to its extern
// argument type.
func encodeArg(s decl.Scalar, typ, name string) jen.Code {
	arg := jen.Id(name)
	if s == decl.ScalarBool {
		if typ != "bool" {
			arg = jen.Bool().Call(arg)
		}
		return jen.Id(boolWordFunc).Call(arg)
	}
	if typ == s.ABIType() {
		return arg
	}
	return jen.Id(s.ABIType()).Call(arg)
}

// abiType renders the extern parameter type for a scalar.
func abiType(s decl.Scalar) jen.Code {
	return jen.Id(s.ABIType())
}
