package decl

import "fmt"

// Scalar is a Go type that can be passed directly through a narrow entry point.
type Scalar int

const (
	ScalarInvalid Scalar = iota
	ScalarBool
	ScalarInt8
	ScalarInt16
	ScalarInt32
	ScalarInt64
	ScalarInt
	ScalarUint8
	ScalarUint16
	ScalarUint32
	ScalarUint64
	ScalarUint
	ScalarUintptr
	ScalarFloat32
	ScalarFloat64
)

// ValueKind is a WebAssembly core value type.
type ValueKind int

const (
	ValueI32 ValueKind = iota
	ValueI64
	ValueF32
	ValueF64
)

func (k ValueKind) String() string {
	switch k {
	case ValueI32:
		return "i32"
	case ValueI64:
		return "i64"
	case ValueF32:
		return "f32"
	case ValueF64:
		return "f64"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

var scalarNames = map[string]Scalar{
	"bool":    ScalarBool,
	"int8":    ScalarInt8,
	"int16":   ScalarInt16,
	"int32":   ScalarInt32,
	"rune":    ScalarInt32,
	"int64":   ScalarInt64,
	"int":     ScalarInt,
	"uint8":   ScalarUint8,
	"byte":    ScalarUint8,
	"uint16":  ScalarUint16,
	"uint32":  ScalarUint32,
	"uint64":  ScalarUint64,
	"uint":    ScalarUint,
	"uintptr": ScalarUintptr,
	"float32": ScalarFloat32,
	"float64": ScalarFloat64,
}

// LookupScalar resolves a predeclared Go type name.
func LookupScalar(name string) (Scalar, bool) {
	s, ok := scalarNames[name]
	return s, ok
}

// String returns the canonical Go name of the scalar.
func (s Scalar) String() string {
	switch s {
	case ScalarBool:
		return "bool"
	case ScalarInt8:
		return "int8"
	case ScalarInt16:
		return "int16"
	case ScalarInt32:
		return "int32"
	case ScalarInt64:
		return "int64"
	case ScalarInt:
		return "int"
	case ScalarUint8:
		return "uint8"
	case ScalarUint16:
		return "uint16"
	case ScalarUint32:
		return "uint32"
	case ScalarUint64:
		return "uint64"
	case ScalarUint:
		return "uint"
	case ScalarUintptr:
		return "uintptr"
	case ScalarFloat32:
		return "float32"
	case ScalarFloat64:
		return "float64"
	default:
		return "invalid"
	}
}

// Wasm returns the core value type the scalar is passed as.
func (s Scalar) Wasm() ValueKind {
	switch s {
	case ScalarInt, ScalarInt64, ScalarUint, ScalarUint64, ScalarUintptr:
		return ValueI64
	case ScalarFloat32:
		return ValueF32
	case ScalarFloat64:
		return ValueF64
	default:
		return ValueI32
	}
}

// ABIType is the Go type used for the scalar in a //go:wasmimport
// declaration and in host-side stack decoding. Go restricts wasmimport
// parameters to fixed-size integers and floats, so narrower and
// platform-sized types are widened.
func (s Scalar) ABIType() string {
	switch s {
	case ScalarBool, ScalarUint8, ScalarUint16, ScalarUint32:
		return "uint32"
	case ScalarInt8, ScalarInt16, ScalarInt32:
		return "int32"
	case ScalarInt, ScalarInt64:
		return "int64"
	case ScalarUint, ScalarUint64, ScalarUintptr:
		return "uint64"
	case ScalarFloat32:
		return "float32"
	case ScalarFloat64:
		return "float64"
	default:
		return "invalid"
	}
}

// Signed reports whether the scalar is a signed integer.
func (s Scalar) Signed() bool {
	switch s {
	case ScalarInt8, ScalarInt16, ScalarInt32, ScalarInt64, ScalarInt:
		return true
	}
	return false
}
