package codec

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"slices"
)

// maxDepth bounds recursion through pointers and nested containers so cyclic
// data fails instead of overflowing the stack.
const maxDepth = 512

var (
	binaryMarshalerType   = reflect.TypeFor[encoding.BinaryMarshaler]()
	binaryUnmarshalerType = reflect.TypeFor[encoding.BinaryUnmarshaler]()
)

type binaryCodec struct{}

func (binaryCodec) Name() string { return "binary" }

func (binaryCodec) Encode(v any, w Width) ([]byte, error) {
	if !w.Valid() {
		return nil, invalidWidth(PhaseEncode, w)
	}
	if v == nil {
		return nil, &Error{Phase: PhaseEncode, Kind: KindUnsupported, Detail: "nil interface value"}
	}

	e := &encoder{w: w, buf: make([]byte, 0, 64)}
	if err := e.value(addressable(reflect.ValueOf(v))); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf   []byte
	path  []string
	depth int
	w     Width
}

func (e *encoder) fail(kind Kind, t reflect.Type, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   kind,
		GoType: t.String(),
		Detail: fmt.Sprintf(format, args...),
		Path:   slices.Clone(e.path),
	}
}

func (e *encoder) prefix(t reflect.Type, n int) error {
	if uint64(n) > e.w.Max() {
		return e.fail(KindOverflow, t, "length %d exceeds %s prefix", n, e.w)
	}
	e.buf = appendLen(e.buf, e.w, uint64(n))
	return nil
}

func (e *encoder) value(v reflect.Value) error {
	t := v.Type()

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return e.fail(KindUnsupported, t, "nesting deeper than %d (cyclic value?)", maxDepth)
	}

	if usesBinaryMarshaler(t) {
		return e.marshaler(v)
	}

	switch t.Kind() {
	case reflect.Bool:
		if v.Bool() {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case reflect.Int8:
		e.buf = append(e.buf, byte(v.Int()))
	case reflect.Int16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Int()))
	case reflect.Int32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Int()))
	case reflect.Int, reflect.Int64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v.Int()))
	case reflect.Uint8:
		e.buf = append(e.buf, byte(v.Uint()))
	case reflect.Uint16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.Uint()))
	case reflect.Uint32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.Uint())
	case reflect.Float32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v.Float()))
	case reflect.String:
		s := v.String()
		if err := e.prefix(t, len(s)); err != nil {
			return err
		}
		e.buf = append(e.buf, s...)
	case reflect.Slice:
		return e.slice(v)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := e.value(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		return e.mapValue(v)
	case reflect.Pointer:
		if v.IsNil() {
			e.buf = append(e.buf, 0)
			return nil
		}
		e.buf = append(e.buf, 1)
		return e.value(v.Elem())
	case reflect.Struct:
		for _, i := range wireFields(t) {
			e.path = append(e.path, t.Field(i).Name)
			if err := e.value(v.Field(i)); err != nil {
				return err
			}
			e.path = e.path[:len(e.path)-1]
		}
	default:
		return e.fail(KindUnsupported, t, "%s values cannot cross the boundary", t.Kind())
	}
	return nil
}

// present writes the presence byte that keeps nil and empty containers
// apart, and reports whether contents follow.
func (e *encoder) present(v reflect.Value) bool {
	if v.IsNil() {
		e.buf = append(e.buf, 0)
		return false
	}
	e.buf = append(e.buf, 1)
	return true
}

func (e *encoder) slice(v reflect.Value) error {
	t := v.Type()
	if !e.present(v) {
		return nil
	}
	if t.Elem().Kind() == reflect.Uint8 && !usesBinaryMarshaler(t.Elem()) {
		b := v.Bytes()
		if err := e.prefix(t, len(b)); err != nil {
			return err
		}
		e.buf = append(e.buf, b...)
		return nil
	}

	if err := e.prefix(t, v.Len()); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.value(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// mapValue writes entries ordered by their encoded key so equal maps always
// produce equal bytes.
func (e *encoder) mapValue(v reflect.Value) error {
	t := v.Type()
	if !e.present(v) {
		return nil
	}
	if err := e.prefix(t, v.Len()); err != nil {
		return err
	}

	type entry struct {
		key []byte
		val reflect.Value
	}
	entries := make([]entry, 0, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		ke := &encoder{w: e.w, depth: e.depth, path: e.path}
		if err := ke.value(addressable(iter.Key())); err != nil {
			return err
		}
		entries = append(entries, entry{key: ke.buf, val: addressable(iter.Value())})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return bytes.Compare(a.key, b.key)
	})

	for _, ent := range entries {
		e.buf = append(e.buf, ent.key...)
		if err := e.value(ent.val); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) marshaler(v reflect.Value) error {
	t := v.Type()
	var m encoding.BinaryMarshaler
	if t.Implements(binaryMarshalerType) {
		m = v.Interface().(encoding.BinaryMarshaler)
	} else {
		m = v.Addr().Interface().(encoding.BinaryMarshaler)
	}

	b, err := m.MarshalBinary()
	if err != nil {
		failure := e.fail(KindMarshaler, t, "MarshalBinary failed")
		failure.Cause = err
		return failure
	}
	if err := e.prefix(t, len(b)); err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	return nil
}

// usesBinaryMarshaler reports whether values of t are encoded through
// encoding.BinaryMarshaler. Both directions must be implemented, otherwise
// the structural encoding is used so decode stays symmetric.
func usesBinaryMarshaler(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		return false
	}
	pt := reflect.PointerTo(t)
	return (t.Implements(binaryMarshalerType) || pt.Implements(binaryMarshalerType)) &&
		pt.Implements(binaryUnmarshalerType)
}

// wireFields lists the indices of struct fields that take part in encoding.
// Unexported fields and fields tagged `narrow:"-"` are skipped.
func wireFields(t reflect.Type) []int {
	fields := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("narrow") == "-" {
			continue
		}
		fields = append(fields, i)
	}
	return fields
}

// addressable returns v itself when it can be addressed, or an addressable
// copy otherwise, so pointer-receiver marshalers are always reachable.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}
