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

// maxZeroSizeCount caps element counts for types whose encoding takes no
// bytes, where the remaining input cannot bound the count.
const maxZeroSizeCount = 1 << 20

func (binaryCodec) Decode(data []byte, w Width, v any) error {
	if !w.Valid() {
		return invalidWidth(PhaseDecode, w)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &Error{
			Phase:  PhaseDecode,
			Kind:   KindInvalidTarget,
			GoType: fmt.Sprintf("%T", v),
			Detail: "decode target must be a non-nil pointer",
		}
	}

	d := &decoder{data: data, w: w}
	if err := d.value(rv.Elem()); err != nil {
		return err
	}
	if d.off != len(d.data) {
		return d.fail(KindTrailing, rv.Elem().Type(), "%d of %d bytes left unread", len(d.data)-d.off, len(d.data))
	}
	return nil
}

type decoder struct {
	data  []byte
	path  []string
	off   int
	depth int
	w     Width
}

func (d *decoder) fail(kind Kind, t reflect.Type, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   kind,
		GoType: t.String(),
		Detail: fmt.Sprintf(format, args...),
		Path:   slices.Clone(d.path),
	}
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) take(t reflect.Type, n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, d.fail(KindTruncated, t, "need %d bytes at offset %d, have %d", n, d.off, d.remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// count reads a length prefix and checks it against what is left to read.
func (d *decoder) count(t reflect.Type, elem reflect.Type) (int, error) {
	n, ok := readLen(d.data[d.off:], d.w)
	if !ok {
		return 0, d.fail(KindTruncated, t, "missing %s length prefix at offset %d", d.w, d.off)
	}
	d.off += int(d.w)

	minSize := minEncodedSize(elem, d.w, 0)
	switch {
	case minSize == 0 && n > maxZeroSizeCount:
		return 0, d.fail(KindInvalidData, t, "count %d exceeds %d", n, maxZeroSizeCount)
	case minSize > 0 && n > uint64(d.remaining())/uint64(minSize):
		return 0, d.fail(KindTruncated, t, "count %d cannot fit in %d remaining bytes", n, d.remaining())
	}
	return int(n), nil
}

func (d *decoder) value(v reflect.Value) error {
	t := v.Type()

	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxDepth {
		return d.fail(KindUnsupported, t, "nesting deeper than %d", maxDepth)
	}

	if usesBinaryMarshaler(t) {
		return d.unmarshaler(v)
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := d.take(t, 1)
		if err != nil {
			return err
		}
		switch b[0] {
		case 0:
			v.SetBool(false)
		case 1:
			v.SetBool(true)
		default:
			return d.fail(KindInvalidData, t, "bool byte %#x", b[0])
		}
	case reflect.Int8:
		b, err := d.take(t, 1)
		if err != nil {
			return err
		}
		v.SetInt(int64(int8(b[0])))
	case reflect.Int16:
		b, err := d.take(t, 2)
		if err != nil {
			return err
		}
		v.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
	case reflect.Int32:
		b, err := d.take(t, 4)
		if err != nil {
			return err
		}
		v.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
	case reflect.Int, reflect.Int64:
		b, err := d.take(t, 8)
		if err != nil {
			return err
		}
		n := int64(binary.LittleEndian.Uint64(b))
		if v.OverflowInt(n) {
			return d.fail(KindOverflow, t, "%d does not fit", n)
		}
		v.SetInt(n)
	case reflect.Uint8:
		b, err := d.take(t, 1)
		if err != nil {
			return err
		}
		v.SetUint(uint64(b[0]))
	case reflect.Uint16:
		b, err := d.take(t, 2)
		if err != nil {
			return err
		}
		v.SetUint(uint64(binary.LittleEndian.Uint16(b)))
	case reflect.Uint32:
		b, err := d.take(t, 4)
		if err != nil {
			return err
		}
		v.SetUint(uint64(binary.LittleEndian.Uint32(b)))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		b, err := d.take(t, 8)
		if err != nil {
			return err
		}
		n := binary.LittleEndian.Uint64(b)
		if v.OverflowUint(n) {
			return d.fail(KindOverflow, t, "%d does not fit", n)
		}
		v.SetUint(n)
	case reflect.Float32:
		b, err := d.take(t, 4)
		if err != nil {
			return err
		}
		v.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case reflect.Float64:
		b, err := d.take(t, 8)
		if err != nil {
			return err
		}
		v.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case reflect.String:
		n, err := d.count(t, reflect.TypeFor[byte]())
		if err != nil {
			return err
		}
		b, err := d.take(t, n)
		if err != nil {
			return err
		}
		v.SetString(string(b))
	case reflect.Slice:
		return d.slice(v)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := d.value(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		return d.mapValue(v)
	case reflect.Pointer:
		b, err := d.take(t, 1)
		if err != nil {
			return err
		}
		switch b[0] {
		case 0:
			v.SetZero()
		case 1:
			p := reflect.New(t.Elem())
			if err := d.value(p.Elem()); err != nil {
				return err
			}
			v.Set(p)
		default:
			return d.fail(KindInvalidData, t, "pointer presence byte %#x", b[0])
		}
	case reflect.Struct:
		for _, i := range wireFields(t) {
			d.path = append(d.path, t.Field(i).Name)
			if err := d.value(v.Field(i)); err != nil {
				return err
			}
			d.path = d.path[:len(d.path)-1]
		}
	default:
		return d.fail(KindUnsupported, t, "%s values cannot cross the boundary", t.Kind())
	}
	return nil
}

// present reads the presence byte of a slice or map. A nil container
// leaves v zeroed.
func (d *decoder) present(v reflect.Value) (bool, error) {
	t := v.Type()
	b, err := d.take(t, 1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		v.SetZero()
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.fail(KindInvalidData, t, "presence byte %#x", b[0])
	}
}

func (d *decoder) slice(v reflect.Value) error {
	t := v.Type()
	if ok, err := d.present(v); !ok {
		return err
	}
	n, err := d.count(t, t.Elem())
	if err != nil {
		return err
	}

	if t.Elem().Kind() == reflect.Uint8 && !usesBinaryMarshaler(t.Elem()) {
		b, err := d.take(t, n)
		if err != nil {
			return err
		}
		v.SetBytes(bytes.Clone(b))
		return nil
	}

	s := reflect.MakeSlice(t, n, n)
	for i := 0; i < n; i++ {
		if err := d.value(s.Index(i)); err != nil {
			return err
		}
	}
	v.Set(s)
	return nil
}

func (d *decoder) mapValue(v reflect.Value) error {
	t := v.Type()
	if ok, err := d.present(v); !ok {
		return err
	}
	n, err := d.count(t, t.Key())
	if err != nil {
		return err
	}

	m := reflect.MakeMapWithSize(t, n)
	for i := 0; i < n; i++ {
		k := reflect.New(t.Key()).Elem()
		if err := d.value(k); err != nil {
			return err
		}
		if m.MapIndex(k).IsValid() {
			return d.fail(KindInvalidData, t, "duplicate map key %v", k)
		}
		val := reflect.New(t.Elem()).Elem()
		if err := d.value(val); err != nil {
			return err
		}
		m.SetMapIndex(k, val)
	}
	v.Set(m)
	return nil
}

func (d *decoder) unmarshaler(v reflect.Value) error {
	t := v.Type()
	n, err := d.count(t, reflect.TypeFor[byte]())
	if err != nil {
		return err
	}
	b, err := d.take(t, n)
	if err != nil {
		return err
	}

	u := v.Addr().Interface().(encoding.BinaryUnmarshaler)
	if err := u.UnmarshalBinary(bytes.Clone(b)); err != nil {
		failure := d.fail(KindMarshaler, t, "UnmarshalBinary failed")
		failure.Cause = err
		return failure
	}
	return nil
}

// minEncodedSize is the fewest bytes any value of t can encode to.
func minEncodedSize(t reflect.Type, w Width, depth int) int {
	if depth > maxDepth {
		return 0
	}
	if usesBinaryMarshaler(t) {
		return int(w)
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8, reflect.Pointer, reflect.Slice, reflect.Map:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Uintptr, reflect.Float64:
		return 8
	case reflect.String:
		return int(w)
	case reflect.Array:
		return t.Len() * minEncodedSize(t.Elem(), w, depth+1)
	case reflect.Struct:
		size := 0
		for _, i := range wireFields(t) {
			size += minEncodedSize(t.Field(i).Type, w, depth+1)
		}
		return size
	default:
		return 0
	}
}
