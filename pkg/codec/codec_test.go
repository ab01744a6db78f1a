package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int32
}

type reading struct {
	Sensor   string
	Values   []float64
	Origin   *point
	Tags     map[string]uint16
	Window   [2]int8
	Active   bool
	Taken    time.Time
	Raw      []byte
	Internal string `narrow:"-"`
	hidden   int
}

func sampleReading() reading {
	return reading{
		Sensor: "thermo-1",
		Values: []float64{21.5, -3.25, 0},
		Origin: &point{X: -4, Y: 9},
		Tags:   map[string]uint16{"floor": 3, "room": 12},
		Window: [2]int8{-1, 1},
		Active: true,
		Taken:  time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Raw:    []byte{0xde, 0xad},
	}
}

func roundTrip[T any](t *testing.T, c Codec, w Width, in T) T {
	t.Helper()
	data, err := c.Encode(in, w)
	require.NoError(t, err)

	var out T
	require.NoError(t, c.Decode(data, w, &out))
	return out
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, w := range []Width{Width8, Width16, Width32, Width64} {
		t.Run(w.String(), func(t *testing.T) {
			assert.Equal(t, 5, roundTrip(t, Binary, w, 5))
			assert.Equal(t, int64(-9_000_000_000), roundTrip(t, Binary, w, int64(-9_000_000_000)))
			assert.Equal(t, "héllo", roundTrip(t, Binary, w, "héllo"))
			assert.Equal(t, float32(1.5), roundTrip(t, Binary, w, float32(1.5)))
			assert.Equal(t, []string{"a", "", "c"}, roundTrip(t, Binary, w, []string{"a", "", "c"}))

			in := sampleReading()
			out := roundTrip(t, Binary, w, in)
			assert.True(t, in.Taken.Equal(out.Taken), "time mismatch: %v vs %v", in.Taken, out.Taken)
			out.Taken = in.Taken
			assert.Equal(t, in, out)
		})
	}
}

func TestBinarySkipsExcludedFields(t *testing.T) {
	in := sampleReading()
	in.Internal = "not on the wire"
	in.hidden = 42

	out := roundTrip(t, Binary, Width32, in)
	assert.Empty(t, out.Internal)
	assert.Zero(t, out.hidden)
}

func TestBinaryNilAndEmptyContainers(t *testing.T) {
	type holder struct {
		S []int
		M map[string]int
		P *int
	}

	empty := roundTrip(t, Binary, Width32, holder{S: []int{}, M: map[string]int{}})
	assert.NotNil(t, empty.S)
	assert.Empty(t, empty.S)
	assert.NotNil(t, empty.M)
	assert.Empty(t, empty.M)
	assert.Nil(t, empty.P)

	zero := roundTrip(t, Binary, Width32, holder{})
	assert.Nil(t, zero.S)
	assert.Nil(t, zero.M)

	raw := roundTrip(t, Binary, Width16, []byte{})
	assert.NotNil(t, raw)
	assert.Empty(t, raw)
	assert.Nil(t, roundTrip(t, Binary, Width16, []byte(nil)))
}

func TestBinaryMapEncodingIsDeterministic(t *testing.T) {
	m := map[string]int{}
	for _, k := range strings.Split("q w e r t y u i o p a s d f g h j k l", " ") {
		m[k] = len(k)
	}

	first, err := Binary.Encode(m, Width32)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Binary.Encode(m, Width32)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBinaryLayout(t *testing.T) {
	data, err := Binary.Encode("hi", Width16)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 'h', 'i'}, data)

	data, err = Binary.Encode(int32(-2), Width8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, data)

	data, err = Binary.Encode(&point{X: 1, Y: 2}, Width8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 0, 0, 0, 2, 0, 0, 0}, data)

	data, err = Binary.Encode([]uint16{7}, Width8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 7, 0}, data)

	data, err = Binary.Encode([]uint16(nil), Width8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)

	data, err = Binary.Encode(map[string]bool{}, Width8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, data)
}

func TestBinaryEncodeFailures(t *testing.T) {
	tests := []struct {
		name  string
		value any
		width Width
		kind  Kind
	}{
		{name: "nil interface", value: nil, width: Width32, kind: KindUnsupported},
		{name: "channel", value: make(chan int), width: Width32, kind: KindUnsupported},
		{name: "function field", value: struct{ F func() }{}, width: Width32, kind: KindUnsupported},
		{name: "interface field", value: struct{ V any }{V: 1}, width: Width32, kind: KindUnsupported},
		{name: "complex", value: complex(1, 2), width: Width32, kind: KindUnsupported},
		{name: "string over u8 prefix", value: strings.Repeat("x", 256), width: Width8, kind: KindOverflow},
		{name: "bad width", value: 1, width: Width(3), kind: KindInvalidWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Binary.Encode(tt.value, tt.width)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEncode)
			assert.ErrorIs(t, err, &Error{Phase: PhaseEncode, Kind: tt.kind})
			assert.NotErrorIs(t, err, ErrDecode)
		})
	}
}

func TestBinaryDecodeFailures(t *testing.T) {
	var n int32
	var s string
	var b bool
	var xs []int64

	tests := []struct {
		name   string
		data   []byte
		target any
		kind   Kind
	}{
		{name: "truncated scalar", data: []byte{1, 2}, target: &n, kind: KindTruncated},
		{name: "trailing bytes", data: []byte{1, 0, 0, 0, 9}, target: &n, kind: KindTrailing},
		{name: "bad bool", data: []byte{7}, target: &b, kind: KindInvalidData},
		{name: "string longer than input", data: []byte{9, 0, 0, 0, 'a'}, target: &s, kind: KindTruncated},
		{name: "huge slice count", data: []byte{1, 0xff, 0xff, 0xff, 0x7f}, target: &xs, kind: KindTruncated},
		{name: "bad presence byte", data: []byte{2, 0, 0, 0, 0}, target: &xs, kind: KindInvalidData},
		{name: "non-pointer target", data: []byte{1, 0, 0, 0}, target: n, kind: KindInvalidTarget},
		{name: "nil pointer target", data: []byte{1, 0, 0, 0}, target: (*int32)(nil), kind: KindInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Binary.Decode(tt.data, Width32, tt.target)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.kind, cerr.Kind)
		})
	}
}

func TestDecodeErrorCarriesFieldPath(t *testing.T) {
	data, err := Binary.Encode(point{X: 1, Y: 2}, Width32)
	require.NoError(t, err)

	var out point
	err = Binary.Decode(data[:6], Width32, &out)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"Y"}, cerr.Path)
	assert.Contains(t, cerr.Error(), "at Y")
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Name  string            `json:"name"`
		Count int               `json:"count"`
		Attrs map[string]string `json:"attrs"`
	}
	in := payload{Name: "x", Count: 3, Attrs: map[string]string{"b": "2", "a": "1"}}

	for _, w := range []Width{Width8, Width16, Width32, Width64} {
		assert.Equal(t, in, roundTrip(t, JSON, w, in))
	}

	data, err := JSON.Encode(42, Width16)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, '4', '2'}, data)
}

func TestJSONFailures(t *testing.T) {
	_, err := JSON.Encode(make(chan int), Width32)
	assert.ErrorIs(t, err, ErrEncode)

	_, err = JSON.Encode(strings.Repeat("y", 300), Width8)
	assert.ErrorIs(t, err, &Error{Phase: PhaseEncode, Kind: KindOverflow})

	var out int
	assert.ErrorIs(t, JSON.Decode([]byte{5, 0}, Width16, &out), &Error{Phase: PhaseDecode, Kind: KindTruncated})
	assert.ErrorIs(t, JSON.Decode([]byte{1, 0, '1', ' '}, Width16, &out), &Error{Phase: PhaseDecode, Kind: KindTrailing})
	assert.ErrorIs(t, JSON.Decode([]byte{1, 0, '{'}, Width16, &out), &Error{Phase: PhaseDecode, Kind: KindInvalidData})
	assert.ErrorIs(t, JSON.Decode([]byte{1, 0, '1'}, Width16, out), &Error{Phase: PhaseDecode, Kind: KindInvalidTarget})
}

func TestLookup(t *testing.T) {
	c, err := Lookup("binary")
	require.NoError(t, err)
	assert.Equal(t, Binary, c)

	c, err = Lookup("json")
	require.NoError(t, err)
	assert.Equal(t, JSON, c)

	_, err = Lookup("msgpack")
	assert.Error(t, err)
	assert.Equal(t, []string{"binary", "json"}, Names())
}

func TestParseWidth(t *testing.T) {
	for bits, want := range map[int]Width{8: Width8, 16: Width16, 32: Width32, 64: Width64} {
		got, err := ParseWidth(bits)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, bits, got.Bits())
	}

	_, err := ParseWidth(24)
	assert.Error(t, err)
	assert.False(t, Width(3).Valid())
	assert.Equal(t, uint64(255), Width8.Max())
}
