package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Width is the size in bytes of a length prefix.
type Width uint8

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// DefaultWidth matches the u32 prefix convention generated stubs use unless
// configured otherwise.
const DefaultWidth = Width32

// ParseWidth converts a bit count (8, 16, 32, 64) into a Width.
func ParseWidth(bits int) (Width, error) {
	switch bits {
	case 8:
		return Width8, nil
	case 16:
		return Width16, nil
	case 32:
		return Width32, nil
	case 64:
		return Width64, nil
	default:
		return 0, fmt.Errorf("unsupported length prefix width: %d bits (must be 8, 16, 32 or 64)", bits)
	}
}

// Valid reports whether w is one of the defined widths.
func (w Width) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	}
	return false
}

// Bits returns the prefix size in bits.
func (w Width) Bits() int {
	return int(w) * 8
}

// Max returns the largest length representable by a prefix of this width.
func (w Width) Max() uint64 {
	switch w {
	case Width8:
		return math.MaxUint8
	case Width16:
		return math.MaxUint16
	case Width32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

func (w Width) String() string {
	return fmt.Sprintf("u%d", w.Bits())
}

// appendLen appends n as a w-sized little-endian prefix.
func appendLen(buf []byte, w Width, n uint64) []byte {
	switch w {
	case Width8:
		return append(buf, byte(n))
	case Width16:
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	case Width32:
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	default:
		return binary.LittleEndian.AppendUint64(buf, n)
	}
}

// readLen reads a w-sized little-endian prefix from data.
func readLen(data []byte, w Width) (uint64, bool) {
	if len(data) < int(w) {
		return 0, false
	}
	switch w {
	case Width8:
		return uint64(data[0]), true
	case Width16:
		return uint64(binary.LittleEndian.Uint16(data)), true
	case Width32:
		return uint64(binary.LittleEndian.Uint32(data)), true
	default:
		return binary.LittleEndian.Uint64(data), true
	}
}
