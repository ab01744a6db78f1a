// Package codec provides the encode/decode capability used on both sides of
// the boundary.
//
// A host wrapper encodes its return value into a byte sequence, reports the
// length, and the guest pulls the bytes back and decodes them. The decoder
// needs nothing but the bytes and the target type, so every encoding here is
// deterministic and self-describing.
//
// # Length prefixes
//
// Variable-sized values (strings, byte slices, slices, maps, binary-marshaled
// values) are preceded by their length. Width selects how many bytes that
// prefix occupies:
//
//	Width8   1 byte   max 255
//	Width16  2 bytes  max 65535
//	Width32  4 bytes  max 4294967295
//	Width64  8 bytes
//
// Both sides must agree on the width; generated stubs carry it as a constant.
//
// # Binary layout
//
//	Go type                     Encoding (little endian)
//	─────────────────────────────────────────────────────
//	bool                        1 byte, 0 or 1
//	int8/uint8                  1 byte
//	int16/uint16                2 bytes
//	int32/uint32/float32        4 bytes
//	int/uint/int64/uint64       8 bytes
//	uintptr/float64             8 bytes
//	string                      prefix + bytes
//	[]byte                      1 byte presence + prefix + bytes
//	[]T                         1 byte presence + prefix (count) + elements
//	[N]T                        N elements
//	map[K]V                     1 byte presence + prefix (count) + entries
//	                            sorted by key bytes
//	*T                          1 byte presence + T when present
//	struct                      exported fields in declaration order
//	encoding.BinaryMarshaler    prefix + MarshalBinary output
//
// Interfaces, channels, functions and complex numbers are rejected at encode
// time. Slices and maps carry a presence byte like pointers, so nil and
// empty values decode back to what was encoded.
package codec
