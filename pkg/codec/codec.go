package codec

import (
	"fmt"
	"sort"
)

// Codec converts values to and from the byte sequences stored in the result
// buffer. Implementations must be deterministic: equal values always produce
// equal bytes.
type Codec interface {
	// Name identifies the codec in configuration and generated code.
	Name() string

	// Encode serializes v using length prefixes of width w.
	Encode(v any, w Width) ([]byte, error)

	// Decode deserializes data into the value pointed to by v.
	// The whole of data must be consumed.
	Decode(data []byte, w Width, v any) error
}

var (
	// Binary is the compact reflection-based codec.
	Binary Codec = binaryCodec{}

	// JSON wraps encoding/json output in a length prefix.
	JSON Codec = jsonCodec{}
)

var codecs = map[string]Codec{
	Binary.Name(): Binary,
	JSON.Name():   JSON,
}

// Lookup returns the built-in codec registered under name.
func Lookup(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (must be one of: %v)", name, Names())
	}
	return c, nil
}

// Names returns the sorted names of all built-in codecs.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func invalidWidth(phase Phase, w Width) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidWidth,
		Detail: fmt.Sprintf("width %d bytes (must be 1, 2, 4 or 8)", uint8(w)),
	}
}
