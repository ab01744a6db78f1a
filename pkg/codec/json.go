package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

// Encode produces a w-sized length prefix followed by the JSON document.
func (jsonCodec) Encode(v any, w Width) ([]byte, error) {
	if !w.Valid() {
		return nil, invalidWidth(PhaseEncode, w)
	}

	body, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{
			Phase:  PhaseEncode,
			Kind:   KindUnsupported,
			GoType: fmt.Sprintf("%T", v),
			Detail: "json marshal failed",
			Cause:  err,
		}
	}
	if uint64(len(body)) > w.Max() {
		return nil, &Error{
			Phase:  PhaseEncode,
			Kind:   KindOverflow,
			GoType: fmt.Sprintf("%T", v),
			Detail: fmt.Sprintf("document of %d bytes exceeds %s prefix", len(body), w),
		}
	}

	buf := make([]byte, 0, int(w)+len(body))
	buf = appendLen(buf, w, uint64(len(body)))
	return append(buf, body...), nil
}

func (jsonCodec) Decode(data []byte, w Width, v any) error {
	if !w.Valid() {
		return invalidWidth(PhaseDecode, w)
	}

	n, ok := readLen(data, w)
	if !ok {
		return &Error{Phase: PhaseDecode, Kind: KindTruncated, Detail: fmt.Sprintf("missing %s length prefix", w)}
	}
	body := data[int(w):]
	switch {
	case n > uint64(len(body)):
		return &Error{Phase: PhaseDecode, Kind: KindTruncated, Detail: fmt.Sprintf("prefix declares %d bytes, have %d", n, len(body))}
	case n < uint64(len(body)):
		return &Error{Phase: PhaseDecode, Kind: KindTrailing, Detail: fmt.Sprintf("%d bytes after document", uint64(len(body))-n)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		kind := KindInvalidData
		var target *json.InvalidUnmarshalError
		if errors.As(err, &target) {
			kind = KindInvalidTarget
		}
		return &Error{
			Phase:  PhaseDecode,
			Kind:   kind,
			GoType: fmt.Sprintf("%T", v),
			Detail: "json unmarshal failed",
			Cause:  err,
		}
	}
	return nil
}
