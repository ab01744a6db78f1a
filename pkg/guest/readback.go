package guest

import (
	"context"

	"github.com/woxQAQ/narrowcall/pkg/codec"
)

// Readback pulls size bytes through read_byte, one address at a time from
// offset 0, and decodes them. size must come from a host wrapper's
// non-negative return value; it is not validated again.
func Readback[T any](ctx context.Context, link Link, size int64, c codec.Codec, w codec.Width) (T, error) {
	var v T
	buf := make([]byte, 0, size)
	for addr := int64(0); addr < size; addr++ {
		b, err := link.ReadByte(ctx, uint32(addr)) //nolint:gosec // G115: size is a wasm32 length
		if err != nil {
			return v, err
		}
		buf = append(buf, b)
	}
	if err := c.Decode(buf, w, &v); err != nil {
		return v, &DecodeError{Size: size, Err: err}
	}
	return v, nil
}

// ReadbackKeyed is Readback for a result held under token. The token is
// released afterwards whether or not decoding succeeds.
func ReadbackKeyed[T any](ctx context.Context, link KeyedLink, token, size uint32, c codec.Codec, w codec.Width) (v T, err error) {
	defer func() {
		if rerr := link.Release(ctx, token); rerr != nil && err == nil {
			err = rerr
		}
	}()

	buf := make([]byte, 0, size)
	for addr := uint32(0); addr < size; addr++ {
		b, rerr := link.ReadByteKeyed(ctx, token, addr)
		if rerr != nil {
			return v, rerr
		}
		buf = append(buf, b)
	}
	if derr := c.Decode(buf, w, &v); derr != nil {
		return v, &DecodeError{Size: int64(size), Err: derr}
	}
	return v, nil
}
