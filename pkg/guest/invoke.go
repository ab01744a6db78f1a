package guest

import (
	"context"
	"fmt"

	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

// Caller drives proxied calls over a Link. The codec, width and mode must
// match the host side.
type Caller struct {
	link  Link
	codec codec.Codec
	width codec.Width
	mode  protocol.Mode
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithCodec sets the codec results are decoded with. Defaults to codec.Binary.
func WithCodec(c codec.Codec) CallerOption {
	return func(cl *Caller) {
		if c != nil {
			cl.codec = c
		}
	}
}

// WithWidth sets the length-prefix width. Defaults to codec.DefaultWidth.
func WithWidth(w codec.Width) CallerOption {
	return func(cl *Caller) {
		cl.width = w
	}
}

// WithMode selects single-slot or keyed readback. Defaults to single-slot.
func WithMode(m protocol.Mode) CallerOption {
	return func(cl *Caller) {
		cl.mode = m
	}
}

// NewCaller creates a Caller. Keyed mode requires link to be a KeyedLink.
func NewCaller(link Link, opts ...CallerOption) (*Caller, error) {
	c := &Caller{
		link:  link,
		codec: codec.Binary,
		width: codec.DefaultWidth,
		mode:  protocol.ModeSingle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", c.mode)
	}
	if !c.width.Valid() {
		return nil, fmt.Errorf("invalid width %d", uint8(c.width))
	}
	if _, ok := link.(KeyedLink); c.mode == protocol.ModeKeyed && !ok {
		return nil, fmt.Errorf("keyed mode needs a KeyedLink, got %T", link)
	}
	return c, nil
}

// Mode returns the readback mode.
func (c *Caller) Mode() protocol.Mode { return c.mode }

// Invoke calls the narrow entry point name with args and reconstructs its
// result. A negative return yields Absent without any reads.
func Invoke[T any](ctx context.Context, c *Caller, name string, args ...uint64) Outcome[T] {
	ret, err := c.link.Call(ctx, name, args...)
	if err != nil {
		return Failed[T](&CallError{Name: name, Err: err})
	}
	if ret < 0 {
		return Absent[T]()
	}

	var v T
	if c.mode == protocol.ModeKeyed {
		token, size := protocol.UnpackResult(ret)
		v, err = ReadbackKeyed[T](ctx, c.link.(KeyedLink), token, size, c.codec, c.width)
	} else {
		v, err = Readback[T](ctx, c.link, ret, c.codec, c.width)
	}
	if err != nil {
		return Failed[T](err)
	}
	return Present(v)
}
