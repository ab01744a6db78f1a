package guest

import "context"

// Link is the boundary call primitive: it invokes narrow entry points and
// the byte-read entry point. Arguments and results are raw core values.
type Link interface {
	// Call invokes the narrow entry point name and returns its signed result.
	Call(ctx context.Context, name string, args ...uint64) (int64, error)

	// ReadByte calls read_byte(addr).
	ReadByte(ctx context.Context, addr uint32) (byte, error)
}

// KeyedLink adds the readback entry points of keyed mode.
type KeyedLink interface {
	Link

	// ReadByteKeyed calls read_byte_keyed(token, addr).
	ReadByteKeyed(ctx context.Context, token, addr uint32) (byte, error)

	// Release calls release(token).
	Release(ctx context.Context, token uint32) error
}
