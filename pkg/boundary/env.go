package boundary

import (
	"sync"

	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// Publisher stores an encoded result and reports it as a narrow return value.
// A negative return means nothing was stored.
type Publisher interface {
	Publish(v any) int64
}

// Option configures an Env or a Ledger.
type Option func(*options)

type options struct {
	codec       codec.Codec
	width       codec.Width
	logger      *zap.Logger
	outstanding int
}

func defaultOptions() options {
	return options{
		codec:       codec.Binary,
		width:       codec.DefaultWidth,
		logger:      zap.NewNop(),
		outstanding: 1024,
	}
}

// WithCodec selects the codec results are encoded with.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithWidth selects the length-prefix width passed to the codec.
func WithWidth(w codec.Width) Option {
	return func(o *options) {
		o.width = w
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxOutstanding bounds how many unreleased results a Ledger holds.
// Ignored by Env.
func WithMaxOutstanding(n int) Option {
	return func(o *options) {
		o.outstanding = n
	}
}

// Env is the per-boundary shared state of single-slot mode. It holds the
// result buffer of the most recent wrapper call; every Publish overwrites it.
//
// Calls through one Env are logically sequential: a guest must read the
// whole result before making another call. The mutex only keeps the Go
// memory model happy, it does not make interleaved calls safe.
type Env struct {
	codec  codec.Codec
	width  codec.Width
	logger *zap.Logger

	mu  sync.Mutex
	buf []byte
}

// NewEnv creates an Env with an empty result buffer.
func NewEnv(opts ...Option) *Env {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Env{
		codec:  o.codec,
		width:  o.width,
		logger: o.logger.With(zap.String("component", "boundary-env")),
	}
}

// Publish encodes v into the result buffer and returns its length. On encode
// failure it returns protocol.Sentinel and leaves the buffer as it was.
func (e *Env) Publish(v any) int64 {
	data, err := e.codec.Encode(v, e.width)
	if err != nil {
		e.logger.Warn("Failed to encode result",
			zap.String("codec", e.codec.Name()),
			zap.Error(err),
		)
		return protocol.Sentinel
	}

	e.mu.Lock()
	e.buf = data
	e.mu.Unlock()

	return int64(len(data))
}

// ReadByte returns the byte at addr of the result buffer. ok is false when
// addr is past the last published length.
func (e *Env) ReadByte(addr uint32) (b byte, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if uint64(addr) >= uint64(len(e.buf)) {
		return 0, false
	}
	return e.buf[addr], true
}

// Len returns the length of the current result buffer.
func (e *Env) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf)
}

// Bytes returns a copy of the current result buffer.
func (e *Env) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.buf...)
}

// Codec returns the codec and width results are encoded with.
func (e *Env) Codec() (codec.Codec, codec.Width) {
	return e.codec, e.width
}
