package boundary

import (
	"sync"

	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// maxToken is the largest token PackResult accepts.
const maxToken = 1<<31 - 1

// Ledger is the per-boundary state of keyed mode. Each Publish stores its
// result under a fresh token, so several results can be outstanding and
// read in any order. A result lives until it is released.
type Ledger struct {
	codec  codec.Codec
	width  codec.Width
	logger *zap.Logger
	limit  int

	mu      sync.Mutex
	next    uint32
	results map[uint32][]byte
}

// NewLedger creates an empty Ledger.
func NewLedger(opts ...Option) *Ledger {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Ledger{
		codec:   o.codec,
		width:   o.width,
		logger:  o.logger.With(zap.String("component", "boundary-ledger")),
		limit:   o.outstanding,
		next:    1,
		results: make(map[uint32][]byte),
	}
}

// Publish encodes v, stores it under a new token and returns
// protocol.PackResult(token, length). It returns protocol.Sentinel when v
// cannot be encoded, is too large to report, or the ledger is full.
func (l *Ledger) Publish(v any) int64 {
	data, err := l.codec.Encode(v, l.width)
	if err != nil {
		l.logger.Warn("Failed to encode result",
			zap.String("codec", l.codec.Name()),
			zap.Error(err),
		)
		return protocol.Sentinel
	}
	if len(data) > protocol.MaxResultLength {
		l.logger.Warn("Encoded result too large for keyed mode",
			zap.Int("length", len(data)),
		)
		return protocol.Sentinel
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit > 0 && len(l.results) >= l.limit {
		l.logger.Warn("Too many outstanding results",
			zap.Int("outstanding", len(l.results)),
			zap.Int("limit", l.limit),
		)
		return protocol.Sentinel
	}

	token := l.allocate()
	l.results[token] = data
	return protocol.PackResult(token, uint32(len(data))) //nolint:gosec // G115: bounded by MaxResultLength above
}

// allocate returns the next free token. Tokens start at 1 and wrap after
// maxToken. Callers hold l.mu and have checked there is room.
func (l *Ledger) allocate() uint32 {
	for {
		token := l.next
		if l.next == maxToken {
			l.next = 1
		} else {
			l.next++
		}
		if _, used := l.results[token]; !used {
			return token
		}
	}
}

// ReadByte returns the byte at addr of the result stored under token.
func (l *Ledger) ReadByte(token, addr uint32) (b byte, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, found := l.results[token]
	if !found || uint64(addr) >= uint64(len(data)) {
		return 0, false
	}
	return data[addr], true
}

// Release drops the result stored under token. It reports whether the token
// was outstanding.
func (l *Ledger) Release(token uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, found := l.results[token]; !found {
		return false
	}
	delete(l.results, token)
	return true
}

// Outstanding returns the number of unreleased results.
func (l *Ledger) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

// Codec returns the codec and width results are encoded with.
func (l *Ledger) Codec() (codec.Codec, codec.Width) {
	return l.codec, l.width
}
