//go:build !wasip1

package wasm

import (
	"sync/atomic"

	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger sets the logger that receives Log calls outside wasm.
// A nil logger discards messages.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.With(zap.String("component", "wasm-guest")))
}

// Log writes msg to the logger set with SetLogger at level.
func Log(level protocol.LogLevel, msg string) {
	l := logger.Load()
	switch level {
	case protocol.LogLevelDebug:
		l.Debug(msg)
	case protocol.LogLevelInfo:
		l.Info(msg)
	case protocol.LogLevelWarn:
		l.Warn(msg)
	case protocol.LogLevelError:
		l.Error(msg)
	default:
		l.Info(msg, zap.Uint32("level", uint32(level)))
	}
}
