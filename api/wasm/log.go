package wasm

import (
	"fmt"

	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

// Logf formats according to a format specifier and logs the result.
func Logf(level protocol.LogLevel, format string, args ...any) {
	Log(level, fmt.Sprintf(format, args...))
}

// Debug logs msg at debug level.
func Debug(msg string) { Log(protocol.LogLevelDebug, msg) }

// Info logs msg at info level.
func Info(msg string) { Log(protocol.LogLevelInfo, msg) }

// Warn logs msg at warn level.
func Warn(msg string) { Log(protocol.LogLevelWarn, msg) }

// Error logs msg at error level.
func Error(msg string) { Log(protocol.LogLevelError, msg) }
