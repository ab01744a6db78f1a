package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/boundary"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// maxLogMessage bounds a single log_message call.
const maxLogMessage = 64 << 10

// HostFunctions holds host exports that sit beside the narrow entry points.
type HostFunctions struct {
	logger *zap.Logger
}

// NewHostFunctions creates host functions logging through logger.
func NewHostFunctions(logger *zap.Logger) *HostFunctions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostFunctions{
		logger: logger.With(zap.String("component", "wasm-guest")),
	}
}

// LogMessage returns the log_message(level, ptr, length) export, which lets
// a guest write to the host log.
func (h *HostFunctions) LogMessage() boundary.HostFunction {
	return boundary.HostFunction{
		Name: protocol.LogMessageExport,
		Func: api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			h.logMessage(ctx, mod,
				protocol.LogLevel(api.DecodeU32(stack[0])),
				api.DecodeU32(stack[1]),
				api.DecodeU32(stack[2]),
			)
		}),
		Params:     []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
		ParamNames: []string{"level", "ptr", "length"},
	}
}

func (h *HostFunctions) logMessage(_ context.Context, mod api.Module, level protocol.LogLevel, ptr, length uint32) {
	mem := NewMemory(mod)
	if mem == nil {
		h.logger.Error("log_message called by a module without memory",
			zap.String("module", mod.Name()),
		)
		return
	}
	if length > maxLogMessage {
		length = maxLogMessage
	}

	msg, err := mem.ReadString(ptr, length)
	if err != nil {
		h.logger.Error("Failed to read log message from guest memory",
			zap.String("module", mod.Name()),
			zap.Error(err),
		)
		return
	}

	logger := h.logger.With(zap.String("module", mod.Name()))
	switch level {
	case protocol.LogLevelDebug:
		logger.Debug(msg)
	case protocol.LogLevelInfo:
		logger.Info(msg)
	case protocol.LogLevelWarn:
		logger.Warn(msg)
	case protocol.LogLevelError:
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}
