package boundary

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// Func is the body of a narrow entry point. stack holds the raw parameter
// words in declaration order; the return value is a length, a packed keyed
// result, or a negative sentinel.
type Func func(ctx context.Context, stack []uint64) int64

// Export is one narrow entry point exposed to the guest. Generated host
// files return them from their Exports function.
type Export struct {
	// Name is the wasm export name, identical to the declared function name.
	Name string

	// Params are the core value types of the parameters.
	Params []api.ValueType

	// ParamNames are informational and show up in wazero stack traces.
	ParamNames []string

	Func Func
}

// Middleware wraps the Func of a named export.
// Middleware runs in registration order, the first one outermost.
type Middleware func(name string, next Func) Func

// Recover converts a panic inside an export into protocol.Sentinel, so a
// failing body looks to the guest like any other missing result.
func Recover(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(name string, next Func) Func {
		return func(ctx context.Context, stack []uint64) (ret int64) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Recovered panic in boundary export",
						zap.String("export", name),
						zap.String("panic", fmt.Sprint(r)),
					)
					ret = protocol.Sentinel
				}
			}()
			return next(ctx, stack)
		}
	}
}

// Trace logs every call at debug level with its return value.
func Trace(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(name string, next Func) Func {
		return func(ctx context.Context, stack []uint64) int64 {
			ret := next(ctx, stack)
			logger.Debug("Boundary call",
				zap.String("export", name),
				zap.Int64("result", ret),
			)
			return ret
		}
	}
}

func chain(name string, fn Func, mw []Middleware) Func {
	for i := len(mw) - 1; i >= 0; i-- {
		fn = mw[i](name, fn)
	}
	return fn
}

// HostFunction is an extra host export that does not follow the narrow
// result convention, such as log_message.
type HostFunction struct {
	Name        string
	Func        api.GoModuleFunc
	Params      []api.ValueType
	ParamNames  []string
	Results     []api.ValueType
	ResultNames []string
}
