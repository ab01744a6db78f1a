package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/guest"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
)

var _ guest.KeyedLink = (*ModuleLink)(nil)

// ModuleLink calls the exports of an instantiated host module from Go,
// standing in for a guest. It drives guest.Invoke in tests and the CLI.
type ModuleLink struct {
	module api.Module
}

// NewModuleLink links to module, usually the result of InstallHost.
func NewModuleLink(module api.Module) *ModuleLink {
	return &ModuleLink{module: module}
}

func (l *ModuleLink) call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := l.module.ExportedFunction(name)
	if fn == nil {
		return nil, &FunctionNotFoundError{ModuleName: l.module.Name(), FunctionName: name}
	}
	return fn.Call(ctx, args...)
}

// Call invokes a narrow entry point.
func (l *ModuleLink) Call(ctx context.Context, name string, args ...uint64) (int64, error) {
	res, err := l.call(ctx, name, args...)
	if err != nil {
		return 0, err
	}
	return int64(res[0]), nil
}

// ReadByte calls read_byte.
func (l *ModuleLink) ReadByte(ctx context.Context, addr uint32) (byte, error) {
	res, err := l.call(ctx, protocol.ReadByteExport, api.EncodeU32(addr))
	if err != nil {
		return 0, err
	}
	return byte(res[0]), nil
}

// ReadByteKeyed calls read_byte_keyed.
func (l *ModuleLink) ReadByteKeyed(ctx context.Context, token, addr uint32) (byte, error) {
	res, err := l.call(ctx, protocol.ReadByteKeyedExport, api.EncodeU32(token), api.EncodeU32(addr))
	if err != nil {
		return 0, err
	}
	return byte(res[0]), nil
}

// Release calls release.
func (l *ModuleLink) Release(ctx context.Context, token uint32) error {
	_, err := l.call(ctx, protocol.ReleaseExport, api.EncodeU32(token))
	return err
}
