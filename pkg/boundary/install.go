package boundary

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// DuplicateExportError occurs when two exports of one host module share a
// name.
type DuplicateExportError struct {
	Module string
	Name   string
}

func (e *DuplicateExportError) Error() string {
	return fmt.Sprintf("duplicate export '%s' in host module '%s'", e.Name, e.Module)
}

// InstallConfig holds configuration for Install.
type InstallConfig struct {
	// ModuleName is the wasm import module name (default: "env").
	ModuleName string

	Logger     *zap.Logger
	Middleware []Middleware
	Functions  []HostFunction
}

// InstallOption configures Install.
type InstallOption func(*InstallConfig)

// WithModuleName sets the host module name.
func WithModuleName(name string) InstallOption {
	return func(c *InstallConfig) {
		c.ModuleName = name
	}
}

// WithInstallLogger sets the logger used by Install and the readback exports.
func WithInstallLogger(logger *zap.Logger) InstallOption {
	return func(c *InstallConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMiddleware appends middleware applied to every narrow export.
func WithMiddleware(mw ...Middleware) InstallOption {
	return func(c *InstallConfig) {
		c.Middleware = append(c.Middleware, mw...)
	}
}

// WithHostFunction adds an extra export to the host module.
func WithHostFunction(fn HostFunction) InstallOption {
	return func(c *InstallConfig) {
		c.Functions = append(c.Functions, fn)
	}
}

func defaultInstallConfig() InstallConfig {
	return InstallConfig{
		ModuleName: protocol.DefaultModule,
		Logger:     zap.NewNop(),
	}
}

// Build returns a host module builder exporting exports together with the
// readback functions for pub: read_byte for an *Env, read_byte_keyed and
// release for a *Ledger. The caller compiles or instantiates it.
func Build(runtime wazero.Runtime, pub Publisher, exports []Export, opts ...InstallOption) (wazero.HostModuleBuilder, error) {
	cfg := defaultInstallConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger.With(
		zap.String("component", "boundary-install"),
		zap.String("module", cfg.ModuleName),
	)

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	seen := make(map[string]bool)
	claim := func(name string) error {
		if seen[name] {
			return &DuplicateExportError{Module: cfg.ModuleName, Name: name}
		}
		seen[name] = true
		return nil
	}

	switch p := pub.(type) {
	case *Env:
		_ = claim(protocol.ReadByteExport)
		exportReadByte(builder, p, logger)
	case *Ledger:
		_ = claim(protocol.ReadByteKeyedExport)
		_ = claim(protocol.ReleaseExport)
		exportKeyed(builder, p, logger)
	default:
		return nil, fmt.Errorf("unsupported publisher %T", pub)
	}

	for _, exp := range exports {
		if err := claim(exp.Name); err != nil {
			return nil, err
		}
		fn := chain(exp.Name, exp.Func, cfg.Middleware)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeI64(fn(ctx, stack))
			}), exp.Params, []api.ValueType{api.ValueTypeI64}).
			WithParameterNames(exp.ParamNames...).
			WithName(exp.Name).
			Export(exp.Name)
	}

	for _, hf := range cfg.Functions {
		if err := claim(hf.Name); err != nil {
			return nil, err
		}
		fb := builder.NewFunctionBuilder().
			WithGoModuleFunction(hf.Func, hf.Params, hf.Results).
			WithName(hf.Name)
		if len(hf.ParamNames) > 0 {
			fb = fb.WithParameterNames(hf.ParamNames...)
		}
		if len(hf.ResultNames) > 0 {
			fb = fb.WithResultNames(hf.ResultNames...)
		}
		fb.Export(hf.Name)
	}

	logger.Debug("Host module built",
		zap.Int("exports", len(exports)),
		zap.Int("host_functions", len(cfg.Functions)),
	)
	return builder, nil
}

// Install builds and instantiates the host module. Guests importing from
// the module name must be instantiated afterwards.
func Install(ctx context.Context, runtime wazero.Runtime, pub Publisher, exports []Export, opts ...InstallOption) (api.Module, error) {
	builder, err := Build(runtime, pub, exports, opts...)
	if err != nil {
		return nil, err
	}
	return builder.Instantiate(ctx)
}

func exportReadByte(builder wazero.HostModuleBuilder, env *Env, logger *zap.Logger) {
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			addr := api.DecodeU32(stack[0])
			b, ok := env.ReadByte(addr)
			if !ok {
				logger.Debug("read_byte out of range",
					zap.Uint32("addr", addr),
					zap.Int("len", env.Len()),
				)
			}
			stack[0] = api.EncodeU32(uint32(b))
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		WithParameterNames("addr").
		Export(protocol.ReadByteExport)
}

func exportKeyed(builder wazero.HostModuleBuilder, ledger *Ledger, logger *zap.Logger) {
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			token, addr := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
			b, ok := ledger.ReadByte(token, addr)
			if !ok {
				logger.Debug("read_byte_keyed out of range",
					zap.Uint32("token", token),
					zap.Uint32("addr", addr),
				)
			}
			stack[0] = api.EncodeU32(uint32(b))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		WithParameterNames("token", "addr").
		Export(protocol.ReadByteKeyedExport)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			token := api.DecodeU32(stack[0])
			if !ledger.Release(token) {
				logger.Debug("release of unknown token", zap.Uint32("token", token))
			}
		}), []api.ValueType{api.ValueTypeI32}, nil).
		WithParameterNames("token").
		Export(protocol.ReleaseExport)
}
