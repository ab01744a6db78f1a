package wasm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/boundary"
	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/guest"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// calcWasm imports env.add(i64, i64) i64 and env.read_byte(i32) i32 and
// re-exports them as run and peek, the way a compiled guest proxy reaches
// the host.
var calcWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x0c, 0x02,
	0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	// import
	0x02, 0x1b, 0x02,
	0x03, 'e', 'n', 'v', 0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x03, 'e', 'n', 'v', 0x09, 'r', 'e', 'a', 'd', '_', 'b', 'y', 't', 'e', 0x00, 0x01,
	// function
	0x03, 0x03, 0x02, 0x00, 0x01,
	// export
	0x07, 0x0e, 0x02,
	0x03, 'r', 'u', 'n', 0x00, 0x02,
	0x04, 'p', 'e', 'e', 'k', 0x00, 0x03,
	// code
	0x0a, 0x11, 0x02,
	0x08, 0x00, 0x20, 0x00, 0x20, 0x01, 0x10, 0x00, 0x0b,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b,
}

// greetWasm exports memory holding "hello\x00world" at offset 16 and a
// greet function calling env.log_message(1, 16, 5).
var greetWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x0a, 0x02,
	0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00,
	// import
	0x02, 0x13, 0x01,
	0x03, 'e', 'n', 'v', 0x0b, 'l', 'o', 'g', '_', 'm', 'e', 's', 's', 'a', 'g', 'e', 0x00, 0x00,
	// function
	0x03, 0x02, 0x01, 0x01,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export
	0x07, 0x12, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'g', 'r', 'e', 'e', 't', 0x00, 0x01,
	// code
	0x0a, 0x0c, 0x01,
	0x0a, 0x00, 0x41, 0x01, 0x41, 0x10, 0x41, 0x05, 0x10, 0x00, 0x0b,
	// data
	0x0b, 0x11, 0x01,
	0x00, 0x41, 0x10, 0x0b, 0x0b, 'h', 'e', 'l', 'l', 'o', 0x00, 'w', 'o', 'r', 'l', 'd',
}

func addExport(pub boundary.Publisher) boundary.Export {
	return boundary.Export{
		Name:       "add",
		Params:     []api.ValueType{api.ValueTypeI64, api.ValueTypeI64},
		ParamNames: []string{"a", "b"},
		Func: func(_ context.Context, stack []uint64) int64 {
			return pub.Publish(int(int64(stack[0])) + int(int64(stack[1])))
		},
	}
}

type fixture struct {
	runtime *Runtime
	loader  *ModuleLoader
	manager *InstanceManager
}

func newFixture(t *testing.T, config *RuntimeConfig, logger *zap.Logger) *fixture {
	t.Helper()
	if config == nil {
		config = &RuntimeConfig{MaxInstances: 10}
	}
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	runtime := newTestRuntime(t, config)
	return &fixture{
		runtime: runtime,
		loader:  NewModuleLoader(runtime, logger),
		manager: NewInstanceManager(runtime, NewHostFunctions(logger), logger),
	}
}

func (f *fixture) installCalc(t *testing.T) *boundary.Env {
	t.Helper()
	env := boundary.NewEnv()
	_, err := f.manager.InstallHost(context.Background(), &HostConfig{
		Publisher: env,
		Exports:   []boundary.Export{addExport(env)},
	})
	require.NoError(t, err)
	return env
}

func (f *fixture) load(t *testing.T, name string, wasm []byte) {
	t.Helper()
	_, err := f.loader.LoadModuleFromMemory(context.Background(), name, wasm)
	require.NoError(t, err)
}

func TestLoadModuleFromMemoryCaches(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.loader.LoadModuleFromMemory(ctx, "calc", calcWasm)
	require.NoError(t, err)
	second, err := f.loader.LoadModuleFromMemory(ctx, "calc", nil)
	require.NoError(t, err)
	assert.Same(t, first, second, "second load did not hit the cache")

	assert.Equal(t, []string{"env.add", "env.read_byte"}, first.Imports())
}

func TestLoadModuleInvalid(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.loader.LoadModuleFromMemory(context.Background(), "junk", []byte("not wasm"))
	var compErr *CompilationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "junk", compErr.ModuleName)
}

func TestModuleLoaderFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calc.wasm")
	require.NoError(t, os.WriteFile(path, calcWasm, 0o644))

	source := &FileModuleSource{Path: path}
	assert.Equal(t, "calc", source.Name())
	assert.Equal(t, int64(len(calcWasm)), source.Size())

	f := newFixture(t, nil, nil)
	mod, err := f.loader.LoadModuleFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, mod.Source)
}

func TestGuestCallsThroughBoundary(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	f.installCalc(t)
	f.load(t, "calc", calcWasm)

	inst, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "calc", InstanceID: "calc-1"})
	require.NoError(t, err)
	defer inst.Close(ctx)
	require.False(t, inst.Exited, "reactor-style guest reported as exited")

	res, err := inst.Call(ctx, "run", 2, 3)
	require.NoError(t, err)
	size := int64(res[0])

	want, err := codec.Binary.Encode(5, codec.DefaultWidth)
	require.NoError(t, err)
	require.Equal(t, int64(len(want)), size)

	data := make([]byte, 0, size)
	for addr := int64(0); addr < size; addr++ {
		b, err := inst.Call(ctx, "peek", uint64(addr))
		require.NoError(t, err, "peek(%d)", addr)
		data = append(data, byte(b[0]))
	}

	var got int
	require.NoError(t, codec.Binary.Decode(data, codec.DefaultWidth, &got))
	assert.Equal(t, 5, got)
}

func TestInstantiateMissingHost(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.load(t, "calc", calcWasm)

	_, err := f.manager.Instantiate(context.Background(), &InstanceConfig{ModuleName: "calc"})
	var instErr *InstantiationError
	assert.ErrorAs(t, err, &instErr)
}

func TestInstantiateUnknownModule(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.manager.Instantiate(context.Background(), &InstanceConfig{ModuleName: "nope"})
	var notFound *ModuleNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestInstanceLimit(t *testing.T) {
	f := newFixture(t, &RuntimeConfig{MaxInstances: 1}, nil)
	ctx := context.Background()
	f.installCalc(t)
	f.load(t, "calc", calcWasm)

	first, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "calc", InstanceID: "one"})
	require.NoError(t, err)

	_, err = f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "calc", InstanceID: "two"})
	var limitErr *InstanceLimitError
	require.ErrorAs(t, err, &limitErr)

	require.NoError(t, first.Close(ctx))
	second, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "calc", InstanceID: "two"})
	require.NoError(t, err, "Instantiate() after Close")
	_ = second.Close(ctx)
}

func TestInstanceCallMissingExport(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()
	f.installCalc(t)
	f.load(t, "calc", calcWasm)

	inst, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "calc"})
	require.NoError(t, err)
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "missing")
	var fnErr *FunctionNotFoundError
	assert.ErrorAs(t, err, &fnErr)
}

func TestInstallHostTwice(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.installCalc(t)

	_, err := f.manager.InstallHost(context.Background(), &HostConfig{Publisher: boundary.NewEnv()})
	var hostErr *HostModuleError
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, protocol.DefaultModule, hostErr.ModuleName)

	_, ok := f.manager.Host(protocol.DefaultModule)
	assert.True(t, ok, "Host(env) not found")
}

// log_message lives in the configured host module; guests built with
// api/wasm import it from env and need an env host to link.
func TestInstallHostCustomModuleName(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	env := boundary.NewEnv()
	host, err := f.manager.InstallHost(ctx, &HostConfig{
		ModuleName: "calc",
		Publisher:  env,
		Exports:    []boundary.Export{addExport(env)},
	})
	require.NoError(t, err)
	assert.NotNil(t, host.ExportedFunction(protocol.LogMessageExport))
	assert.NotNil(t, host.ExportedFunction("add"))

	_, ok := f.manager.Host(protocol.DefaultModule)
	assert.False(t, ok, "custom module name also installed env")

	f.load(t, "greet", greetWasm)
	_, err = f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "greet"})
	var instErr *InstantiationError
	require.ErrorAs(t, err, &instErr, "env.log_message resolved without an env host")

	_, err = f.manager.InstallHost(ctx, &HostConfig{Publisher: boundary.NewEnv()})
	require.NoError(t, err)
	inst, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "greet"})
	require.NoError(t, err)
	defer inst.Close(ctx)
	_, err = inst.Call(ctx, "greet")
	assert.NoError(t, err)
}

func TestLogMessageAndMemory(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := newFixture(t, nil, zap.New(core))
	ctx := context.Background()
	f.installCalc(t)
	f.load(t, "greet", greetWasm)

	inst, err := f.manager.Instantiate(ctx, &InstanceConfig{ModuleName: "greet", InstanceID: "greet-1"})
	require.NoError(t, err)
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("hello").FilterField(zap.String("module", "greet-1")).Len())

	mem := NewMemory(inst.Module())
	require.NotNil(t, mem)
	assert.EqualValues(t, 65536, mem.Size())

	s, err := mem.ReadString(16, 11)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	b, err := mem.ReadBytes(22, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(b))

	_, err = mem.ReadBytes(65535, 2)
	var memErr *MemoryAccessError
	assert.ErrorAs(t, err, &memErr)
}

func TestModuleLinkInvoke(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	env := boundary.NewEnv()
	host, err := f.manager.InstallHost(ctx, &HostConfig{Publisher: env, Exports: []boundary.Export{addExport(env)}})
	require.NoError(t, err)
	caller, err := guest.NewCaller(NewModuleLink(host))
	require.NoError(t, err)

	for _, tt := range []struct{ a, b, want int }{{2, 3, 5}, {1, 1, 2}, {2, 2, 4}} {
		out := guest.Invoke[int](ctx, caller, "add", uint64(tt.a), uint64(tt.b))
		got, ok := out.Get()
		assert.True(t, ok, "add(%d, %d) = %v", tt.a, tt.b, out)
		assert.Equal(t, tt.want, got)
	}

	out := guest.Invoke[int](ctx, caller, "sub", 1, 1)
	var callErr *guest.CallError
	require.ErrorAs(t, out.Err(), &callErr)
	var fnErr *FunctionNotFoundError
	assert.ErrorAs(t, callErr, &fnErr, "CallError does not wrap *FunctionNotFoundError")
}

func TestModuleLinkKeyed(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	ledger := boundary.NewLedger()
	host, err := f.manager.InstallHost(ctx, &HostConfig{
		ModuleName: "keyed",
		Publisher:  ledger,
		Exports:    []boundary.Export{addExport(ledger)},
	})
	require.NoError(t, err)
	caller, err := guest.NewCaller(NewModuleLink(host), guest.WithMode(protocol.ModeKeyed))
	require.NoError(t, err)

	out := guest.Invoke[int](ctx, caller, "add", 40, 2)
	got, ok := out.Get()
	assert.True(t, ok, "add(40, 2) = %v", out)
	assert.Equal(t, 42, got)
	assert.Zero(t, ledger.Outstanding(), "Outstanding() after readback")
}
