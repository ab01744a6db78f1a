package boundary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/pkg/codec"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap/zaptest"
)

func add(a, b int) int { return a + b }

func addExports(pub Publisher, fail *bool) []Export {
	return []Export{{
		Name:       "add",
		Params:     []api.ValueType{api.ValueTypeI64, api.ValueTypeI64},
		ParamNames: []string{"a", "b"},
		Func: func(_ context.Context, stack []uint64) int64 {
			if fail != nil && *fail {
				return pub.Publish(make(chan int))
			}
			return pub.Publish(add(int(int64(stack[0])), int(int64(stack[1]))))
		},
	}}
}

func newRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })
	return ctx, r
}

func call(t *testing.T, ctx context.Context, mod api.Module, name string, args ...uint64) uint64 {
	t.Helper()
	fn := mod.ExportedFunction(name)
	require.NotNil(t, fn, name)
	res, err := fn.Call(ctx, args...)
	require.NoError(t, err)
	if len(res) == 0 {
		return 0
	}
	return res[0]
}

func readAll(t *testing.T, ctx context.Context, mod api.Module, n int64) []byte {
	t.Helper()
	out := make([]byte, 0, n)
	for addr := int64(0); addr < n; addr++ {
		out = append(out, byte(call(t, ctx, mod, protocol.ReadByteExport, uint64(addr))))
	}
	return out
}

func TestInstall_SingleSlot(t *testing.T) {
	ctx, r := newRuntime(t)
	env := NewEnv(WithLogger(zaptest.NewLogger(t)))

	mod, err := Install(ctx, r, env, addExports(env, nil), WithInstallLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, protocol.DefaultModule, mod.Name())

	for _, tc := range []struct{ a, b, want int }{{2, 3, 5}, {1, 1, 2}, {2, 2, 4}, {-7, 3, -4}} {
		n := int64(call(t, ctx, mod, "add", api.EncodeI64(int64(tc.a)), api.EncodeI64(int64(tc.b))))
		require.GreaterOrEqual(t, n, int64(0))

		var got int
		require.NoError(t, codec.Binary.Decode(readAll(t, ctx, mod, n), codec.DefaultWidth, &got))
		assert.Equal(t, tc.want, got)
	}
}

func TestInstall_EncodeFailureReturnsSentinel(t *testing.T) {
	ctx, r := newRuntime(t)
	env := NewEnv()
	fail := true

	mod, err := Install(ctx, r, env, addExports(env, &fail))
	require.NoError(t, err)

	n := int64(call(t, ctx, mod, "add", 2, 3))
	assert.Equal(t, protocol.Sentinel, n)
}

func TestInstall_Keyed(t *testing.T) {
	ctx, r := newRuntime(t)
	ledger := NewLedger()

	mod, err := Install(ctx, r, ledger, addExports(ledger, nil), WithModuleName("calc"))
	require.NoError(t, err)
	assert.Nil(t, mod.ExportedFunction(protocol.ReadByteExport))

	p1 := int64(call(t, ctx, mod, "add", 1, 1))
	p2 := int64(call(t, ctx, mod, "add", 2, 2))
	require.Positive(t, p1)
	require.Positive(t, p2)
	assert.Equal(t, 2, ledger.Outstanding())

	decode := func(packed int64) int {
		token, n := protocol.UnpackResult(packed)
		buf := make([]byte, 0, n)
		for addr := uint32(0); addr < n; addr++ {
			buf = append(buf, byte(call(t, ctx, mod, protocol.ReadByteKeyedExport, uint64(token), uint64(addr))))
		}
		call(t, ctx, mod, protocol.ReleaseExport, uint64(token))
		var v int
		require.NoError(t, codec.Binary.Decode(buf, codec.DefaultWidth, &v))
		return v
	}

	assert.Equal(t, 4, decode(p2))
	assert.Equal(t, 2, decode(p1))
	assert.Equal(t, 0, ledger.Outstanding())
}

func TestInstall_RecoverMiddleware(t *testing.T) {
	ctx, r := newRuntime(t)
	env := NewEnv()
	exports := []Export{{
		Name: "boom",
		Func: func(context.Context, []uint64) int64 { panic("kaboom") },
	}}

	mod, err := Install(ctx, r, env, exports,
		WithMiddleware(Recover(zaptest.NewLogger(t)), Trace(zaptest.NewLogger(t))),
	)
	require.NoError(t, err)
	assert.Equal(t, protocol.Sentinel, int64(call(t, ctx, mod, "boom")))
}

func TestInstall_MiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(tag string) Middleware {
		return func(name string, next Func) Func {
			return func(ctx context.Context, stack []uint64) int64 {
				order = append(order, tag+":"+name)
				return next(ctx, stack)
			}
		}
	}
	fn := chain("f", func(context.Context, []uint64) int64 { return 1 }, []Middleware{mark("a"), mark("b")})
	assert.EqualValues(t, 1, fn(context.Background(), nil))
	assert.Equal(t, []string{"a:f", "b:f"}, order)
}

func TestInstall_Errors(t *testing.T) {
	_, r := newRuntime(t)
	env := NewEnv()

	_, err := Build(r, env, append(addExports(env, nil), addExports(env, nil)...))
	var dup *DuplicateExportError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "add", dup.Name)

	_, err = Build(r, env, []Export{{Name: protocol.ReadByteExport}})
	require.True(t, errors.As(err, &dup))

	_, err = Build(r, NewLedger(), nil, WithHostFunction(HostFunction{Name: protocol.ReleaseExport}))
	require.True(t, errors.As(err, &dup))

	_, err = Build(r, publisherFunc(func(any) int64 { return 0 }), nil)
	assert.Error(t, err)
}

type publisherFunc func(any) int64

func (f publisherFunc) Publish(v any) int64 { return f(v) }
