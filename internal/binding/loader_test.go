package binding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woxQAQ/narrowcall/internal/decl"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/internal/wasm"
	"go.uber.org/zap/zaptest"
)

func TestLoader_LoadBinding_Sources(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	b, err := loader.LoadBinding(context.Background(), filepath.Join("testdata", "bindings", "calc"))
	require.NoError(t, err)

	assert.Equal(t, "calc", b.Name())
	assert.Equal(t, "calc", b.Package())
	assert.Equal(t, []string{"scale", "add", "warm", "uptime"}, b.Functions())
	assert.True(t, b.HasFunction("add"))
	assert.False(t, b.HasFunction("reset"))
	assert.Nil(t, b.Compiled)

	require.Len(t, b.Unit.Skipped, 1)
	assert.Equal(t, "reset", b.Unit.Skipped[0].Name)
	assert.True(t, b.Unit.Skipped[0].NoReturn())
	assert.Equal(t, "time", b.Unit.Imports["time"])
}

func TestLoader_LoadBinding_Inline(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	b, err := loader.LoadBinding(context.Background(), filepath.Join("testdata", "bindings", "inline"))
	require.NoError(t, err)

	assert.Equal(t, []string{"area"}, b.Functions())
	require.Len(t, b.Unit.Skipped, 1)
	assert.Equal(t, "label", b.Unit.Skipped[0].Name)
	assert.ErrorIs(t, b.Unit.Skipped[0].Err, decl.ErrMalformedDeclaration)
	assert.False(t, b.Unit.Skipped[0].NoReturn())
}

func TestLoader_LoadBinding_PackageMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile),
		[]byte("name: calc\npackage: other\nsources: [calc.go]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc.go"),
		[]byte("package calc\n\nfunc add(a, b int) int\n"), 0o644))

	_, err := NewLoader(nil, nil).LoadBinding(context.Background(), dir)

	var verr *ManifestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sources[0]", verr.Field)
}

func TestLoader_LoadBinding_MissingSource(t *testing.T) {
	dir := writeManifest(t, "name: calc\npackage: calc\nsources: [gone.go]\n")

	_, err := NewLoader(nil, nil).LoadBinding(context.Background(), dir)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_LoadBinding_Conflict(t *testing.T) {
	dir := writeManifest(t, `name: calc
package: calc
functions:
  - {name: add, params: [{name: a, type: int}], returns: int}
  - {name: add, params: [{name: a, type: int32}], returns: int}
`)

	_, err := NewLoader(nil, nil).LoadBinding(context.Background(), dir)

	var loadErr *BindingLoadError
	require.ErrorAs(t, err, &loadErr)
	var conflict *gen.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestLoader_LoadBinding_CompilesWasm(t *testing.T) {
	ctx := context.Background()
	runtime, err := wasm.NewRuntime(ctx, zaptest.NewLogger(t), &wasm.RuntimeConfig{})
	require.NoError(t, err)
	defer runtime.Close(ctx)

	dir := writeManifest(t, "name: tiny\npackage: tiny\nwasm: {file: tiny.wasm}\nfunctions: [{name: f, returns: int}]\n")
	// An empty module: magic and version only.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.wasm"),
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0o644))

	b, err := NewLoader(runtime, zaptest.NewLogger(t)).LoadBinding(ctx, dir)
	require.NoError(t, err)
	require.NotNil(t, b.Compiled)
	assert.Equal(t, "tiny", b.Compiled.Name)

	cached, ok := runtime.GetCompiledModule("tiny")
	require.True(t, ok)
	assert.Same(t, b.Compiled, cached)
}

func TestLoader_DiscoverBindings(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	bindings, err := loader.DiscoverBindings(context.Background(), []string{
		filepath.Join("testdata", "bindings"),
		filepath.Join("testdata", "missing"),
	})
	require.NoError(t, err)

	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		names = append(names, b.Name())
	}
	// invalid-yaml and bad-mode fail, empty has no manifest.
	assert.ElementsMatch(t, []string{"calc", "shapes"}, names)
}

func TestLoader_DiscoverBindings_DirectManifest(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	bindings, err := loader.DiscoverBindings(context.Background(), []string{filepath.Join("testdata", "bindings", "calc")})
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "calc", bindings[0].Name())
}

func TestLoader_DiscoverBindings_NoneFound(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	_, err := loader.DiscoverBindings(context.Background(), []string{t.TempDir()})

	var none *NoBindingsFoundError
	require.ErrorAs(t, err, &none)
}

func TestLoader_DiscoverBindings_OnlyFailures(t *testing.T) {
	loader := NewLoader(nil, zaptest.NewLogger(t))

	_, err := loader.DiscoverBindings(context.Background(), []string{filepath.Join("testdata", "bindings", "bad-mode")})

	var verr *ManifestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Field)
}
