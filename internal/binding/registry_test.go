package binding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"go.uber.org/zap"
)

func newTestBinding(name, pkg string) *Binding {
	return &Binding{
		Manifest: &Manifest{Name: name, Package: pkg},
		Unit:     &gen.Unit{},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(newTestBinding("calc", "demo")))

	b, ok := r.Get("calc")
	require.True(t, ok)
	assert.Equal(t, "demo", b.Package())

	_, ok = r.Get("other")
	assert.False(t, ok)
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(newTestBinding("calc", "demo")))

	err := r.Register(newTestBinding("calc", "other"))

	var dup *BindingAlreadyRegisteredError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "calc", dup.BindingName)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_LookupByPackage(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(newTestBinding("calc", "demo")))
	require.NoError(t, r.Register(newTestBinding("clock", "demo")))
	require.NoError(t, r.Register(newTestBinding("shapes", "geo")))

	assert.Len(t, r.LookupByPackage("demo"), 2)
	assert.Len(t, r.LookupByPackage("geo"), 1)
	assert.Empty(t, r.LookupByPackage("none"))

	// The result is a copy.
	found := r.LookupByPackage("demo")
	found[0] = nil
	assert.NotNil(t, r.LookupByPackage("demo")[0])
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(newTestBinding(name, "p")))
	}

	var names []string
	for _, b := range r.List() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(newTestBinding("calc", "demo")))
	require.NoError(t, r.Register(newTestBinding("clock", "demo")))

	r.Unregister("calc")
	r.Unregister("missing")

	assert.Equal(t, 1, r.Count())
	byPkg := r.LookupByPackage("demo")
	require.Len(t, byPkg, 1)
	assert.Equal(t, "clock", byPkg[0].Name())

	r.Unregister("clock")
	assert.Empty(t, r.LookupByPackage("demo"))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = r.Register(newTestBinding(name, "p"))
			_, _ = r.Get(name)
			_ = r.List()
		}(name)
	}
	wg.Wait()
	assert.Equal(t, 6, r.Count())
}
