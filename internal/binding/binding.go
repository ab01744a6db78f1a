package binding

import (
	"time"

	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/internal/wasm"
)

// Binding is a loaded manifest with its transformed declarations and, when
// the manifest names one, the compiled guest module.
type Binding struct {
	// Manifest is the parsed binding metadata
	Manifest *Manifest

	// Unit holds the signatures to generate and the skipped declarations
	Unit *gen.Unit

	// Compiled is nil unless the manifest references a guest module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the binding was loaded
	LoadedAt time.Time
}

// Name returns the binding name.
func (b *Binding) Name() string {
	return b.Manifest.Name
}

// Package returns the Go package of the generated files.
func (b *Binding) Package() string {
	return b.Manifest.Package
}

// Functions returns the names of the functions that cross the boundary.
func (b *Binding) Functions() []string {
	names := make([]string, len(b.Unit.Signatures))
	for i, sig := range b.Unit.Signatures {
		names[i] = sig.Name
	}
	return names
}

// HasFunction checks whether name crosses the boundary.
func (b *Binding) HasFunction(name string) bool {
	for _, sig := range b.Unit.Signatures {
		if sig.Name == name {
			return true
		}
	}
	return false
}
