package binding

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded bindings.
type Registry struct {
	sync.RWMutex
	bindings  map[string]*Binding   // name -> binding
	byPackage map[string][]*Binding // package -> bindings
	logger    *zap.Logger
}

// NewRegistry creates a new binding registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		bindings:  make(map[string]*Binding),
		byPackage: make(map[string][]*Binding),
		logger:    logger.With(zap.String("component", "binding-registry")),
	}
}

// Register adds a binding to the registry.
func (r *Registry) Register(b *Binding) error {
	r.Lock()
	defer r.Unlock()

	name := b.Manifest.Name

	if _, exists := r.bindings[name]; exists {
		return &BindingAlreadyRegisteredError{BindingName: name}
	}

	r.bindings[name] = b

	pkg := b.Manifest.Package
	r.byPackage[pkg] = append(r.byPackage[pkg], b)

	r.logger.Info("Binding registered",
		zap.String("name", name),
		zap.String("package", pkg),
		zap.Int("functions", len(b.Unit.Signatures)),
		zap.Int("skipped", len(b.Unit.Skipped)),
	)

	return nil
}

// Get retrieves a binding by name.
func (r *Registry) Get(name string) (*Binding, bool) {
	r.RLock()
	defer r.RUnlock()

	b, ok := r.bindings[name]
	return b, ok
}

// LookupByPackage finds the bindings generating into a Go package.
func (r *Registry) LookupByPackage(pkg string) []*Binding {
	r.RLock()
	defer r.RUnlock()

	bindings := r.byPackage[pkg]
	result := make([]*Binding, len(bindings))
	copy(result, bindings)
	return result
}

// List returns all registered bindings sorted by name.
func (r *Registry) List() []*Binding {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Unregister removes a binding from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	b, ok := r.bindings[name]
	if !ok {
		return
	}

	pkg := b.Manifest.Package
	bindings := r.byPackage[pkg]
	for i, other := range bindings {
		if other.Manifest.Name == name {
			r.byPackage[pkg] = append(bindings[:i:i], bindings[i+1:]...)
			break
		}
	}
	if len(r.byPackage[pkg]) == 0 {
		delete(r.byPackage, pkg)
	}

	delete(r.bindings, name)

	r.logger.Info("Binding unregistered", zap.String("name", name))
}

// Count returns the number of registered bindings.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.bindings)
}
