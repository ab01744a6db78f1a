package binding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/narrowcall/internal/config"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/internal/wasm"
	"go.uber.org/zap"
)

// Manager manages binding lifecycle: discovery, generation and running
// guests against host modules.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new binding manager. runtime may be nil when only
// generating; Instantiate and InstallHost then fail.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctions,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		runtime:  runtime,
		loader:   NewLoader(runtime, logger),
		registry: NewRegistry(logger),
		logger:   logger.With(zap.String("component", "binding-manager")),
	}
	if runtime != nil {
		m.instanceMgr = wasm.NewInstanceManager(runtime, hostFuncs, logger)
	}
	return m
}

// LoadAll discovers and loads all bindings from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("bindings already loaded")
	}

	m.logger.Info("Loading bindings",
		zap.Strings("paths", m.cfg.BindingPaths),
	)

	bindings, err := m.loader.DiscoverBindings(ctx, m.cfg.BindingPaths)
	if err != nil {
		var notFound *NoBindingsFoundError
		if errors.As(err, &notFound) {
			m.logger.Warn("No bindings found in configured paths",
				zap.Strings("paths", m.cfg.BindingPaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, b := range bindings {
		if err := m.registry.Register(b); err != nil {
			m.logger.Error("Failed to register binding",
				zap.String("name", b.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Bindings loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// GetBinding retrieves a binding by name.
func (m *Manager) GetBinding(name string) (*Binding, error) {
	b, ok := m.registry.Get(name)
	if !ok {
		return nil, &BindingNotFoundError{BindingName: name}
	}
	return b, nil
}

// FindBindingsForPackage returns the bindings generating into pkg.
func (m *Manager) FindBindingsForPackage(pkg string) []*Binding {
	return m.registry.LookupByPackage(pkg)
}

// Generated holds the rendered files of one binding.
type Generated struct {
	Binding   string
	HostPath  string
	GuestPath string
	Host      []byte
	Guest     []byte
}

// Render generates the host and guest files of a binding without writing
// them.
func (m *Manager) Render(name string) (*Generated, error) {
	b, err := m.GetBinding(name)
	if err != nil {
		return nil, err
	}

	opts := b.Manifest.Options(m.cfg.GenOptions())

	hostGen, err := gen.NewHostGenerator(opts, m.logger)
	if err != nil {
		return nil, &BindingLoadError{BindingName: name, Err: err}
	}
	host, err := hostGen.Generate(b.Unit)
	if err != nil {
		return nil, &BindingLoadError{BindingName: name, Err: err}
	}

	guestGen, err := gen.NewGuestGenerator(opts, m.logger)
	if err != nil {
		return nil, &BindingLoadError{BindingName: name, Err: err}
	}
	guest, err := guestGen.Generate(b.Unit)
	if err != nil {
		return nil, &BindingLoadError{BindingName: name, Err: err}
	}

	dir := b.Manifest.OutputDir(m.cfg.OutputDir)
	return &Generated{
		Binding:   name,
		HostPath:  filepath.Join(dir, b.Manifest.HostFile()),
		GuestPath: filepath.Join(dir, b.Manifest.GuestFile()),
		Host:      host,
		Guest:     guest,
	}, nil
}

// Generate renders a binding and writes its files.
func (m *Manager) Generate(name string) (*Generated, error) {
	g, err := m.Render(name)
	if err != nil {
		return nil, err
	}
	if err := writeFile(g.HostPath, g.Host); err != nil {
		return nil, err
	}
	if err := writeFile(g.GuestPath, g.Guest); err != nil {
		return nil, err
	}

	m.logger.Info("Binding generated",
		zap.String("name", name),
		zap.String("host", g.HostPath),
		zap.String("guest", g.GuestPath),
	)
	return g, nil
}

// GenerateAll writes the files of every registered binding, in name order.
// It stops at the first failure.
func (m *Manager) GenerateAll() ([]*Generated, error) {
	var out []*Generated
	for _, b := range m.registry.List() {
		g, err := m.Generate(b.Name())
		if err != nil {
			return out, err
		}
		out = append(out, g)
	}
	return out, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// InstallHost installs a boundary host module guests can import.
func (m *Manager) InstallHost(ctx context.Context, cfg *wasm.HostConfig) (api.Module, error) {
	if m.instanceMgr == nil {
		return nil, errors.New("binding manager has no wasm runtime")
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = m.cfg.Wasm.Module
	}
	return m.instanceMgr.InstallHost(ctx, cfg)
}

// Instantiate creates a new instance of a binding's guest module.
func (m *Manager) Instantiate(ctx context.Context, bindingName string, cfg *wasm.InstanceConfig) (*wasm.Instance, error) {
	if m.instanceMgr == nil {
		return nil, errors.New("binding manager has no wasm runtime")
	}

	b, err := m.GetBinding(bindingName)
	if err != nil {
		return nil, err
	}
	if b.Compiled == nil {
		return nil, &BindingLoadError{
			BindingName: bindingName,
			Err:         errors.New("manifest references no guest module"),
		}
	}

	if cfg == nil {
		cfg = &wasm.InstanceConfig{}
	}
	cfg.ModuleName = b.Compiled.Name

	return m.instanceMgr.Instantiate(ctx, cfg)
}

// Shutdown closes the runtime, which closes all instances.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down binding manager")

	if m.runtime == nil {
		return nil
	}
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Binding manager shutdown complete")
	return nil
}

// Registry returns the binding registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether bindings have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
