package wasm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"github.com/woxQAQ/narrowcall/pkg/boundary"
	"github.com/woxQAQ/narrowcall/pkg/protocol"
	"go.uber.org/zap"
)

// InstanceManager installs boundary host modules and instantiates guests
// against them.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctions

	mu    sync.Mutex
	hosts map[string]api.Module
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctions, logger *zap.Logger) *InstanceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hostFuncs == nil {
		hostFuncs = NewHostFunctions(logger)
	}
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
		hosts:     make(map[string]api.Module),
	}
}

// HostConfig describes one boundary host module.
type HostConfig struct {
	// ModuleName is the import module guests use (default "env").
	// log_message is installed under this name too, while guests built
	// with api/wasm import it from "env"; such guests need an "env" host
	// installed as well.
	ModuleName string

	// Publisher holds results between a wrapper call and readback.
	Publisher boundary.Publisher

	// Exports are the narrow entry points, usually from a generated
	// Exports function.
	Exports []boundary.Export
}

// InstallHost instantiates a host module with the narrow entry points, the
// readback exports and log_message. Every host module name can be installed
// once per runtime.
func (m *InstanceManager) InstallHost(ctx context.Context, cfg *HostConfig) (api.Module, error) {
	name := cfg.ModuleName
	if name == "" {
		name = protocol.DefaultModule
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hosts[name]; ok {
		return nil, &HostModuleError{ModuleName: name, Err: errors.New("already installed")}
	}

	opts := []boundary.InstallOption{
		boundary.WithModuleName(name),
		boundary.WithInstallLogger(m.logger),
		boundary.WithMiddleware(boundary.Recover(m.logger)),
		boundary.WithHostFunction(m.hostFuncs.LogMessage()),
	}
	if m.runtime.config.DebugEnabled {
		opts = append(opts, boundary.WithMiddleware(boundary.Trace(m.logger)))
	}

	mod, err := boundary.Install(ctx, m.runtime.runtime, cfg.Publisher, cfg.Exports, opts...)
	if err != nil {
		return nil, &HostModuleError{ModuleName: name, Err: err}
	}
	m.hosts[name] = mod

	m.logger.Info("Host module installed",
		zap.String("module", name),
		zap.Int("exports", len(cfg.Exports)),
		zap.String("publisher", fmt.Sprintf("%T", cfg.Publisher)),
	)
	return mod, nil
}

// Host returns an installed host module.
func (m *InstanceManager) Host(name string) (api.Module, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.hosts[name]
	return mod, ok
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// ModuleName is the compiled guest to instantiate.
	ModuleName string

	// InstanceID names the instance (generated if empty).
	InstanceID string

	// StartFunctions run during instantiation (default "_start").
	// Reactor guests use "_initialize".
	StartFunctions []string

	// Args are passed to the guest after its program name.
	Args []string

	Stdout io.Writer
	Stderr io.Writer
}

// Instance is an instantiated guest.
type Instance struct {
	module  api.Module
	runtime *Runtime
	timeout time.Duration

	ID        string
	Name      string
	CreatedAt int64

	// Exited is set when the guest ran to completion during instantiation,
	// as a wasip1 command does. Its exports are no longer callable.
	Exited bool

	exports map[string]api.Function
}

// Instantiate creates an instance of a compiled guest. Host modules the
// guest imports must be installed first.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	starts := config.StartFunctions
	if len(starts) == 0 {
		starts = []string{"_start"}
	}

	m.logger.Info("Instantiating guest",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
		zap.Strings("imports", compiled.Imports()),
	)

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithArgs(append([]string{config.ModuleName}, config.Args...)...).
		WithStartFunctions(starts...)
	if config.Stdout != nil {
		moduleConfig = moduleConfig.WithStdout(config.Stdout)
	}
	if config.Stderr != nil {
		moduleConfig = moduleConfig.WithStderr(config.Stderr)
	}

	timeout := m.runtime.config.ExecutionTimeout
	runCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	instance := &Instance{
		runtime:   m.runtime,
		timeout:   timeout,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   make(map[string]api.Function),
	}

	module, err := m.runtime.runtime.InstantiateModule(runCtx, compiled.Module, moduleConfig)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Duration: timeout}
		}
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &InstantiationError{
				ModuleName: config.ModuleName,
				InstanceID: instanceID,
				Err:        err,
			}
		}
		if exitErr.ExitCode() != 0 {
			return nil, &ExitError{InstanceID: instanceID, Code: exitErr.ExitCode()}
		}
		instance.Exited = true
	}
	if module == nil || module.IsClosed() {
		instance.Exited = true
	}

	if instance.Exited {
		m.logger.Info("Guest ran to completion", zap.String("instance_id", instanceID))
		return instance, nil
	}

	instance.module = module
	m.runtime.StoreInstance(instanceID, module)

	m.logger.Info("Guest instantiated",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(module.ExportedFunctionDefinitions())),
	)

	return instance, nil
}

// Call invokes an exported guest function.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	if i.Exited || i.module == nil {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}
	fn, ok := i.exports[name]
	if !ok {
		fn = i.module.ExportedFunction(name)
		if fn == nil {
			return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
		}
		i.exports[name] = fn
	}

	runCtx, cancel := withTimeout(ctx, i.timeout)
	defer cancel()

	results, err := fn.Call(runCtx, args...)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Duration: i.timeout}
	}
	return results, err
}

// Module returns the underlying module, nil if the guest has exited.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close closes the instance and stops tracking it.
func (i *Instance) Close(ctx context.Context) error {
	if i.module == nil {
		return nil
	}
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

var instanceSeq atomic.Uint64

func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
