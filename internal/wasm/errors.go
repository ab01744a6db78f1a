package wasm

import (
	"fmt"
	"time"
)

// CompilationError occurs when a guest module fails to compile.
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile guest module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when a guest fails to instantiate, typically
// because an import is missing from the host module.
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a guest is not in the compile cache.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when an exported function is missing.
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryAccessError occurs when guest memory cannot be read.
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d)",
		e.Operation, e.Address, e.Length)
}

// HostModuleError occurs when the boundary host module cannot be installed.
type HostModuleError struct {
	ModuleName string
	Err        error
}

func (e *HostModuleError) Error() string {
	return fmt.Sprintf("failed to install host module '%s': %v", e.ModuleName, e.Err)
}

func (e *HostModuleError) Unwrap() error {
	return e.Err
}

// InstanceLimitError occurs when MaxInstances guests are already live.
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit of %d reached", e.Limit)
}

// ExitError reports a guest that exited with a non-zero status.
type ExitError struct {
	InstanceID string
	Code       uint32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("guest '%s' exited with code %d", e.InstanceID, e.Code)
}

// TimeoutError occurs when guest execution exceeds the configured timeout.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm execution timed out after %v", e.Duration)
}
