package binding

import (
	"fmt"
)

// ManifestNotFoundError occurs when narrowcall.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when narrowcall.yaml is not valid YAML or has
// unknown fields.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when narrowcall.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the guest module referenced in a manifest
// doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// SourceError occurs when a declaration source cannot be read or parsed.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read declarations from '%s': %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// BindingLoadError occurs when binding loading fails.
type BindingLoadError struct {
	BindingName string
	Err         error
}

func (e *BindingLoadError) Error() string {
	return fmt.Sprintf("failed to load binding '%s': %v", e.BindingName, e.Err)
}

func (e *BindingLoadError) Unwrap() error {
	return e.Err
}

// BindingNotFoundError occurs when a binding is not found in the registry.
type BindingNotFoundError struct {
	BindingName string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("binding '%s' not found", e.BindingName)
}

// BindingAlreadyRegisteredError occurs when attempting to register a
// duplicate binding.
type BindingAlreadyRegisteredError struct {
	BindingName string
}

func (e *BindingAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("binding '%s' is already registered", e.BindingName)
}

// NoBindingsFoundError occurs when no bindings are found in the configured paths.
type NoBindingsFoundError struct {
	Paths []string
}

func (e *NoBindingsFoundError) Error() string {
	return fmt.Sprintf("no bindings found in paths: %v", e.Paths)
}
