package binding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/woxQAQ/narrowcall/internal/decl"
	"github.com/woxQAQ/narrowcall/internal/gen"
	"github.com/woxQAQ/narrowcall/internal/wasm"
	"go.uber.org/zap"
)

// Loader handles loading bindings from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new binding loader. With a nil runtime, guest modules
// referenced by manifests are not compiled.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		logger: logger.With(zap.String("component", "binding-loader")),
	}
	if runtime != nil {
		l.moduleLoader = wasm.NewModuleLoader(runtime, logger)
	}
	return l
}

// LoadBinding loads a single binding from a directory: it parses the
// manifest, collects declarations from the inline functions and the Go
// sources, and transforms them.
func (l *Loader) LoadBinding(ctx context.Context, dir string) (*Binding, error) {
	l.logger.Debug("Loading binding", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading binding",
		zap.String("name", manifest.Name),
		zap.String("package", manifest.Package),
		zap.Int("sources", len(manifest.Sources)),
	)

	decls, types, err := manifest.Declarations()
	if err != nil {
		return nil, err
	}
	imports := manifest.ImportList()

	for i, path := range manifest.SourcePaths() {
		file, err := readSource(path, manifest.Sources[i])
		if err != nil {
			return nil, err
		}
		if file.Package != manifest.Package {
			return nil, &ManifestValidationError{
				Path:    manifest.Path(),
				Field:   fmt.Sprintf("sources[%d]", i),
				Message: fmt.Sprintf("source is in package %s, manifest declares %s", file.Package, manifest.Package),
			}
		}
		if err := types.Merge(file.Types); err != nil {
			return nil, &SourceError{Path: path, Err: err}
		}
		decls = append(decls, file.Declarations...)
		imports = append(imports, file.Imports...)
	}

	unit, err := gen.Prepare(decls, types, imports, l.logger)
	if err != nil {
		return nil, &BindingLoadError{
			BindingName: manifest.Name,
			Err:         err,
		}
	}

	b := &Binding{
		Manifest: manifest,
		Unit:     unit,
		LoadedAt: time.Now(),
	}

	if manifest.Wasm.File != "" && l.moduleLoader != nil {
		// Compile guest module (uses internal caching)
		b.Compiled, err = l.moduleLoader.LoadModule(ctx, &wasm.FileModuleSource{
			Path:       manifest.WasmPath(),
			ModuleName: manifest.Name,
		})
		if err != nil {
			return nil, &BindingLoadError{
				BindingName: manifest.Name,
				Err:         err,
			}
		}
	}

	l.logger.Info("Binding loaded successfully",
		zap.String("name", manifest.Name),
		zap.Strings("functions", b.Functions()),
		zap.Int("skipped", len(unit.Skipped)),
	)

	return b, nil
}

func readSource(path, name string) (*decl.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	file, err := decl.ParseGoFile(name, src)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return file, nil
}

// DiscoverBindings loads every binding under paths. A path holding a
// manifest is a binding itself; otherwise each of its subdirectories is
// tried. Bindings that fail to load are logged and skipped.
func (l *Loader) DiscoverBindings(ctx context.Context, paths []string) ([]*Binding, error) {
	var bindings []*Binding
	var errs []error

	load := func(dir string) {
		b, err := l.LoadBinding(ctx, dir)
		if err != nil {
			l.logger.Error("Failed to load binding",
				zap.String("dir", dir),
				zap.Error(err),
			)
			errs = append(errs, err)
			return
		}
		bindings = append(bindings, b)
	}

	for _, basePath := range paths {
		l.logger.Debug("Scanning binding directory", zap.String("path", basePath))

		if _, err := os.Stat(filepath.Join(basePath, ManifestFile)); err == nil {
			load(basePath)
			continue
		}

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Binding path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(basePath, entry.Name())
			if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
				continue
			}
			load(dir)
		}
	}

	if len(bindings) > 0 && len(errs) > 0 {
		l.logger.Warn("Some bindings failed to load",
			zap.Int("loaded", len(bindings)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(bindings) == 0 {
		if len(errs) > 0 {
			return nil, errs[0]
		}
		return nil, &NoBindingsFoundError{Paths: paths}
	}

	return bindings, nil
}
