package gen

import (
	"errors"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/woxQAQ/narrowcall/"

var (
	checkFset     = token.NewFileSet()
	sourceImports = sync.OnceValue(func() types.ImporterFrom {
		return importer.ForCompiler(checkFset, "source", nil).(types.ImporterFrom)
	})
)

// lightImporter loads the standard library and the dependency-free
// runtime packages from source. Anything else fails to import, which the
// type checker tolerates: selectors on a missing package are not reported.
type lightImporter struct{}

func (lightImporter) Import(path string) (*types.Package, error) {
	return lightImporter{}.ImportFrom(path, ".", 0)
}

func (lightImporter) ImportFrom(path, dir string, mode types.ImportMode) (*types.Package, error) {
	switch {
	case path == guestPath, path == codecPath, path == protocolPath:
	case !strings.Contains(strings.Split(path, "/")[0], "."):
	default:
		return nil, errors.New("not loaded")
	}
	return sourceImports().ImportFrom(path, dir, mode)
}

// typeCheck type-checks files as one package with wasm sizes and returns
// every error other than skipped imports.
func typeCheck(t *testing.T, files map[string]string) []string {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	parsed := make([]*ast.File, 0, len(files))
	for _, name := range names {
		f, err := parser.ParseFile(checkFset, name, files[name], parser.ParseComments)
		require.NoError(t, err, files[name])
		parsed = append(parsed, f)
	}

	var errs []string
	conf := types.Config{
		Importer: lightImporter{},
		Sizes:    types.SizesFor("gc", "wasm"),
		Error: func(err error) {
			if !strings.Contains(err.Error(), "could not import") {
				errs = append(errs, err.Error())
			}
		},
	}
	_, _ = conf.Check(modulePath+"checked", checkFset, parsed, nil)
	return errs
}
