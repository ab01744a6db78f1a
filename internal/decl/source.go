package decl

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"strconv"
	"strings"
)

// ExportDirective marks a function with a body as a host-side declaration.
const ExportDirective = "//narrowcall:export"

// Import is an import spec of the parsed file.
type Import struct {
	Name string
	Path string
}

// File is the result of scanning a Go source file for declarations.
type File struct {
	Package      string
	Path         string
	Declarations []Declaration
	Types        *TypeTable
	Imports      []Import
}

// ImportPath returns the import path bound to the package name used in
// qualified type expressions, e.g. "time" for time.Duration.
func (f *File) ImportPath(name string) (string, bool) {
	for _, imp := range f.Imports {
		if imp.Name == name {
			return imp.Path, true
		}
	}
	return "", false
}

// ParseGoFile scans src for boundary declarations. Functions without a body
// and functions carrying the export directive are collected in source
// order. Named types over scalars become transparent types.
func ParseGoFile(filename string, src []byte) (*File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	f := &File{
		Package: af.Name.Name,
		Path:    filename,
		Types:   NewTypeTable(),
	}

	for _, spec := range af.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return nil, fmt.Errorf("parse %s: bad import %s", filename, spec.Path.Value)
		}
		name := filepath.Base(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		f.Imports = append(f.Imports, Import{Name: name, Path: path})
	}

	if err := collectTypes(af, f.Types); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	for _, d := range af.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || !isBoundaryFunc(fd) {
			continue
		}
		f.Declarations = append(f.Declarations, funcDeclaration(fset, fd))
	}
	return f, nil
}

func isBoundaryFunc(fd *ast.FuncDecl) bool {
	if fd.Body == nil {
		return true
	}
	if fd.Doc == nil {
		return false
	}
	for _, c := range fd.Doc.List {
		if strings.TrimSpace(c.Text) == ExportDirective {
			return true
		}
	}
	return false
}

// collectTypes registers "type X Y" declarations whose chain ends in a
// scalar. Declarations may refer to types declared later in the file, so it
// loops until no more progress is made.
func collectTypes(af *ast.File, table *TypeTable) error {
	pending := map[string]string{}
	var order []string
	for _, d := range af.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			ts := s.(*ast.TypeSpec)
			if ts.TypeParams != nil {
				continue
			}
			ident, ok := ts.Type.(*ast.Ident)
			if !ok {
				continue
			}
			pending[ts.Name.Name] = ident.Name
			order = append(order, ts.Name.Name)
		}
	}

	for progress := true; progress && len(pending) > 0; {
		progress = false
		for _, name := range order {
			underlying, ok := pending[name]
			if !ok {
				continue
			}
			if _, ok := table.Resolve(underlying); !ok {
				continue
			}
			if err := table.Declare(name, underlying); err != nil {
				return err
			}
			delete(pending, name)
			progress = true
		}
	}
	return nil
}

func funcDeclaration(fset *token.FileSet, fd *ast.FuncDecl) Declaration {
	pos := fset.Position(fd.Pos())
	d := Declaration{
		Name: fd.Name.Name,
		Pos:  fmt.Sprintf("%s:%d", filepath.Base(pos.Filename), pos.Line),
	}
	if fd.Doc != nil {
		d.Doc = strings.TrimSpace(fd.Doc.Text())
	}
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		d.Receiver = types.ExprString(fd.Recv.List[0].Type)
	}
	if fd.Type.TypeParams != nil {
		for _, field := range fd.Type.TypeParams.List {
			for _, n := range field.Names {
				d.TypeParams = append(d.TypeParams, n.Name)
			}
		}
	}

	for _, field := range fd.Type.Params.List {
		typ := field.Type
		if ell, ok := typ.(*ast.Ellipsis); ok {
			d.Variadic = true
			typ = ell.Elt
		}
		text := types.ExprString(typ)
		if len(field.Names) == 0 {
			d.Params = append(d.Params, Param{Type: text})
			continue
		}
		for _, n := range field.Names {
			d.Params = append(d.Params, Param{Name: n.Name, Type: text})
		}
	}

	if fd.Type.Results != nil {
		for _, field := range fd.Type.Results.List {
			text := types.ExprString(field.Type)
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				d.Results = append(d.Results, text)
			}
		}
	}
	return d
}
