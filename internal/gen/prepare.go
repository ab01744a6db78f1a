package gen

import (
	"errors"
	"fmt"

	"github.com/woxQAQ/narrowcall/internal/decl"
	"go.uber.org/zap"
)

// Skip records a declaration that produced no stubs.
type Skip struct {
	Name string
	Pos  string
	Err  error
}

// NoReturn reports whether the declaration was skipped for lacking a
// result type.
func (s Skip) NoReturn() bool {
	return errors.Is(s.Err, decl.ErrNoReturnType)
}

// Unit is a set of transformed signatures ready for generation.
type Unit struct {
	Signatures []*decl.Signature

	// Imports maps package names used in result types to import paths.
	Imports map[string]string

	Skipped []Skip
}

// ConflictError occurs when two declarations share a name but not a shape.
// The narrow entry point is keyed by name alone, so they cannot coexist.
type ConflictError struct {
	Name   string
	First  string
	Second string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting declarations of '%s': %s and %s", e.Name, e.First, e.Second)
}

// Prepare transforms decls in order. Malformed declarations are logged and
// recorded in Unit.Skipped. Repeated declarations with the same shape
// collapse into one; differing ones fail with a ConflictError.
func Prepare(decls []decl.Declaration, types *decl.TypeTable, imports []decl.Import, logger *zap.Logger) (*Unit, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "gen-prepare"))

	u := &Unit{Imports: make(map[string]string, len(imports))}
	for _, imp := range imports {
		u.Imports[imp.Name] = imp.Path
	}

	byName := make(map[string]*decl.Signature)
	for _, d := range decls {
		sig, err := decl.Transform(d, types)
		if err != nil {
			if !errors.Is(err, decl.ErrMalformedDeclaration) {
				return nil, err
			}
			logger.Warn("Skipping declaration",
				zap.String("name", d.Name),
				zap.String("pos", d.Pos),
				zap.Error(err),
			)
			u.Skipped = append(u.Skipped, Skip{Name: d.Name, Pos: d.Pos, Err: err})
			continue
		}

		if prev, ok := byName[sig.Name]; ok {
			if !prev.SameShape(sig) {
				return nil, &ConflictError{Name: sig.Name, First: prev.String(), Second: sig.String()}
			}
			logger.Debug("Collapsing repeated declaration",
				zap.String("name", sig.Name),
				zap.String("pos", sig.Pos),
			)
			continue
		}
		byName[sig.Name] = sig
		u.Signatures = append(u.Signatures, sig)
	}
	return u, nil
}
