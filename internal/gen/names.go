package gen

import (
	"fmt"
	"go/ast"
	"go/types"
	"slices"

	"github.com/woxQAQ/narrowcall/internal/decl"
)

// scope tracks the identifiers a generated function body refers to, so that
// parameters and locals never shadow them. Parameter names are not part of
// the entry point ABI and may be renamed freely.
type scope struct {
	taken map[string]bool
}

// newScope reserves the universe identifiers, the function-level names
// derived from sig, its parameter and result types, and extra.
func newScope(sig *decl.Signature, extra ...string) *scope {
	s := &scope{taken: make(map[string]bool)}
	for _, name := range types.Universe.Names() {
		s.taken[name] = true
	}
	for _, name := range []string{sig.Name, ExternName(sig.Name), WrapperName(sig.Name)} {
		s.taken[name] = true
	}
	for _, p := range sig.Params {
		s.taken[p.Type] = true
	}
	if sig.ResultExpr != nil {
		ast.Inspect(sig.ResultExpr, func(n ast.Node) bool {
			if id, ok := n.(*ast.Ident); ok {
				s.taken[id.Name] = true
			}
			return true
		})
	}
	for _, name := range extra {
		s.taken[name] = true
	}
	return s
}

// params returns the body-local names of sig's parameters. A declared name
// is kept unless it is reserved or another parameter already took it.
func (s *scope) params(sig *decl.Signature) []string {
	declared := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		declared[i] = p.Name
	}

	names := make([]string, len(sig.Params))
	var renamed []int
	for i, name := range declared {
		if s.taken[name] {
			renamed = append(renamed, i)
			continue
		}
		names[i] = name
		s.taken[name] = true
	}
	for _, i := range renamed {
		names[i] = s.fresh(declared[i], declared)
	}
	return names
}

// fresh returns base or base with a numeric suffix that is neither taken
// nor in avoid, and marks it taken.
func (s *scope) fresh(base string, avoid ...[]string) string {
	clash := func(name string) bool {
		if s.taken[name] {
			return true
		}
		for _, list := range avoid {
			if slices.Contains(list, name) {
				return true
			}
		}
		return false
	}

	name := base
	for i := 1; clash(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	s.taken[name] = true
	return name
}
