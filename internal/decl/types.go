package decl

import (
	"fmt"
	"go/token"
	"sort"
)

// TypeTable records transparent types: named types whose underlying type
// is a scalar and which may therefore appear as parameters.
type TypeTable struct {
	named map[string]Scalar
}

// NewTypeTable creates an empty table. Predeclared scalars always resolve.
func NewTypeTable() *TypeTable {
	return &TypeTable{named: make(map[string]Scalar)}
}

// Declare registers name as a transparent type over underlying, which may
// be a scalar or a previously declared transparent type.
func (t *TypeTable) Declare(name, underlying string) error {
	if !token.IsIdentifier(name) || name == "_" {
		return fmt.Errorf("invalid transparent type name %q", name)
	}
	if _, ok := scalarNames[name]; ok {
		return fmt.Errorf("transparent type %q shadows a predeclared type", name)
	}
	s, ok := t.Resolve(underlying)
	if !ok {
		return fmt.Errorf("transparent type %q: underlying type %q is not a scalar", name, underlying)
	}
	if prev, exists := t.named[name]; exists && prev != s {
		return fmt.Errorf("transparent type %q redeclared as %s (was %s)", name, s, prev)
	}
	t.named[name] = s
	return nil
}

// Resolve returns the scalar a parameter type travels as.
func (t *TypeTable) Resolve(name string) (Scalar, bool) {
	if s, ok := scalarNames[name]; ok {
		return s, true
	}
	if t == nil {
		return ScalarInvalid, false
	}
	s, ok := t.named[name]
	return s, ok
}

// IsTransparent reports whether name is a declared transparent type.
func (t *TypeTable) IsTransparent(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.named[name]
	return ok
}

// Names returns the declared transparent type names in sorted order.
func (t *TypeTable) Names() []string {
	names := make([]string, 0, len(t.named))
	for name := range t.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge copies every declaration of other into t.
func (t *TypeTable) Merge(other *TypeTable) error {
	if other == nil {
		return nil
	}
	for _, name := range other.Names() {
		if err := t.Declare(name, other.named[name].String()); err != nil {
			return err
		}
	}
	return nil
}
