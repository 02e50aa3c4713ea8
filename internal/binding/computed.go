package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ComputedRegistry maps names to compiled expressions. Computed bindings
// are a restricted mini-language (expr), not arbitrary code: a profile's
// computed file contributes expression sources, compiled once at load.
// Merging follows catalog semantics: child entries override parent entries
// of the same name.
type ComputedRegistry struct {
	programs map[string]*vm.Program
	sources  map[string]string
}

// NewComputedRegistry creates an empty registry.
func NewComputedRegistry() *ComputedRegistry {
	return &ComputedRegistry{
		programs: make(map[string]*vm.Program),
		sources:  make(map[string]string),
	}
}

// Register compiles source and stores it under name, replacing any
// existing entry of the same name.
func (cr *ComputedRegistry) Register(name, source string) error {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("compiling computed binding %q: %w", name, err)
	}
	cr.programs[name] = program
	cr.sources[name] = source
	return nil
}

// MergeFrom overlays every entry of other onto the registry.
// Entries in other win on name conflicts.
func (cr *ComputedRegistry) MergeFrom(other *ComputedRegistry) {
	if other == nil {
		return
	}
	for name, program := range other.programs {
		cr.programs[name] = program
		cr.sources[name] = other.sources[name]
	}
}

// Clone returns an independent copy. Programs are immutable once compiled
// and are shared between clones.
func (cr *ComputedRegistry) Clone() *ComputedRegistry {
	out := NewComputedRegistry()
	out.MergeFrom(cr)
	return out
}

// Has reports whether name is registered.
func (cr *ComputedRegistry) Has(name string) bool {
	_, ok := cr.programs[name]
	return ok
}

// Names returns all registered names, sorted.
func (cr *ComputedRegistry) Names() []string {
	names := make([]string, 0, len(cr.programs))
	for name := range cr.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the expression source registered under name.
func (cr *ComputedRegistry) Source(name string) (string, bool) {
	src, ok := cr.sources[name]
	return src, ok
}

// Len returns the number of registered entries.
func (cr *ComputedRegistry) Len() int {
	return len(cr.programs)
}

// Eval runs the named program against the expression environment.
// The helper functions are layered under the caller's env; env entries win
// on name conflicts.
func (cr *ComputedRegistry) Eval(name string, env map[string]any) (any, error) {
	program, ok := cr.programs[name]
	if !ok {
		return nil, fmt.Errorf("computed binding %q is not registered", name)
	}
	merged := make(map[string]any, len(exprHelpers)+len(env))
	for k, v := range exprHelpers {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	out, err := expr.Run(program, merged)
	if err != nil {
		return nil, fmt.Errorf("running computed binding %q: %w", name, err)
	}
	return out, nil
}

// exprHelpers exposes string helpers to computed expressions.
// Kept deliberately small and pure so identical contexts always yield
// identical values.
var exprHelpers = map[string]any{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(parts []any, sep string) string {
		strs := make([]string, len(parts))
		for i, p := range parts {
			strs[i] = fmt.Sprint(p)
		}
		return strings.Join(strs, sep)
	},
	"coalesce": func(vals ...any) any {
		for _, v := range vals {
			if v != nil && v != "" {
				return v
			}
		}
		return nil
	},
}
