// Package analyzer walks a filter tree to collect field usage (C4) and
// to split top-level blocks into simple and complex partitions (C5).
package analyzer

import (
	"github.com/scoutsky/filterc/compiler"
	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// UsedFields is the C4(b) result: the three sets of names reachable from
// a tree, as maps keyed for O(1) membership. Map order is not stable, so
// callers sort the keys where iteration order reaches the output (P1:
// byte-equal output across invocations).
type UsedFields struct {
	BaseFields    map[string]bool
	Variables     map[string]bool
	ListVariables map[string]bool
}

func newUsedFields() UsedFields {
	return UsedFields{
		BaseFields:    map[string]bool{},
		Variables:     map[string]bool{},
		ListVariables: map[string]bool{},
	}
}

// Usage runs C4's two passes: collecting used fields and counting
// arithmetic-variable usage. The counts are reported to the caller only;
// the assembler does not use them to choose which variables to inline.
type Usage struct {
	Vars     variables.Catalog
	Deps     *variables.Analyzer
	Compiler *compiler.Compiler
}

// NewUsage builds a Usage analyzer sharing the same catalog/deps/
// compiler instances the rest of the compile uses.
func NewUsage(vars variables.Catalog, deps *variables.Analyzer, comp *compiler.Compiler) *Usage {
	return &Usage{Vars: vars, Deps: deps, Compiler: comp}
}

// CollectUsedFields walks tree and returns every base field, arithmetic
// variable, and list variable it transitively depends on (C4b).
func (u *Usage) CollectUsedFields(tree filter.Node) UsedFields {
	out := newUsedFields()
	u.walkFields(tree, &out)
	return out
}

func (u *Usage) walkFields(node filter.Node, out *UsedFields) {
	switch n := node.(type) {
	case *filter.Block:
		for _, child := range n.Children {
			u.walkFields(child, out)
		}
	case *filter.Condition:
		u.walkCondition(n, out)
	}
}

func (u *Usage) walkCondition(cond *filter.Condition, out *UsedFields) {
	field := filter.Normalize(cond.Field)
	u.classifyField(field, out)

	if block, ok := cond.Value.Block(); ok {
		u.walkFields(block, out)
	}
	if arr, ok := cond.Value.Array(); ok && arr.Field != "" {
		u.classifyField(arr.Field, out)
	}
}

// classifyField records field as a base field, arithmetic variable, or
// list variable, pulling in the appropriate transitive dependencies for
// each case.
func (u *Usage) classifyField(field string, out *UsedFields) {
	if field == "" {
		return
	}
	switch {
	case u.Vars.IsArithmetic(field):
		if out.Variables[field] {
			return
		}
		out.Variables[field] = true
		closure := u.Deps.Transitive(field)
		for _, f := range closure.BaseFields {
			out.BaseFields[f] = true
		}
		for _, v := range closure.Variables {
			out.Variables[v] = true
		}
		for _, lv := range closure.ListVariables {
			out.ListVariables[lv] = true
			u.absorbListVariableRefs(lv, out)
		}

	case u.Vars.IsList(field):
		if out.ListVariables[field] {
			return
		}
		out.ListVariables[field] = true
		u.absorbListVariableRefs(field, out)

	default:
		out.BaseFields[field] = true
	}
}

// absorbListVariableRefs pulls in the array field a list variable
// reduces over, plus any absolute field references its reduction body
// turns out to mention once dry-compiled through the predicate compiler
// in array-scan context (§4.6b): "scanning the output string literals
// starting with $ but not $$".
func (u *Usage) absorbListVariableRefs(name string, out *UsedFields) {
	lv, ok := u.Vars.List[name]
	if !ok {
		return
	}
	out.BaseFields[lv.ListCondition.Field] = true

	if u.Compiler == nil {
		return
	}
	compiled := u.Compiler.CompileListVariable(lv.ListCondition)
	for _, ref := range collectAbsoluteRefs(compiled) {
		out.BaseFields[ref] = true
	}
}

// collectAbsoluteRefs walks a compiled expression document and returns
// every string VALUE (never a map key — map keys are operator names like
// "$filter"/"$size") that begins with "$" but not "$$" (which marks
// $$this, an array-scan-local reference, not an absolute field path).
func collectAbsoluteRefs(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if len(t) > 1 && t[0] == '$' && t[1] != '$' {
				out = append(out, t[1:])
			}
		case map[string]any:
			for _, val := range t {
				walk(val)
			}
		case []any:
			for _, val := range t {
				walk(val)
			}
		}
	}
	walk(v)
	return out
}

// CountVariableUsage increments a counter for every appearance of an
// arithmetic-variable name anywhere a condition references it, including
// inside list bodies and array-value nestings (C4a). The compile path does
// not consult these counts; which variables are inlined is decided by
// compiler.CompileListVariable alone.
func (u *Usage) CountVariableUsage(tree filter.Node) map[string]int {
	counts := map[string]int{}
	u.countWalk(tree, counts)
	return counts
}

func (u *Usage) countWalk(node filter.Node, counts map[string]int) {
	switch n := node.(type) {
	case *filter.Block:
		for _, child := range n.Children {
			u.countWalk(child, counts)
		}
	case *filter.Condition:
		field := filter.Normalize(n.Field)
		if u.Vars.IsArithmetic(field) {
			counts[field]++
		}
		if block, ok := n.Value.Block(); ok {
			u.countWalk(block, counts)
		}
		if arr, ok := n.Value.Array(); ok && u.Vars.IsArithmetic(arr.Field) {
			counts[arr.Field]++
		}
	}
}
