package compiler

import (
	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// reductionSpec normalizes the two shapes a reduction can arrive in — a
// Condition whose operator is itself a reduction op, or a declared List
// variable's ListCondition — into one internal representation (C8).
type reductionSpec struct {
	Array      string
	Operator   filter.OpTag
	SubField   string
	Block      filter.Node
	HasBlock   bool
	ScalarVal  any
	HasScalar  bool
	CompareOp  filter.OpTag
	CompareVal any
	HasCompare bool
	Invert     bool
}

func reductionFromCondition(field string, cond *filter.Condition) reductionSpec {
	spec := reductionSpec{Array: field, Operator: cond.Operator, Invert: cond.Invert()}
	if block, ok := cond.Value.Block(); ok {
		spec.Block, spec.HasBlock = block, true
		return spec
	}
	if arr, ok := cond.Value.Array(); ok {
		spec.SubField = arr.SubField
		spec.ScalarVal, spec.HasScalar = arr.Value, arr.Value != nil
		if arr.Comparison != "" {
			if op, ok := filter.ParseOperator(arr.Comparison); ok {
				spec.CompareOp, spec.HasCompare = op, true
			}
		}
		spec.CompareVal = arr.ComparisonValue
		if arr.Field != "" {
			spec.Array = arr.Field
		}
		return spec
	}
	if v, ok := cond.Value.Scalar(); ok {
		spec.ScalarVal, spec.HasScalar = v, true
	}
	return spec
}

func reductionFromListCondition(lc variables.ListCondition) reductionSpec {
	spec := reductionSpec{Array: lc.Field, Operator: lc.Operator, SubField: lc.SubField}
	if lc.BooleanSwitch != nil {
		spec.Invert = !*lc.BooleanSwitch
	}
	if block, ok := lc.Value.Block(); ok {
		spec.Block, spec.HasBlock = block, true
	} else if v, ok := lc.Value.Scalar(); ok {
		spec.ScalarVal, spec.HasScalar = v, true
	}
	if lc.HasComparison {
		spec.CompareOp, spec.HasCompare = lc.ComparisonOperator, true
		spec.CompareVal = lc.ComparisonValue
	}
	return spec
}

// compileReduction compiles a Condition whose operator is a list
// reduction (field names the array being reduced). ctx is the context
// the *overall condition* lives in (typically ContextMatch); the
// reduction's own body always compiles in an array-scan context
// regardless, since $map/$filter bodies are always expression-context.
func (c *Compiler) compileReduction(field string, cond *filter.Condition, ctx Context) map[string]any {
	spec := reductionFromCondition(field, cond)
	result := c.compileReductionSpec(spec)
	if spec.Operator == filter.OpFilter {
		// As a standalone predicate (not a list-variable assignment) the
		// presence test is "did the filter keep anything" (§4.5).
		result = map[string]any{"$gt": []any{map[string]any{"$size": result}, 0}}
	}
	if isAggregationOp(spec.Operator) && !spec.HasCompare {
		// A standalone condition must be boolean-valued; absent an
		// explicit comparator, "(b) default to 'result is positive'"
		// (§4.5) applies here. CompileListVariable, by contrast, never
		// applies this default since its result is a projected scalar
		// meant for later comparison, not a boolean itself.
		result = map[string]any{"$gt": []any{result, 0}}
	}
	return result
}

func isAggregationOp(op filter.OpTag) bool {
	switch op {
	case filter.OpMin, filter.OpMax, filter.OpAvg, filter.OpSum:
		return true
	default:
		return false
	}
}

// CompileListVariable compiles a declared List variable's reduction for
// use as a projection value (Context C) — e.g. `peak: {$max:
// "$candidates.mag"}` in scenario 6, or a filtered sub-array for
// operator=filter.
//
// This compiles into the pipeline's stage-2 initial projection, which
// runs before any arithmetic-variable dependency layer exists (§4.8 step
// 2 precedes step 3). If the reduction body references an arithmetic
// variable, that variable has not been projected yet, so it must be
// substituted by its math expression directly (§4.3 "Inlined-variable
// wrap") rather than by an absolute reference to a field that doesn't
// exist in the document at this point in the pipeline.
func (c *Compiler) CompileListVariable(lc variables.ListCondition) any {
	spec := reductionFromListCondition(lc)
	if spec.HasBlock {
		marked := c.markArithmeticInline(spec.Block)
		defer c.clearInline(marked)
	}
	return c.compileReductionSpec(spec)
}

// markArithmeticInline marks every arithmetic variable referenced inside
// node (recursively, through nested reduction bodies too) for inline
// substitution, returning the names it marked so the caller can restore
// the compiler's state once the compile that needed them is done.
// Variables already marked (e.g. by an enclosing caller) are left alone
// and not included in the returned list, so a nested call never clears a
// marking it didn't set.
func (c *Compiler) markArithmeticInline(node filter.Node) []string {
	var marked []string
	var walk func(filter.Node)
	walk = func(n filter.Node) {
		switch t := n.(type) {
		case *filter.Block:
			for _, child := range t.Children {
				walk(child)
			}
		case *filter.Condition:
			field := filter.Normalize(t.Field)
			if field != "" && c.Vars.IsArithmetic(field) && !c.Inline[field] {
				c.Inline[field] = true
				marked = append(marked, field)
			}
			if block, ok := t.Value.Block(); ok {
				walk(block)
			}
		}
	}
	walk(node)
	return marked
}

// clearInline un-marks the variables named, restoring the compiler's
// Inline state to how markArithmeticInline found it.
func (c *Compiler) clearInline(names []string) {
	for _, n := range names {
		delete(c.Inline, n)
	}
}

func (c *Compiler) compileReductionSpec(spec reductionSpec) map[string]any {
	arrRef := "$" + spec.Array
	guarded := map[string]any{"$ifNull": []any{arrRef, []any{}}}
	scanCtx := ArrayScan(spec.Array)

	switch spec.Operator {
	case filter.OpFilter:
		cond := c.compileInnerBody(spec, scanCtx)
		// The filtered array itself: a declared List variable projects
		// it as-is, and compileReduction turns it into a presence test
		// for a standalone condition.
		return map[string]any{"$filter": map[string]any{
			"input": guarded,
			"as":    "this",
			"cond":  cond,
		}}

	case filter.OpAnyElementTrue, filter.OpAllElementsTrue:
		mapped := map[string]any{"$map": map[string]any{
			"input": guarded,
			"as":    "this",
			"in":    c.compileInnerBody(spec, scanCtx),
		}}
		op := "$anyElementTrue"
		if spec.Operator == filter.OpAllElementsTrue {
			op = "$allElementsTrue"
		}
		result := map[string]any{op: mapped}
		if spec.Invert {
			return map[string]any{"$not": result}
		}
		return result

	case filter.OpMin, filter.OpMax, filter.OpAvg, filter.OpSum:
		opKey := map[filter.OpTag]string{
			filter.OpMin: "$min", filter.OpMax: "$max",
			filter.OpAvg: "$avg", filter.OpSum: "$sum",
		}[spec.Operator]
		target := "$" + spec.Array
		if spec.SubField != "" {
			target = "$" + spec.Array + "." + spec.SubField
		}
		agg := map[string]any{opKey: target}
		if spec.HasCompare {
			cmpKey := map[filter.OpTag]string{
				filter.OpLess: "$lt", filter.OpLessOrEqual: "$lte",
				filter.OpGreater: "$gt", filter.OpGreaterOrEqual: "$gte",
				filter.OpEqual: "$eq", filter.OpNotEqual: "$ne",
			}[spec.CompareOp]
			if cmpKey == "" {
				cmpKey = "$gt"
			}
			return map[string]any{cmpKey: []any{agg, spec.CompareVal}}
		}
		// No explicit comparator: return the raw aggregation. A
		// standalone condition (compileReduction) applies the
		// "result is positive" default on top of this; a declared List
		// variable (CompileListVariable) is projected as this scalar
		// value itself, to be compared later by name.
		return agg

	default:
		return map[string]any{}
	}
}

// compileInnerBody compiles a reduction's inner predicate, which is
// either a nested block (compiled in scanCtx via the block compiler) or,
// absent a block, a scalar value meaning "each element equals this
// value" (§4.5: "a missing inner block with a scalar value yields a
// per-element equality map").
func (c *Compiler) compileInnerBody(spec reductionSpec, scanCtx Context) any {
	if spec.HasBlock {
		return CompileBlock(c, spec.Block, scanCtx)
	}
	if spec.HasScalar {
		this := scanCtx.FieldPath(spec.Array)
		return map[string]any{"$eq": []any{this, spec.ScalarVal}}
	}
	return map[string]any{"$literal": true}
}
