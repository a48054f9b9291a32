package compiler

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// Compiler converts a single Condition into a document-query fragment
// (C6) in one of the three contexts defined by context.go.
type Compiler struct {
	Schema filter.Schema
	Vars   variables.Catalog
	Deps   *variables.Analyzer
	Log    logrus.FieldLogger

	// Inline names the arithmetic variables that must be substituted by
	// their math expression rather than referenced by projected name,
	// because the condition referencing them compiles inside a
	// projection stage that runs before that variable's own layer
	// (§4.3 "Inlined-variable wrap", Design Notes).
	Inline map[string]bool
}

// NewCompiler builds a Compiler. log may be nil (defaults to
// logrus.StandardLogger()).
func NewCompiler(schema filter.Schema, vars variables.Catalog, deps *variables.Analyzer, log logrus.FieldLogger) *Compiler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Compiler{Schema: schema, Vars: vars, Deps: deps, Log: log, Inline: map[string]bool{}}
}

// CompileCondition compiles cond in ctx. A malformed condition (§7.1,
// no field or no operator) returns an empty map, which the block
// compiler drops.
func (c *Compiler) CompileCondition(cond *filter.Condition, ctx Context) map[string]any {
	field := filter.Normalize(cond.Field)
	if field == "" || cond.Operator == filter.OpUnknown {
		c.Log.WithField("condition", cond.ID).Warn(filter.ErrMalformedCondition.New(cond.ID).Error())
		return map[string]any{}
	}

	if cond.Operator.IsReduction() {
		expr := c.compileReduction(field, cond, ctx)
		if ctx.Kind == ContextMatch {
			return map[string]any{"$expr": expr}
		}
		return expr
	}

	return c.compileScalarCondition(field, cond, ctx)
}

// fieldExprOrInline returns the expression a non-reduction condition's
// field compiles to: the bare/prefixed field path, unless field names an
// arithmetic variable marked for inlining, in which case its math
// expression is substituted directly.
func (c *Compiler) fieldExprOrInline(field string, ctx Context) (any, bool) {
	if c.Inline[field] && c.Deps != nil {
		return c.Deps.ConvertMath(field), true
	}
	return ctx.FieldPath(field), false
}

func (c *Compiler) compileScalarCondition(field string, cond *filter.Condition, ctx Context) map[string]any {
	path, inlined := c.fieldExprOrInline(field, ctx)
	fragment := c.compileOperator(field, path, inlined, cond, ctx)
	if len(fragment) == 0 {
		return map[string]any{}
	}

	// The length-threshold optimization (§4.3) already returns a complete
	// document keyed by its own positional path (e.g. "tags.2"), not an
	// operator fragment to nest under field — renesting it would produce
	// {"tags": {"tags.2": {...}}}.
	if isLengthThreshold(cond.Operator) {
		return fragment
	}

	if !ctx.IsExpression() {
		if inlined {
			// §4.3: wrap the substituted comparison inside $expr so an
			// expression-operator fragment is syntactically valid at a
			// match-stage site.
			return map[string]any{"$expr": fragment}
		}
		return map[string]any{field: fragment}
	}
	return fragment
}

func isLengthThreshold(op filter.OpTag) bool {
	return op == filter.OpLengthGreater || op == filter.OpLengthLess
}

// compileOperator dispatches a single operator to its fragment. path is
// already rendered for ctx (a field path string, or an inlined
// expression when inlined is true). The returned map, for ContextMatch
// and !inlined, is the *operator document* to nest under the field key;
// for ContextMatch and inlined, or for an expression context, it is the
// full self-contained expression document. lengthGt/lengthLt are the
// exception: in every context they return a complete match document
// keyed by the positional path.
func (c *Compiler) compileOperator(field string, path any, inlined bool, cond *filter.Condition, ctx Context) map[string]any {
	expr := ctx.IsExpression() || inlined
	val, _ := cond.Value.Scalar()

	switch cond.Operator {
	case filter.OpEqual, filter.OpNotEqual:
		return c.compileEquality(field, path, expr, cond.Operator == filter.OpNotEqual, val)

	case filter.OpLess, filter.OpLessOrEqual, filter.OpGreater, filter.OpGreaterOrEqual:
		return c.compileOrdered(path, expr, cond.Operator, val)

	case filter.OpIn, filter.OpNotIn:
		arr := toSlice(val)
		if expr {
			op := "$in"
			if cond.Operator == filter.OpNotIn {
				op = "$not"
				return map[string]any{op: map[string]any{"$in": []any{path, arr}}}
			}
			return map[string]any{op: []any{path, arr}}
		}
		op := "$in"
		if cond.Operator == filter.OpNotIn {
			op = "$nin"
		}
		return map[string]any{op: arr}

	case filter.OpContains, filter.OpStartsWith, filter.OpEndsWith:
		return c.compileRegex(path, expr, cond.Operator, val)

	case filter.OpExists, filter.OpNotExists:
		want := cond.Operator == filter.OpExists
		if expr {
			return map[string]any{"$ne": []any{path, nil}}
		}
		return map[string]any{"$exists": want}

	case filter.OpIsNumber:
		if expr {
			return map[string]any{"$isNumber": path}
		}
		return map[string]any{"isNumber": true}

	case filter.OpBetween, filter.OpNotBetween:
		lo, hi, _ := cond.Value.Range()
		return c.compileBetween(path, expr, cond.Operator == filter.OpNotBetween, lo, hi)

	case filter.OpArrayLength:
		n := toInt(val)
		if expr {
			return map[string]any{"$eq": []any{map[string]any{"$size": path}, n}}
		}
		return map[string]any{"$size": n}

	case filter.OpArrayEmpty, filter.OpArrayNotEmpty:
		empty := cond.Operator == filter.OpArrayEmpty
		if expr {
			cmp := map[string]any{"$eq": []any{map[string]any{"$size": path}, 0}}
			if !empty {
				return map[string]any{"$not": cmp}
			}
			return cmp
		}
		if empty {
			return map[string]any{"$size": 0}
		}
		return map[string]any{"$not": map[string]any{"$size": 0}}

	case filter.OpLengthGreater, filter.OpLengthLess:
		return c.compileLengthThreshold(field, cond.Operator, val)

	default:
		// §7.4: unknown operator emitted as last-resort equality.
		c.Log.WithField("field", field).Warn(filter.ErrUnknownOperator.New(string(cond.Operator), field).Error())
		return c.compileEquality(field, path, expr, false, val)
	}
}

// compileEquality implements the boolean-awareness rule (§4.3/P7):
// equality against a schema-declared boolean FIELD always emits a
// membership test rather than $eq/$ne ($in/$nin in match context; $in,
// or $not of $in when negated, in expression contexts), so a
// missing/null operand does not yield a spurious match.
// The comparison value's own Go type plays no part in this — a literal
// `true` compared against a field the schema doesn't declare boolean
// still emits a plain $eq.
func (c *Compiler) compileEquality(field string, path any, expr bool, negate bool, val any) map[string]any {
	useIn := filter.IsBoolean(field, c.Schema)

	if useIn {
		op := "$in"
		if negate {
			op = "$nin"
		}
		if expr {
			inner := "$in"
			if negate {
				return map[string]any{"$not": map[string]any{"$in": []any{path, []any{val}}}}
			}
			return map[string]any{inner: []any{path, []any{val}}}
		}
		return map[string]any{op: []any{val}}
	}

	v := coerceNumericLike(val)
	if expr {
		op := "$eq"
		if negate {
			op = "$ne"
		}
		return map[string]any{op: []any{path, v}}
	}
	op := "$eq"
	if negate {
		op = "$ne"
	}
	return map[string]any{op: v}
}

func (c *Compiler) compileOrdered(path any, expr bool, op filter.OpTag, val any) map[string]any {
	v := coerceNumericLike(val)
	key := map[filter.OpTag]string{
		filter.OpLess: "$lt", filter.OpLessOrEqual: "$lte",
		filter.OpGreater: "$gt", filter.OpGreaterOrEqual: "$gte",
	}[op]
	if expr {
		return map[string]any{key: []any{path, v}}
	}
	return map[string]any{key: v}
}

func (c *Compiler) compileBetween(path any, expr bool, negate bool, lo, hi any) map[string]any {
	lo, hi = coerceNumericLike(lo), coerceNumericLike(hi)
	if expr {
		cmp := map[string]any{"$and": []any{
			map[string]any{"$gte": []any{path, lo}},
			map[string]any{"$lte": []any{path, hi}},
		}}
		if negate {
			return map[string]any{"$not": cmp}
		}
		return cmp
	}
	if negate {
		return map[string]any{"$not": map[string]any{"$gte": lo, "$lte": hi}}
	}
	return map[string]any{"$gte": lo, "$lte": hi}
}

// compileRegex implements contains/starts-with/ends-with, escaping
// literal delimiters and attaching case-insensitive options in Context
// A (§4.3).
func (c *Compiler) compileRegex(path any, expr bool, op filter.OpTag, val any) map[string]any {
	literal, _ := val.(string)
	escaped := escapeRegexLiteral(literal)
	var pattern string
	switch op {
	case filter.OpStartsWith:
		pattern = "^" + escaped
	case filter.OpEndsWith:
		pattern = escaped + "$"
	default:
		pattern = escaped
	}
	if expr {
		return map[string]any{"$regexMatch": map[string]any{"input": path, "regex": pattern, "options": "i"}}
	}
	return map[string]any{"$regex": pattern, "$options": "i"}
}

// compileLengthThreshold implements §4.3's length-threshold optimization:
// never $size, only index-presence tests at a positional path.
func (c *Compiler) compileLengthThreshold(field string, op filter.OpTag, val any) map[string]any {
	n := toInt(val)
	switch op {
	case filter.OpLengthGreater:
		if n < 0 {
			// "length > negative number" is unconditionally true; no
			// constraint to express at all.
			return map[string]any{}
		}
		return map[string]any{lenIndexKey(field, n): map[string]any{"$exists": true}}
	default: // OpLengthLess
		if n <= 0 {
			// "N ≤ 0 returns an unconditional true / emptiness test":
			// n==0 renders as an emptiness test (no element at index 0);
			// n<0 renders as an empty document, i.e. no constraint.
			if n == 0 {
				return map[string]any{field + ".0": map[string]any{"$exists": false}}
			}
			return map[string]any{}
		}
		return map[string]any{lenIndexKey(field, n-1): map[string]any{"$exists": false}}
	}
}

// lenIndexKey builds the dotted positional path "<field>.<n>" used by
// the length-threshold optimization instead of $size.
func lenIndexKey(field string, n int) string {
	return field + "." + strconv.Itoa(n)
}

func toSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	if v == nil {
		return []any{}
	}
	return []any{v}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return 0
}
