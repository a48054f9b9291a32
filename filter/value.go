package filter

// PredicateValue is the right-hand side of a Condition. Exactly one of
// the accessors below is meaningful for a given condition/operator pair;
// which one is determined by the operator (§3).
type PredicateValue struct {
	scalar any
	rng    [2]any
	hasRng bool
	block  Node
	array  *ArrayValue
}

// ArrayValue is the `{type:"array", ...}` shape used by list-reduction
// predicates that supply an explicit comparator instead of a nested
// block.
type ArrayValue struct {
	Field             string
	SubField          string
	Value             any
	Comparison        string
	ComparisonValue   any
}

// NewScalarValue wraps a plain scalar predicate value.
func NewScalarValue(v any) PredicateValue { return PredicateValue{scalar: v} }

// NewRangeValue wraps a [lo, hi] pair used by between/not-between.
func NewRangeValue(lo, hi any) PredicateValue {
	return PredicateValue{rng: [2]any{lo, hi}, hasRng: true}
}

// NewBlockValue wraps a nested block, used by list-reduction predicates
// whose body is itself a sub-tree.
func NewBlockValue(n Node) PredicateValue { return PredicateValue{block: n} }

// NewArrayValue wraps an explicit-comparator list-reduction value.
func NewArrayValue(a ArrayValue) PredicateValue { return PredicateValue{array: &a} }

func (v PredicateValue) Scalar() (any, bool) {
	if v.hasRng || v.block != nil || v.array != nil {
		return nil, false
	}
	return v.scalar, true
}

func (v PredicateValue) Range() (lo, hi any, ok bool) {
	if !v.hasRng {
		return nil, nil, false
	}
	return v.rng[0], v.rng[1], true
}

func (v PredicateValue) Block() (Node, bool) {
	if v.block == nil {
		return nil, false
	}
	return v.block, true
}

func (v PredicateValue) Array() (ArrayValue, bool) {
	if v.array == nil {
		return ArrayValue{}, false
	}
	return *v.array, true
}

// IsZero reports whether the value carries no payload at all — the
// malformed-condition case (§7.1).
func (v PredicateValue) IsZero() bool {
	return v.scalar == nil && !v.hasRng && v.block == nil && v.array == nil
}
