package filter

import errors "gopkg.in/src-d/go-errors.v1"

// Declared error kinds for the §7 error taxonomy. None of these ever
// abort a compile; they tag diagnostics that get logged and the compile
// proceeds with the documented fallback. They are exported so an
// embedding host can match a logged diagnostic against a kind with
// ErrCyclicVariable.Is(err), the same pattern the teacher uses for
// ErrNotAuthorized.
var (
	// ErrMalformedCondition marks a condition missing a field or
	// operator (§7.1); the block compiler drops it.
	ErrMalformedCondition = errors.NewKind("malformed condition: %s")
	// ErrMathConversionFailed describes a failed convertMath call (§7.2),
	// after which the variable falls back to a bare field reference.
	// variables.Analyzer logs that failure as a pkg/errors wrap of the
	// converter's error, not as an error of this kind.
	ErrMathConversionFailed = errors.NewKind("math expression conversion failed for variable %q: %s")
	// ErrCyclicVariable marks a detected cycle in the arithmetic
	// variable dependency graph (§7.3); the offending edge is skipped.
	ErrCyclicVariable = errors.NewKind("cyclic dependency detected at variable %q")
	// ErrUnknownOperator marks an operator that failed to resolve to a
	// canonical OpTag (§7.4); the condition falls back to equality.
	ErrUnknownOperator = errors.NewKind("unknown operator %q on field %q, falling back to equality")
	// ErrInvalidPipeline is never returned by Compile; it exists so
	// callers of IsValidPipeline can report *why* a pipeline failed
	// validation using the same kind machinery as the rest of the
	// package, without the validator itself panicking or erroring.
	ErrInvalidPipeline = errors.NewKind("invalid pipeline: %s")
)
