// Package compiler turns a single condition, and a block of conditions,
// into a document-query fragment, dispatching to the correct emission
// shape for where in the pipeline the fragment will live (§4.3).
package compiler

import "strings"

// Kind names one of the three emission contexts a condition can compile
// into, depending on where in the pipeline the resulting fragment will
// live.
type Kind int

const (
	// ContextMatch ("Context A") compiles a condition for a document
	// $match stage: plain field-name keys, operator-document values.
	ContextMatch Kind = iota
	// ContextArrayScan ("Context B") compiles a condition for use inside
	// a $map/$filter body scanning an array: the scanned array's own
	// fields drop their prefix and become $$this.<sub>, everything else
	// is an absolute $<field>, and every operator emits as an
	// expression operator.
	ContextArrayScan
	// ContextProjection ("Context C") is identical to ContextArrayScan
	// except there is no $$this — every field path, including ones that
	// would have been array-relative, is absolute.
	ContextProjection
)

// Context carries the emission kind plus, for ContextArrayScan, the name
// of the array field being scanned.
type Context struct {
	Kind        Kind
	ArrayField  string
}

// Match returns the Context A emission context.
func Match() Context { return Context{Kind: ContextMatch} }

// ArrayScan returns the Context B emission context scanning arrayField.
func ArrayScan(arrayField string) Context {
	return Context{Kind: ContextArrayScan, ArrayField: arrayField}
}

// Projection returns the Context C emission context.
func Projection() Context { return Context{Kind: ContextProjection} }

// FieldPath renders field according to the context's rules:
//   - ContextMatch: the bare field path, unchanged.
//   - ContextArrayScan: "$$this.<sub>" when field is inside the scanned
//     array, "$<field>" otherwise.
//   - ContextProjection: always "$<field>".
func (c Context) FieldPath(field string) string {
	switch c.Kind {
	case ContextMatch:
		return field
	case ContextArrayScan:
		if c.ArrayField != "" && hasFieldPrefix(field, c.ArrayField) {
			rest := strings.TrimPrefix(field, c.ArrayField)
			rest = strings.TrimPrefix(rest, ".")
			if rest == "" {
				return "$$this"
			}
			return "$$this." + rest
		}
		return "$" + field
	case ContextProjection:
		return "$" + field
	default:
		return field
	}
}

// IsExpression reports whether the context emits expression-operator
// documents ($eq/$gt/... as arrays) rather than match-operator documents
// ({field: {$eq: v}}).
func (c Context) IsExpression() bool {
	return c.Kind == ContextArrayScan || c.Kind == ContextProjection
}

func hasFieldPrefix(field, prefix string) bool {
	if field == prefix {
		return true
	}
	return strings.HasPrefix(field, prefix+".")
}
