// Package variables holds the user-defined arithmetic and list variable
// catalogs and the dependency analysis over them (C2/C3).
package variables

import "github.com/scoutsky/filterc/filter"

// Arithmetic is a named per-document scalar computed by the external
// math-notation converter. Variable is the raw "<name>=<mathExpr>" form
// as authored.
type Arithmetic struct {
	Name     string
	Variable string
}

// ListCondition describes the reduction a List variable performs over an
// array field (§3).
type ListCondition struct {
	Field               string
	Operator            filter.OpTag
	SubField            string
	Value               filter.PredicateValue
	HasValue            bool
	ComparisonOperator  filter.OpTag
	ComparisonValue     any
	HasComparison        bool
	BooleanSwitch       *bool
}

// List is a named reduction over an array field: either a filtered
// sub-array (Operator == OpFilter) or an aggregated scalar.
type List struct {
	Name          string
	ListCondition ListCondition
}

// Catalog is the full set of arithmetic and list variables available to
// a compile call. Both maps are keyed by variable name.
type Catalog struct {
	Arithmetic map[string]Arithmetic
	List       map[string]List
}

// NewCatalog builds a Catalog from slices, the shape callers naturally
// have after decoding a request body.
func NewCatalog(arith []Arithmetic, list []List) Catalog {
	c := Catalog{
		Arithmetic: make(map[string]Arithmetic, len(arith)),
		List:       make(map[string]List, len(list)),
	}
	for _, a := range arith {
		c.Arithmetic[a.Name] = a
	}
	for _, l := range list {
		c.List[l.Name] = l
	}
	return c
}

// IsArithmetic reports whether name is a declared arithmetic variable.
func (c Catalog) IsArithmetic(name string) bool {
	_, ok := c.Arithmetic[name]
	return ok
}

// IsList reports whether name is a declared list variable.
func (c Catalog) IsList(name string) bool {
	_, ok := c.List[name]
	return ok
}
