// Package filter defines the tagged-union tree that a caller hands to the
// compiler: blocks combining children under AND/OR, and leaf conditions
// comparing a field against a value.
package filter

import "time"

// Logic is a block's combining connective.
type Logic string

const (
	And Logic = "and"
	Or  Logic = "or"
)

// Kind discriminates a Node's concrete shape.
type Kind string

const (
	KindBlock     Kind = "block"
	KindCondition Kind = "condition"
)

// Node is the sealed tagged union of Block and Condition. Only those two
// types implement it; the interface exists so trees can hold either shape
// in a single slice without resorting to inheritance.
type Node interface {
	NodeID() string
	NodeKind() Kind
	CreatedAt() time.Time

	isNode()
}

// Block combines its children under a logical connective. A Block with a
// non-empty CustomBlockName is a reusable named rule; IsTrue, when
// explicitly set to false, marks the block as "this named condition must
// be false" and routes through the projected-boolean path (§4.9).
type Block struct {
	ID              string
	Logic           Logic
	Children        []Node
	CustomBlockName string
	// IsTrue is nil when the block carries no custom name (the common
	// case); non-nil false triggers the projected-boolean materialization.
	IsTrue    *bool
	Timestamp time.Time
}

func (b *Block) NodeID() string        { return b.ID }
func (b *Block) NodeKind() Kind        { return KindBlock }
func (b *Block) CreatedAt() time.Time  { return b.Timestamp }
func (b *Block) isNode()               {}

// IsNamedFalseBlock reports whether b is a custom block that must
// evaluate to false (§4.9).
func (b *Block) IsNamedFalseBlock() bool {
	return b.CustomBlockName != "" && b.IsTrue != nil && !*b.IsTrue
}

// Condition is a leaf predicate: a field compared against a value with an
// operator, plus an optional boolean switch used by some list-reduction
// operators to invert the result.
type Condition struct {
	ID            string
	Field         FieldID
	Operator      OpTag
	Value         PredicateValue
	BooleanSwitch *bool
	Timestamp     time.Time
}

func (c *Condition) NodeID() string       { return c.ID }
func (c *Condition) NodeKind() Kind       { return KindCondition }
func (c *Condition) CreatedAt() time.Time { return c.Timestamp }
func (c *Condition) isNode()              {}

// Invert reports whether the condition's BooleanSwitch is explicitly set
// to false.
func (c *Condition) Invert() bool {
	return c.BooleanSwitch != nil && !*c.BooleanSwitch
}

// FieldID is either a plain string field name or an object carrying one
// of value/name/field. Use NewFieldID to build one from raw decoded JSON.
type FieldID struct {
	raw any
}

// NewFieldID wraps a decoded field identifier (string or
// map[string]any{"value"|"name"|"field": ...}) for later normalization.
func NewFieldID(raw any) FieldID { return FieldID{raw: raw} }

// Raw returns the identifier exactly as supplied.
func (f FieldID) Raw() any { return f.raw }
