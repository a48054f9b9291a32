// Package testutil builds randomized filter trees for the property-based
// tests described in the fuzzing section of the design notes (P1-P8).
package testutil

import (
	"math/rand"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/scoutsky/filterc/filter"
)

// TreeBuilder generates bounded-depth filter trees over a fixed set of
// candidate fields and operators.
type TreeBuilder struct {
	Rand      *rand.Rand
	MaxDepth  int
	Fields    []string
	Operators []filter.OpTag
	Values    []any
}

// NewTreeBuilder builds a TreeBuilder seeded deterministically so a
// failing case is reproducible by re-running with the same seed.
func NewTreeBuilder(seed int64, fields []string, operators []filter.OpTag) *TreeBuilder {
	return &TreeBuilder{
		Rand:      rand.New(rand.NewSource(seed)),
		MaxDepth:  3,
		Fields:    fields,
		Operators: operators,
		Values:    []any{0, 1, 42, "x", "needle", true, false},
	}
}

// Build returns a random tree no deeper than b.MaxDepth. A Block always
// wraps the root so callers get a consistent top-level shape to feed
// analyzer.TopLevelBlocks.
func (b *TreeBuilder) Build() filter.Node {
	return b.buildBlock(b.MaxDepth)
}

func (b *TreeBuilder) buildBlock(depth int) *filter.Block {
	n := 1 + b.Rand.Intn(3)
	children := make([]filter.Node, n)
	for i := range children {
		children[i] = b.buildNode(depth - 1)
	}
	logic := filter.And
	if b.Rand.Intn(2) == 0 {
		logic = filter.Or
	}
	return &filter.Block{
		ID:        newID(),
		Logic:     logic,
		Children:  children,
		Timestamp: time.Now(),
	}
}

func (b *TreeBuilder) buildNode(depth int) filter.Node {
	if depth <= 0 || b.Rand.Intn(3) != 0 {
		return b.buildCondition()
	}
	return b.buildBlock(depth)
}

func (b *TreeBuilder) buildCondition() *filter.Condition {
	field := b.Fields[b.Rand.Intn(len(b.Fields))]
	op := b.Operators[b.Rand.Intn(len(b.Operators))]
	val := b.Values[b.Rand.Intn(len(b.Values))]
	return &filter.Condition{
		ID:        newID(),
		Field:     filter.NewFieldID(field),
		Operator:  op,
		Value:     filter.NewScalarValue(val),
		Timestamp: time.Now(),
	}
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "fuzz-id-fallback"
	}
	return id.String()
}
