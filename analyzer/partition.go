package analyzer

import (
	"strings"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// Partitioner splits top-level blocks into simple (pre-projection
// match-eligible) and complex (C5/§4.7).
type Partitioner struct {
	Vars   variables.Catalog
	Config filter.PartitionConfig
}

// NewPartitioner builds a Partitioner with cfg; a zero-value cfg (no
// Blocked/AllowedPrefixes) falls back to filter.DefaultPartitionConfig().
func NewPartitioner(vars variables.Catalog, cfg filter.PartitionConfig) *Partitioner {
	if len(cfg.BlockedPrefixes) == 0 && len(cfg.AllowedPrefixes) == 0 {
		cfg = filter.DefaultPartitionConfig()
	}
	return &Partitioner{Vars: vars, Config: cfg}
}

// TopLevelBlocks returns the nodes the partitioner classifies
// independently: root's children when root is a Block (the common case
// of an implicit top-level AND container), or root itself otherwise.
func TopLevelBlocks(root filter.Node) []filter.Node {
	if b, ok := root.(*filter.Block); ok {
		return b.Children
	}
	if root == nil {
		return nil
	}
	return []filter.Node{root}
}

// Partition splits top-level blocks into the entirely-simple subset and
// the remaining complex subset, preserving relative order within each.
func (p *Partitioner) Partition(topLevel []filter.Node) (simple, complex []filter.Node) {
	for _, n := range topLevel {
		if p.IsSimple(n) {
			simple = append(simple, n)
		} else {
			complex = append(complex, n)
		}
	}
	return simple, complex
}

// IsSimple reports whether node (recursively, if a Block) is entirely
// composed of simple leaves.
func (p *Partitioner) IsSimple(node filter.Node) bool {
	switch n := node.(type) {
	case *filter.Condition:
		return p.isSimpleCondition(n)
	case *filter.Block:
		if n.IsNamedFalseBlock() {
			return false
		}
		for _, child := range n.Children {
			if !p.IsSimple(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// complexOperators is the set of operators that always require a prior
// projection stage (§4.7 excludes reductions from "first-order").
var complexOperators = map[filter.OpTag]bool{
	filter.OpAnyElementTrue:  true,
	filter.OpAllElementsTrue: true,
	filter.OpFilter:          true,
	filter.OpMin:             true,
	filter.OpMax:             true,
	filter.OpAvg:             true,
	filter.OpSum:             true,
}

func (p *Partitioner) isSimpleCondition(cond *filter.Condition) bool {
	field := filter.Normalize(cond.Field)
	if field == "" {
		return false
	}
	if p.Vars.IsArithmetic(field) || p.Vars.IsList(field) {
		return false
	}
	if complexOperators[cond.Operator] {
		return false
	}
	if p.Config.IsBlocked(field) {
		return false
	}
	if p.Config.IsAllowedSubPath(field) {
		return true
	}
	// A scalar field (no dotted sub-path at all) is simple; a dotted
	// sub-path under a prefix not explicitly allowed is not, since it
	// may name a denormalized array collection the config doesn't know
	// about.
	return !strings.Contains(field, ".")
}
