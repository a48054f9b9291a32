package filterc

import (
	"context"
	"testing"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/testutil"
	"github.com/scoutsky/filterc/variables"
)

var fuzzFields = []string{"mag", "dec", "ra", "zp", "tags", "candidates"}

var fuzzOps = []filter.OpTag{
	filter.OpEqual, filter.OpNotEqual, filter.OpGreater, filter.OpLess,
	filter.OpGreaterOrEqual, filter.OpLessOrEqual, filter.OpExists,
	filter.OpNotExists, filter.OpIsNumber, filter.OpLengthGreater, filter.OpLengthLess,
}

var fuzzOpsWithReductions = append(append([]filter.OpTag{}, fuzzOps...),
	filter.OpAnyElementTrue, filter.OpAllElementsTrue, filter.OpFilter,
	filter.OpMin, filter.OpMax, filter.OpAvg, filter.OpSum,
)

func fuzzCompiler() *Compiler {
	catalog := variables.NewCatalog(nil, nil)
	return New(filter.Schema{"candidates": filter.Array}, catalog, exprConverter{}, filter.DefaultPartitionConfig(), nil, nil)
}

// P1: compiling the same tree twice yields byte-identical pipelines.
func TestFuzzDeterministicAcrossInvocations(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		builder := testutil.NewTreeBuilder(seed, fuzzFields, fuzzOps)
		tree := builder.Build()
		c := fuzzCompiler()

		first := c.Compile(context.Background(), tree, Options{})
		second := c.Compile(context.Background(), tree, Options{})

		if FormatPipeline(first) != FormatPipeline(second) {
			t.Fatalf("seed %d: two compiles of the same tree diverged", seed)
		}
	}
}

// P3: the final projection always retains objectId plus every used field.
func TestFuzzFinalProjectionRetainsUsedFields(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		builder := testutil.NewTreeBuilder(seed, fuzzFields, fuzzOps)
		tree := builder.Build()
		c := fuzzCompiler()

		p := c.Compile(context.Background(), tree, Options{})
		if len(p) == 0 {
			continue
		}
		final := p[len(p)-1]["$project"].(map[string]any)
		if _, ok := final["objectId"]; !ok {
			t.Fatalf("seed %d: final projection missing objectId", seed)
		}
		// The catalog is empty, so every condition field is a used base field.
		var walk func(filter.Node)
		walk = func(n filter.Node) {
			switch node := n.(type) {
			case *filter.Block:
				for _, child := range node.Children {
					walk(child)
				}
			case *filter.Condition:
				field := filter.Normalize(node.Field)
				if _, ok := final[field]; !ok {
					t.Fatalf("seed %d: final projection missing used field %q", seed, field)
				}
			}
		}
		walk(tree)
	}
}

// P6: any tree with at least one condition yields a valid pipeline; a
// condition-less tree yields an empty, invalid one.
func TestFuzzValidatorRoundTrip(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		builder := testutil.NewTreeBuilder(seed, fuzzFields, fuzzOpsWithReductions)
		tree := builder.Build()
		c := fuzzCompiler()

		p := c.Compile(context.Background(), tree, Options{})
		if !IsValidPipeline(p) {
			t.Fatalf("seed %d: randomly built tree with conditions produced an invalid pipeline: %s", seed, FormatPipeline(p))
		}
	}

	empty := &filter.Block{ID: "empty", Logic: filter.And}
	c := fuzzCompiler()
	p := c.Compile(context.Background(), empty, Options{})
	if IsValidPipeline(p) {
		t.Fatal("a condition-less tree must yield an invalid (empty) pipeline")
	}
}

// P5: lengthGt/lengthLt conditions never emit $size.
func TestFuzzLengthOperatorsNeverEmitSize(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		builder := testutil.NewTreeBuilder(seed, fuzzFields, []filter.OpTag{filter.OpLengthGreater, filter.OpLengthLess})
		tree := builder.Build()
		c := fuzzCompiler()

		p := c.Compile(context.Background(), tree, Options{})
		if containsSizeOperator(p) {
			t.Fatalf("seed %d: a lengthGt/lengthLt-only tree produced a $size operator", seed)
		}
	}
}

func containsSizeOperator(p Pipeline) bool {
	var walk func(any) bool
	walk = func(v any) bool {
		switch t := v.(type) {
		case map[string]any:
			for k, val := range t {
				if k == "$size" {
					return true
				}
				if walk(val) {
					return true
				}
			}
		case []any:
			for _, val := range t {
				if walk(val) {
					return true
				}
			}
		}
		return false
	}
	for _, stage := range p {
		for _, v := range stage {
			if walk(v) {
				return true
			}
		}
	}
	return false
}

// P4: an all-simple tree starts with a $match and never a $project first.
func TestFuzzSimpleTreeHoistsMatchFirst(t *testing.T) {
	simpleOps := []filter.OpTag{filter.OpEqual, filter.OpNotEqual, filter.OpGreater, filter.OpLess, filter.OpExists}
	for seed := int64(0); seed < 25; seed++ {
		builder := testutil.NewTreeBuilder(seed, []string{"mag", "dec", "ra"}, simpleOps)
		tree := builder.Build()
		c := fuzzCompiler()

		p := c.Compile(context.Background(), tree, Options{})
		if len(p) == 0 {
			continue
		}
		if _, ok := p[0]["$match"]; !ok {
			t.Fatalf("seed %d: all-simple tree's first stage was not $match: %s", seed, FormatPipeline(p))
		}
	}
}
