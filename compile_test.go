package filterc

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// exprConverter is a tiny stand-in for the external math-notation
// converter: it recognizes a handful of expressions literally, which is
// all the scenarios below need.
type exprConverter struct{}

func (exprConverter) ConvertMath(expr string) (filter.DBExpr, error) {
	switch strings.TrimSpace(expr) {
	case "mag - zp":
		return map[string]any{"$subtract": []any{"$mag", "$zp"}}, nil
	default:
		return "$" + expr, nil
	}
}

func (exprConverter) ExtractDependencies(expr string) ([]string, error) {
	switch strings.TrimSpace(expr) {
	case "mag - zp":
		return []string{"mag", "zp"}, nil
	default:
		return []string{expr}, nil
	}
}

func newScenarioCompiler(catalog variables.Catalog) *Compiler {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return New(filter.Schema{}, catalog, exprConverter{}, filter.DefaultPartitionConfig(), log, nil)
}

func scalarCond(field string, op filter.OpTag, val any) *filter.Condition {
	return &filter.Condition{ID: field, Field: filter.NewFieldID(field), Operator: op, Value: filter.NewScalarValue(val)}
}

func rootBlock(children ...filter.Node) *filter.Block {
	return &filter.Block{ID: "root", Logic: filter.And, Children: children}
}

// Scenario 1: trivial simple.
func TestScenarioTrivialSimple(t *testing.T) {
	c := newScenarioCompiler(variables.NewCatalog(nil, nil))
	tree := rootBlock(scalarCond("ra", filter.OpEqual, 10))

	p := c.Compile(context.Background(), tree, Options{})
	require.True(t, IsValidPipeline(p))
	require.Len(t, p, 2)

	want := Pipeline{
		Stage{"$match": map[string]any{"ra": map[string]any{"$eq": 10}}},
		Stage{"$project": map[string]any{"objectId": 1, "ra": 1}},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

// Scenario 2: length threshold.
func TestScenarioLengthThreshold(t *testing.T) {
	c := newScenarioCompiler(variables.NewCatalog(nil, nil))
	tree := rootBlock(scalarCond("tags", filter.OpLengthGreater, 2))

	p := c.Compile(context.Background(), tree, Options{})
	require.True(t, IsValidPipeline(p))
	require.Len(t, p, 2)
	assert.Equal(t, Stage{"$match": map[string]any{"tags.2": map[string]any{"$exists": true}}}, p[0])
	project := p[1]["$project"].(map[string]any)
	assert.Equal(t, 1, project["tags"])
}

// Scenario 3: arithmetic variable.
func TestScenarioArithmeticVariable(t *testing.T) {
	catalog := variables.NewCatalog([]variables.Arithmetic{{Name: "m", Variable: "m=mag - zp"}}, nil)
	c := newScenarioCompiler(catalog)
	tree := scalarCond("m", filter.OpGreater, 20)

	p := c.Compile(context.Background(), tree, Options{})
	require.True(t, IsValidPipeline(p))
	require.Len(t, p, 4)

	initial := p[0]["$project"].(map[string]any)
	assert.Equal(t, 1, initial["objectId"])
	assert.Equal(t, 1, initial["mag"])
	assert.Equal(t, 1, initial["zp"])
	assert.NotContains(t, initial, "m")

	layer := p[1]["$project"].(map[string]any)
	assert.Equal(t, map[string]any{"$subtract": []any{"$mag", "$zp"}}, layer["m"])

	assert.Equal(t, Stage{"$match": map[string]any{"m": map[string]any{"$gt": 20}}}, p[2])

	final := p[3]["$project"].(map[string]any)
	assert.Equal(t, 1, final["m"])
}

// Scenario 4: list reduction (any).
func TestScenarioListReductionAny(t *testing.T) {
	c := newScenarioCompiler(variables.NewCatalog(nil, nil))
	body := rootBlock(scalarCond("candidates.fwhm", filter.OpLess, 3))
	cond := &filter.Condition{
		ID:       "c1",
		Field:    filter.NewFieldID("candidates"),
		Operator: filter.OpAnyElementTrue,
		Value:    filter.NewBlockValue(body),
	}

	p := c.Compile(context.Background(), cond, Options{})
	require.True(t, IsValidPipeline(p))
	require.Len(t, p, 2)

	match := p[0]["$match"].(map[string]any)
	expr := match["$expr"].(map[string]any)
	assert.Contains(t, expr, "$anyElementTrue")

	final := p[1]["$project"].(map[string]any)
	assert.Equal(t, 1, final["candidates"])
}

// Scenario 5: custom-block isTrue=false.
func TestScenarioCustomBlockNamedFalse(t *testing.T) {
	c := newScenarioCompiler(variables.NewCatalog(nil, nil))
	isTrue := false
	named := &filter.Block{
		ID:              "clean",
		Logic:           filter.And,
		CustomBlockName: "CLEAN",
		IsTrue:          &isTrue,
		Children:        []filter.Node{scalarCond("flag", filter.OpEqual, true)},
	}
	tree := rootBlock(named)

	p := c.Compile(context.Background(), tree, Options{})
	require.True(t, IsValidPipeline(p))

	initial := p[0]["$project"].(map[string]any)
	assert.Contains(t, initial, "CLEAN")

	falseMatches := 0
	for _, stage := range p {
		if m, ok := stage["$match"]; ok {
			if doc, ok := m.(map[string]any); ok {
				if v, ok := doc["CLEAN"]; ok && v == false {
					falseMatches++
				}
			}
		}
	}
	assert.Equal(t, 1, falseMatches, "expected exactly one $match to carry CLEAN:false")
}

// Scenario 6: list-variable with comparator.
func TestScenarioListVariableWithComparator(t *testing.T) {
	catalog := variables.NewCatalog(nil, []variables.List{
		{
			Name: "peak",
			ListCondition: variables.ListCondition{
				Field:    "candidates",
				Operator: filter.OpMax,
				SubField: "mag",
			},
		},
	})
	c := newScenarioCompiler(catalog)
	tree := scalarCond("peak", filter.OpGreater, 18.5)

	p := c.Compile(context.Background(), tree, Options{})
	require.True(t, IsValidPipeline(p))

	initial := p[0]["$project"].(map[string]any)
	assert.Equal(t, map[string]any{"$max": "$candidates.mag"}, initial["peak"])

	var sawMatch bool
	for _, stage := range p {
		if m, ok := stage["$match"]; ok {
			if doc, ok := m.(map[string]any); ok {
				if cmp, ok := doc["peak"].(map[string]any); ok {
					assert.Equal(t, 18.5, cmp["$gt"])
					sawMatch = true
				}
			}
		}
	}
	assert.True(t, sawMatch)
}
