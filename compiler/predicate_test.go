package compiler

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

func newTestCompiler(schema filter.Schema) *Compiler {
	catalog := variables.NewCatalog(nil, nil)
	deps := variables.NewAnalyzer(catalog, noopConverter{}, testLogger())
	return NewCompiler(schema, catalog, deps, testLogger())
}

type noopConverter struct{}

func (noopConverter) ConvertMath(expr string) (filter.DBExpr, error) { return "$" + expr, nil }
func (noopConverter) ExtractDependencies(expr string) ([]string, error) { return nil, nil }

func cond(field string, op filter.OpTag, val any) *filter.Condition {
	return &filter.Condition{
		ID:       "c1",
		Field:    filter.NewFieldID(field),
		Operator: op,
		Value:    filter.NewScalarValue(val),
	}
}

func TestCompileEqualityScalarMatch(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("mag", filter.OpEqual, 12.5), Match())
	assert.Equal(t, map[string]any{"mag": map[string]any{"$eq": 12.5}}, got)
}

func TestCompileEqualityBooleanUsesIn(t *testing.T) {
	c := newTestCompiler(filter.Schema{"is_real": filter.Boolean})
	got := c.CompileCondition(cond("is_real", filter.OpEqual, true), Match())
	assert.Equal(t, map[string]any{"is_real": map[string]any{"$in": []any{true}}}, got)
}

func TestCompileEqualityBooleanValueWithoutSchemaStaysEq(t *testing.T) {
	// The boolean-equality rule keys off the schema's declared field
	// type, not the Go type of the comparison value: an undeclared field
	// compared against a literal bool still emits plain $eq/$ne.
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("flag", filter.OpNotEqual, false), Match())
	assert.Equal(t, map[string]any{"flag": map[string]any{"$ne": false}}, got)
}

func TestCompileLengthGreaterNeverUsesSize(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("prv_candidates", filter.OpLengthGreater, 2), Match())
	assert.Equal(t, map[string]any{"prv_candidates.2": map[string]any{"$exists": true}}, got)
	assert.NotContains(t, fmtKeys(got), "$size")
}

func TestCompileLengthLessZero(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("prv_candidates", filter.OpLengthLess, 0), Match())
	assert.Equal(t, map[string]any{"prv_candidates.0": map[string]any{"$exists": false}}, got)
}

func TestCompileArrayScanContextUsesThis(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("prv_candidates.mag", filter.OpGreater, 18), ArrayScan("prv_candidates"))
	assert.Equal(t, map[string]any{"$gt": []any{"$$this.mag", 18}}, got)
}

func TestCompileProjectionContextIsAbsolute(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("mag", filter.OpGreater, 18), Projection())
	assert.Equal(t, map[string]any{"$gt": []any{"$mag", 18}}, got)
}

func TestCompileMalformedConditionReturnsEmpty(t *testing.T) {
	c := newTestCompiler(filter.Schema{})
	got := c.CompileCondition(cond("", filter.OpEqual, 1), Match())
	assert.Empty(t, got)
}

func fmtKeys(m map[string]any) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
