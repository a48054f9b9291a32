package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOperatorAliases(t *testing.T) {
	tests := []struct {
		raw  string
		want OpTag
	}{
		{"=", OpEqual},
		{"EQ", OpEqual},
		{" greater than ", OpGreater},
		{"$gte", OpGreaterOrEqual},
		{"not-between", OpNotBetween},
		{"lengthGt", OpLengthGreater},
		{"anyElementTrue", OpAnyElementTrue},
		{"gt", OpGreater},
	}
	for _, tt := range tests {
		got, ok := ParseOperator(tt.raw)
		assert.True(t, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestParseOperatorCanonicalPassthrough(t *testing.T) {
	got, ok := ParseOperator("lengthLt")
	assert.True(t, ok)
	assert.Equal(t, OpLengthLess, got)
}

func TestParseOperatorUnknown(t *testing.T) {
	got, ok := ParseOperator("frobnicate")
	assert.False(t, ok)
	assert.Equal(t, OpUnknown, got)
}

func TestIsReduction(t *testing.T) {
	assert.True(t, OpFilter.IsReduction())
	assert.True(t, OpAvg.IsReduction())
	assert.False(t, OpEqual.IsReduction())
}
