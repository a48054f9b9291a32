package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlainString(t *testing.T) {
	assert.Equal(t, "candidate.mag", Normalize(NewFieldID("candidate.mag")))
}

func TestNormalizeObjectForm(t *testing.T) {
	assert.Equal(t, "ra", Normalize(NewFieldID(map[string]any{"value": "ra"})))
	assert.Equal(t, "dec", Normalize(NewFieldID(map[string]any{"name": "dec"})))
	assert.Equal(t, "jd", Normalize(NewFieldID(map[string]any{"field": "jd"})))
}

func TestNormalizeObjectPrefersValueOverName(t *testing.T) {
	assert.Equal(t, "ra", Normalize(NewFieldID(map[string]any{"value": "ra", "name": "dec"})))
}

func TestNormalizeNil(t *testing.T) {
	assert.Equal(t, "", Normalize(NewFieldID(nil)))
}

func TestNormalizeEmptyObject(t *testing.T) {
	assert.Equal(t, "", Normalize(NewFieldID(map[string]any{})))
}
