package compiler

import (
	"regexp"
	"strconv"

	"github.com/spf13/cast"
)

// coerceNumericLike converts a string that looks like a number into a
// float64/int, leaving every other value (including non-numeric
// strings) untouched. This backs Context A's "numeric string values are
// coerced to numbers when numeric-like" rule (§4.3) and the §7.4
// unknown-operator fallback.
func coerceNumericLike(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s == "" {
		return v
	}
	if !numericLike.MatchString(s) {
		return v
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := cast.ToFloat64E(s); err == nil {
		return f
	}
	return v
}

var numericLike = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// escapeRegexLiteral escapes regex metacharacters in a literal substring
// used to build an anchored contains/starts-with/ends-with pattern.
func escapeRegexLiteral(s string) string {
	return regexp.QuoteMeta(s)
}
