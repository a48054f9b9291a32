package pipeline

import "time"

// isDate reports whether v is a time.Time, satisfying §4.10's
// "number|string|date" comparability requirement for $gt/$gte/$lt/$lte
// array-form operands.
func isDate(v any) bool {
	_, ok := v.(time.Time)
	return ok
}
