package pipeline

// IsValidPipeline structurally validates p per §4.10. A pipeline is
// valid iff it is a non-empty list of stages, each with exactly one
// top-level key from StageKeys, and every $match/$project's body passes
// recursive leaf validation.
//
// §9 Q2 is resolved stricter than the reference behavior here: an
// unknown stage key, or a known stage key whose value is nil, is
// treated as invalid rather than silently accepted.
func IsValidPipeline(p Pipeline) bool {
	if len(p) == 0 {
		return false
	}
	for _, stage := range p {
		if len(stage) != 1 {
			return false
		}
		for key, val := range stage {
			if !StageKeys[key] {
				return false
			}
			if val == nil {
				return false
			}
			switch key {
			case "$match", "$project":
				doc, ok := val.(map[string]any)
				if !ok || len(doc) == 0 {
					return false
				}
				if !validDoc(doc) {
					return false
				}
			}
		}
	}
	return true
}

// validDoc validates every key/value pair of a match/project body,
// recursing into nested documents and arrays.
func validDoc(doc map[string]any) bool {
	for key, val := range doc {
		if key == "" {
			return false
		}
		if !validValue(key, val) {
			return false
		}
	}
	return true
}

func validValue(key string, val any) bool {
	switch key {
	case "$in", "$nin":
		return isArray(val)
	case "$size":
		return isNonNegativeInt(val)
	case "$gt", "$gte", "$lt", "$lte":
		if arr, ok := val.([]any); ok {
			for _, el := range arr {
				if isComparable(el) {
					return true
				}
			}
			return false
		}
		// Only the array (expression) form is type-checked; an operand in
		// operator-document form is checked like any other value below.
	}

	switch v := val.(type) {
	case map[string]any:
		if len(v) == 0 {
			// An empty operator document (e.g. a dropped malformed
			// condition) has no leaves to check and is structurally
			// fine; emptiness at the stage-body level is caught by
			// IsValidPipeline's top-level len(doc)==0 check instead.
			return true
		}
		return validDoc(v)
	case []any:
		for _, el := range v {
			switch inner := el.(type) {
			case map[string]any:
				if !validDoc(inner) {
					return false
				}
			case []any:
				if !validValue(key, inner) {
					return false
				}
			}
		}
		return true
	default:
		return true
	}
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isNonNegativeInt(v any) bool {
	switch n := v.(type) {
	case int:
		return n >= 0
	case int64:
		return n >= 0
	case float64:
		return n >= 0 && n == float64(int64(n))
	default:
		return false
	}
}

func isComparable(v any) bool {
	switch v.(type) {
	case int, int64, float64, string:
		return true
	default:
		return isDate(v)
	}
}
