package filter

// Normalize resolves a possibly-object field identifier to its canonical
// dotted string form (§4.1). A plain string passes through unchanged; an
// object yields the first of "value", "name", "field" that is present
// and non-empty; an object with none of them yields "". Any other value
// yields its String() result if it has one, and "" otherwise.
func Normalize(f FieldID) string {
	switch v := f.raw.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"value", "name", "field"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return stringify(v)
	case nil:
		return ""
	default:
		return stringify(v)
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if stringer, ok := v.(interface{ String() string }); ok {
		return stringer.String()
	}
	return ""
}
