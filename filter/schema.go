package filter

// FieldType names a base field's declared type. Only Boolean changes
// compiler behavior (the equality-emission rule, §4.3/P7); the rest are
// informational.
type FieldType string

const (
	Boolean FieldType = "boolean"
	Number  FieldType = "number"
	String  FieldType = "string"
	Array   FieldType = "array"
	Object  FieldType = "object"
)

// Schema maps a canonical dotted field path to its declared type.
type Schema map[string]FieldType

// GetFieldType is the §6.1 collaborator signature
// (`getFieldType(fieldName, schema, variables, …) → type|null`). It
// checks base fields first, falling back to nil (ok=false) for anything
// the schema does not describe — arithmetic/list variables included,
// since their type is derived rather than declared.
func GetFieldType(field string, schema Schema) (FieldType, bool) {
	t, ok := schema[field]
	return t, ok
}

// IsBoolean reports whether schema declares field as a boolean. A nil or
// absent schema entry is treated as "not boolean" — the safe default,
// since the boolean-equality rule only activates on a positive match.
func IsBoolean(field string, schema Schema) bool {
	t, ok := GetFieldType(field, schema)
	return ok && t == Boolean
}
