package pipeline

// ProjectionFieldType names what an annotation-stage descriptor does to
// its field (§4.8 step 6).
type ProjectionFieldType string

const (
	ProjectionInclude ProjectionFieldType = "include"
	ProjectionExclude ProjectionFieldType = "exclude"
	ProjectionRound   ProjectionFieldType = "round"
)

// ProjectionField is one entry of the caller-supplied annotation list
// CompileWithProjection appends after the final projection. Decimals
// only applies to ProjectionRound; a value <= 0 defaults to 4.
type ProjectionField struct {
	Field    string
	Type     ProjectionFieldType
	Decimals int
}

// AppendAnnotations builds and appends the optional annotation $project
// stage from fields (§4.8 step 6): objectId, then an "annotations"
// sub-document built from the descriptors (include -> "$field", exclude
// -> 0, round -> {$round:[$field, decimals]}, default 4). Skipped
// entirely when fields is empty, since only objectId would remain.
func AppendAnnotations(p Pipeline, fields []ProjectionField, opts Options) Pipeline {
	if len(fields) == 0 {
		return p
	}
	annotations := map[string]any{}
	for _, f := range fields {
		switch f.Type {
		case ProjectionInclude:
			annotations[f.Field] = "$" + f.Field
		case ProjectionRound:
			decimals := f.Decimals
			if decimals <= 0 {
				decimals = 4
			}
			annotations[f.Field] = map[string]any{"$round": []any{"$" + f.Field, decimals}}
		case ProjectionExclude:
			annotations[f.Field] = 0
		}
	}

	doc := map[string]any{"annotations": annotations}
	if !opts.ExcludeObjectID {
		doc["objectId"] = 1
	}
	return append(p, Project(doc))
}
