// Package pipeline assembles, validates, and formats the staged
// aggregation pipeline the compiler emits (C9/C10/C11).
package pipeline

// Stage is one step of an aggregation pipeline: an object with exactly
// one key drawn from the fixed set enumerated in StageKeys (§6.3).
type Stage map[string]any

// Pipeline is the ordered sequence of stages the compiler emits.
type Pipeline []Stage

// StageKeys is the fixed set of stage operators this wire format
// recognizes (§6.3).
var StageKeys = map[string]bool{
	"$match":     true,
	"$project":   true,
	"$group":     true,
	"$sort":      true,
	"$limit":     true,
	"$skip":      true,
	"$lookup":    true,
	"$unwind":    true,
	"$addFields": true,
}

// Match builds a $match stage; an empty doc yields a stage with an empty
// body, which IsValidPipeline rejects (assembler.go never appends a Stage
// built from an empty doc).
func Match(doc map[string]any) Stage { return Stage{"$match": doc} }

// Project builds a $project stage.
func Project(doc map[string]any) Stage { return Stage{"$project": doc} }
