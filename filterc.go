// Package filterc compiles a caller-authored filter/annotation tree
// into a staged MongoDB-style aggregation pipeline.
package filterc

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/pipeline"
	"github.com/scoutsky/filterc/variables"
)

// Options re-exports pipeline.Options so callers never need to import
// the pipeline package directly.
type Options = pipeline.Options

// ProjectionField and its Type constants re-export the annotation-stage
// descriptors CompileWithProjection consumes.
type ProjectionField = pipeline.ProjectionField
type ProjectionFieldType = pipeline.ProjectionFieldType

const (
	ProjectionInclude = pipeline.ProjectionInclude
	ProjectionExclude = pipeline.ProjectionExclude
	ProjectionRound   = pipeline.ProjectionRound
)

// Pipeline is the compiled output: an ordered sequence of aggregation
// stages. Stage is its element type.
type Pipeline = pipeline.Pipeline
type Stage = pipeline.Stage

// Compiler is the entry point bundling a schema, a declared variable
// catalog, and the external math-notation converter into a reusable
// compile surface. Build one per (schema, catalog) pair and share it
// across compiles, since the assembler memoizes arithmetic-variable
// conversions internally.
type Compiler struct {
	assembler *pipeline.Assembler
}

// New builds a Compiler. log may be nil (defaults to
// logrus.StandardLogger()); tracer may be nil (defaults to a no-op
// tracer so callers that don't care about tracing pay nothing for it).
func New(
	schema filter.Schema,
	catalog variables.Catalog,
	converter variables.MathConverter,
	partitionCfg filter.PartitionConfig,
	log logrus.FieldLogger,
	tracer opentracing.Tracer,
) *Compiler {
	return &Compiler{
		assembler: pipeline.NewAssembler(schema, catalog, converter, partitionCfg, log, tracer),
	}
}

// Compile translates tree into a pipeline (§4.8, stages 1-5). ctx
// carries an optional opentracing span for the compile.
func (c *Compiler) Compile(ctx context.Context, tree filter.Node, opts Options) Pipeline {
	return c.assembler.Assemble(ctx, tree, opts)
}

// CompileWithProjection runs Compile and appends the optional
// annotation projection stage built from fields (§4.8 step 6).
func (c *Compiler) CompileWithProjection(ctx context.Context, tree filter.Node, opts Options, fields []ProjectionField) Pipeline {
	return c.assembler.CompileWithProjection(ctx, tree, opts, fields)
}

// FormatPipeline renders p in the canonical textual form (C11).
func FormatPipeline(p Pipeline) string {
	return pipeline.FormatPipeline(p)
}

// IsValidPipeline structurally validates p (C10/§4.10).
func IsValidPipeline(p Pipeline) bool {
	return pipeline.IsValidPipeline(p)
}
