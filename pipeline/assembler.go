package pipeline

import (
	"context"
	"regexp"
	"sort"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/scoutsky/filterc/analyzer"
	"github.com/scoutsky/filterc/compiler"
	"github.com/scoutsky/filterc/filter"
	"github.com/scoutsky/filterc/variables"
)

// Options configures the final shape of an assembled pipeline.
type Options struct {
	// ExcludeObjectID omits "objectId" from every projection stage.
	ExcludeObjectID bool
}

// Assembler is C9: it wires together the variable dependency analyzer,
// the usage analyzer, the partitioner, and the predicate/block compiler
// to emit the canonical stage ordering described in §4.8.
type Assembler struct {
	Schema      filter.Schema
	Vars        variables.Catalog
	Deps        *variables.Analyzer
	Compiler    *compiler.Compiler
	Usage       *analyzer.Usage
	Partitioner *analyzer.Partitioner
	Log         logrus.FieldLogger
	Tracer      opentracing.Tracer
}

// NewAssembler wires a full Assembler from its inputs. log and tracer
// may be nil (logrus.StandardLogger() and opentracing.NoopTracer{}
// respectively).
func NewAssembler(
	schema filter.Schema,
	vars variables.Catalog,
	converter variables.MathConverter,
	partitionCfg filter.PartitionConfig,
	log logrus.FieldLogger,
	tracer opentracing.Tracer,
) *Assembler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	deps := variables.NewAnalyzer(vars, converter, log)
	comp := compiler.NewCompiler(schema, vars, deps, log)
	return &Assembler{
		Schema:      schema,
		Vars:        vars,
		Deps:        deps,
		Compiler:    comp,
		Usage:       analyzer.NewUsage(vars, deps, comp),
		Partitioner: analyzer.NewPartitioner(vars, partitionCfg),
		Log:         log,
		Tracer:      tracer,
	}
}

// Assemble runs the full C9 ordering over tree, returning the emitted
// stages. A tree containing no conditions at all yields an empty
// Pipeline (P6: IsValidPipeline then correctly reports false).
func (a *Assembler) Assemble(ctx context.Context, tree filter.Node, opts Options) Pipeline {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, a.Tracer, "filterc.Assemble")
	defer span.Finish()

	if tree == nil || !hasAnyCondition(tree) {
		return Pipeline{}
	}

	topLevel := analyzer.TopLevelBlocks(tree)
	simple, complex := a.Partitioner.Partition(topLevel)
	namedFalse := collectNamedFalseBlocks(tree)
	used := a.Usage.CollectUsedFields(tree)

	var p Pipeline

	// 1. Early match.
	if earlyDoc := a.compileGroupDocs(simple, compiler.Match()); len(earlyDoc) > 0 {
		p = append(p, Match(earlyDoc))
	}

	// 2. Initial projection: base fields, list variables, and named-false
	// booleans. Appended lazily (below) only once something downstream
	// actually needs it as a staging point.
	listVarsUsed := sortedKeys(used.ListVariables)
	baseFieldsUsed := sortedKeys(used.BaseFields)
	initialDoc := map[string]any{}
	if !opts.ExcludeObjectID {
		initialDoc["objectId"] = 1
	}
	for _, f := range baseFieldsUsed {
		initialDoc[f] = 1
	}
	for _, lv := range listVarsUsed {
		lc := a.Vars.List[lv].ListCondition
		initialDoc[lv] = a.Compiler.CompileListVariable(lc)
	}
	for _, blk := range namedFalse {
		name := SanitizeBlockName(blk.CustomBlockName)
		initialDoc[name] = compiler.CompileNamedBlockBody(a.Compiler, blk, compiler.Projection())
	}
	// 3+4. Dependency layers and their interleaved match stages.
	groups := a.buildGroups(complex)
	hasGroupVars := false
	for _, g := range groups {
		if len(g.vars) > 0 {
			hasGroupVars = true
			break
		}
	}
	// The initial projection only earns its place in the pipeline when
	// something downstream actually needs it as a staging point: a list
	// variable or named-false boolean to materialize, or a dependency
	// layer that needs base fields carried forward. A tree with neither
	// (e.g. an inline reduction condition referencing no variables) goes
	// straight from the early match to the final projection.
	needInitial := len(listVarsUsed) > 0 || len(namedFalse) > 0 || hasGroupVars

	projectedVars := map[string]bool{}
	projectedListVars := map[string]bool{}
	for _, lv := range listVarsUsed {
		projectedListVars[lv] = true
	}

	initialAppended := false
	appendInitialIfNeeded := func() {
		if needInitial && !initialAppended {
			p = append(p, Project(cloneDoc(initialDoc)))
			initialAppended = true
		}
	}

	for gi, group := range groups {
		sublayers := a.subLayers(group.vars)
		for _, layer := range sublayers {
			appendInitialIfNeeded()
			doc := a.passthroughDoc(opts, baseFieldsUsed, projectedListVars, projectedVars)
			for _, v := range layer {
				doc[v] = a.Deps.ConvertMath(v)
			}
			p = append(p, Project(doc))
			for _, v := range layer {
				projectedVars[v] = true
			}
		}
		appendInitialIfNeeded()

		matchDoc := a.compileGroupDocs(group.blocks, compiler.Match())
		if gi == 0 {
			for _, blk := range namedFalse {
				matchDoc = mergeDocs(matchDoc, map[string]any{SanitizeBlockName(blk.CustomBlockName): false})
			}
		}
		if len(matchDoc) > 0 {
			p = append(p, Match(matchDoc))
		}
	}
	// A tree with named-false blocks or list variables but zero complex
	// groups needing a match (shouldn't normally happen, but defensive)
	// still gets its initial projection flushed.
	appendInitialIfNeeded()

	// 5. Final projection — always emitted.
	finalDoc := map[string]any{}
	if !opts.ExcludeObjectID {
		finalDoc["objectId"] = 1
	}
	for _, f := range baseFieldsUsed {
		finalDoc[f] = 1
	}
	for v := range used.Variables {
		finalDoc[v] = 1
	}
	for _, lv := range listVarsUsed {
		finalDoc[lv] = 1
	}
	p = append(p, Project(finalDoc))

	return p
}

// CompileWithProjection runs Assemble and then appends the §4.8
// annotation stage built from projection field descriptors.
func (a *Assembler) CompileWithProjection(ctx context.Context, tree filter.Node, opts Options, fields []ProjectionField) Pipeline {
	p := a.Assemble(ctx, tree, opts)
	return AppendAnnotations(p, fields, opts)
}

// group is one dependency-layer group: the complex blocks assigned to
// it, and the set of arithmetic variables it is responsible for
// projecting.
type group struct {
	blocks []filter.Node
	vars   map[string]bool
}

// buildGroups implements §4.8 step 3's greedy grouping: a new group
// begins whenever a block needs a variable outside the current group's
// accumulated variable set and outside every prior group's projected
// set.
func (a *Assembler) buildGroups(complex []filter.Node) []group {
	var groups []group
	projectedSoFar := map[string]bool{}
	var cur group

	flush := func() {
		if cur.blocks == nil {
			return
		}
		groups = append(groups, cur)
		for v := range cur.vars {
			projectedSoFar[v] = true
		}
		cur = group{}
	}

	for _, block := range complex {
		req := a.Usage.CollectUsedFields(block).Variables
		missing := map[string]bool{}
		for v := range req {
			if !projectedSoFar[v] {
				missing[v] = true
			}
		}

		if cur.blocks == nil {
			cur = group{blocks: []filter.Node{block}, vars: missing}
			continue
		}
		if subsetOf(missing, cur.vars) {
			cur.blocks = append(cur.blocks, block)
			continue
		}
		flush()
		cur = group{blocks: []filter.Node{block}, vars: missing}
	}
	flush()
	return groups
}

// subLayers toposorts vars and splits them into sub-layers where
// sub-layer i contains every variable all of whose in-group dependencies
// already live in an earlier sub-layer (§4.8 step 3).
func (a *Assembler) subLayers(vars map[string]bool) [][]string {
	if len(vars) == 0 {
		return nil
	}
	list := sortedKeys(vars)
	sorted := a.Deps.Toposort(list)

	var layers [][]string
	placed := map[string]bool{}
	remaining := sorted
	for len(remaining) > 0 {
		var layer []string
		for _, v := range remaining {
			ready := true
			for _, d := range a.Deps.Deps(v).Variables {
				if vars[d] && !placed[d] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, v)
			}
		}
		if len(layer) == 0 {
			// Defensive: a cyclic residue slipped through toposort;
			// flush everything remaining as one layer rather than loop
			// forever.
			layer = append(layer, remaining...)
		}
		for _, v := range layer {
			placed[v] = true
		}
		layers = append(layers, layer)

		layerSet := map[string]bool{}
		for _, v := range layer {
			layerSet[v] = true
		}
		var next []string
		for _, v := range remaining {
			if !layerSet[v] {
				next = append(next, v)
			}
		}
		remaining = next
	}
	return layers
}

// passthroughDoc builds a projection stage's "carry everything already
// projected forward" portion: objectId, used base fields, already
// projected list variables, already projected arithmetic variables.
func (a *Assembler) passthroughDoc(opts Options, baseFields []string, listVars, arithVars map[string]bool) map[string]any {
	doc := map[string]any{}
	if !opts.ExcludeObjectID {
		doc["objectId"] = 1
	}
	for _, f := range baseFields {
		doc[f] = 1
	}
	for _, lv := range sortedKeys(listVars) {
		doc[lv] = 1
	}
	for _, v := range sortedKeys(arithVars) {
		doc[v] = 1
	}
	return doc
}

// compileGroupDocs compiles every block in blocks under ctx and merges
// their top-level keys, matching the reference Object.assign semantics
// described in §4.7/§4.8 ("top-level keys co-exist implicitly under
// AND"): on key collision the later block wins.
func (a *Assembler) compileGroupDocs(blocks []filter.Node, ctx compiler.Context) map[string]any {
	doc := map[string]any{}
	for _, b := range blocks {
		frag := compiler.CompileBlock(a.Compiler, b, ctx)
		doc = mergeDocs(doc, frag)
	}
	return doc
}

func mergeDocs(a, b map[string]any) map[string]any {
	if len(a) == 0 {
		return cloneDoc(b)
	}
	out := cloneDoc(a)
	for k, v := range b {
		out[k] = v
	}
	return out
}

func cloneDoc(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func subsetOf(sub, super map[string]bool) bool {
	for v := range sub {
		if !super[v] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// hasAnyCondition reports whether tree contains at least one Condition
// leaf anywhere (P6).
func hasAnyCondition(node filter.Node) bool {
	switch n := node.(type) {
	case *filter.Condition:
		return true
	case *filter.Block:
		for _, c := range n.Children {
			if hasAnyCondition(c) {
				return true
			}
		}
	}
	return false
}

// collectNamedFalseBlocks walks the whole tree (including inside
// reduction bodies) for every Block tagged isTrue=false (§4.9).
func collectNamedFalseBlocks(node filter.Node) []*filter.Block {
	var out []*filter.Block
	var walk func(filter.Node)
	walk = func(n filter.Node) {
		switch t := n.(type) {
		case *filter.Block:
			if t.IsNamedFalseBlock() {
				out = append(out, t)
			}
			for _, c := range t.Children {
				walk(c)
			}
		case *filter.Condition:
			if block, ok := t.Value.Block(); ok {
				walk(block)
			}
		}
	}
	walk(node)
	return out
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeBlockName replaces every non-alphanumeric/underscore character
// in name with an underscore (§3/§4.9).
func SanitizeBlockName(name string) string {
	return nonAlnum.ReplaceAllString(name, "_")
}
