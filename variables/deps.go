package variables

import (
	"strings"
	"sync"

	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/scoutsky/filterc/filter"
)

// MathConverter is the external collaborator (§6.1) that translates the
// mathematical notation used by arithmetic variables into a database
// expression, and enumerates the identifiers an expression references.
// ExtractDependencies MUST overapproximate, never underapproximate
// (under-reporting breaks invariant 3).
type MathConverter interface {
	ConvertMath(expr string) (filter.DBExpr, error)
	ExtractDependencies(expr string) ([]string, error)
}

// Deps is the immediate (non-transitive) dependency set of a variable,
// split by what kind of identifier each reference turned out to be.
type Deps struct {
	BaseFields    []string
	Variables     []string
	ListVariables []string
}

// Analyzer builds and queries the arithmetic-variable dependency graph.
// It is stateless aside from two memoization caches, one for ConvertMath
// results and one for Deps classifications, per the Design Notes caching
// remark; callers may safely share one Analyzer across concurrent
// compiles of different trees against the same catalog, since both
// caches are guarded by mu and never mutated destructively.
type Analyzer struct {
	catalog   Catalog
	converter MathConverter
	log       logrus.FieldLogger

	mu      sync.Mutex
	cache   map[uint64]convertResult
	deps    map[string]Deps
}

type convertResult struct {
	expr filter.DBExpr
	err  error
}

// NewAnalyzer builds an Analyzer over catalog, using converter to resolve
// identifiers. log may be nil, in which case logrus.StandardLogger() is
// used.
func NewAnalyzer(catalog Catalog, converter MathConverter, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{
		catalog:   catalog,
		converter: converter,
		log:       log,
		cache:     make(map[uint64]convertResult),
		deps:      make(map[string]Deps),
	}
}

// splitDefinition splits a "<name>=<mathExpr>" variable definition. The
// name half is discarded here (callers already know it from the map
// key); only the expression half matters.
func splitDefinition(def string) string {
	if idx := strings.IndexByte(def, '='); idx >= 0 {
		return def[idx+1:]
	}
	return def
}

// Deps returns the immediate dependency classification for the named
// arithmetic variable. Unknown variables yield a zero Deps.
func (a *Analyzer) Deps(name string) Deps {
	a.mu.Lock()
	cached, ok := a.deps[name]
	a.mu.Unlock()
	if ok {
		return cached
	}
	arith, ok := a.catalog.Arithmetic[name]
	if !ok {
		return Deps{}
	}
	expr := splitDefinition(arith.Variable)
	idents, err := a.converter.ExtractDependencies(expr)
	if err != nil {
		a.log.WithField("variable", name).WithError(err).Warn("dependency extraction failed, variable treated as having no dependencies")
		a.mu.Lock()
		a.deps[name] = Deps{}
		a.mu.Unlock()
		return Deps{}
	}

	var d Deps
	for _, id := range idents {
		switch {
		case a.catalog.IsArithmetic(id):
			d.Variables = append(d.Variables, id)
		case a.catalog.IsList(id):
			d.ListVariables = append(d.ListVariables, id)
		default:
			d.BaseFields = append(d.BaseFields, id)
		}
	}
	a.mu.Lock()
	a.deps[name] = d
	a.mu.Unlock()
	return d
}

// ConvertMath resolves the named arithmetic variable's expression to a
// database expression, caching the result by a hash of (name,
// expression text) so a second call for the same variable definition is
// free, and a redefinition of the variable (different expression text)
// correctly invalidates the cached entry. A conversion failure (§7.2) is
// logged once and the caller gets the bare field reference as a
// fallback.
func (a *Analyzer) ConvertMath(name string) filter.DBExpr {
	arith, ok := a.catalog.Arithmetic[name]
	if !ok {
		return "$" + name
	}
	expr := splitDefinition(arith.Variable)

	key, hashErr := hashstructure.Hash(struct{ Name, Expr string }{name, expr}, nil)
	if hashErr == nil {
		a.mu.Lock()
		if cached, ok := a.cache[key]; ok {
			a.mu.Unlock()
			if cached.err != nil {
				return fallbackExpr(name)
			}
			return cached.expr
		}
		a.mu.Unlock()
	}

	dbExpr, err := a.converter.ConvertMath(expr)
	if err != nil {
		wrapped := errors.Wrapf(err, "converting arithmetic variable %q (expr %q)", name, expr)
		a.log.WithField("variable", name).Warn(wrapped.Error())
		if hashErr == nil {
			a.mu.Lock()
			a.cache[key] = convertResult{err: wrapped}
			a.mu.Unlock()
		}
		return fallbackExpr(name)
	}
	if hashErr == nil {
		a.mu.Lock()
		a.cache[key] = convertResult{expr: dbExpr}
		a.mu.Unlock()
	}
	return dbExpr
}

// fallbackExpr is the §7.2 fallback: "the variable is effectively
// treated as its own name."
func fallbackExpr(name string) filter.DBExpr {
	return "$" + name
}

// Transitive returns the full set of base fields, arithmetic variables,
// and list variables reachable from name by following its dependency
// edges. A cycle is detected, logged once via ErrCyclicVariable, and the
// edge that would re-enter an in-progress node is simply not followed
// (§7.3) — the rest of the graph still resolves.
func (a *Analyzer) Transitive(name string) Deps {
	visited := map[string]bool{}
	visiting := map[string]bool{}
	var out Deps
	seenBase := map[string]bool{}
	seenVar := map[string]bool{}
	seenList := map[string]bool{}

	var walk func(n string)
	walk = func(n string) {
		if visited[n] {
			return
		}
		if visiting[n] {
			a.log.WithField("variable", n).Warn(filter.ErrCyclicVariable.New(n).Error())
			return
		}
		visiting[n] = true
		d := a.Deps(n)
		for _, f := range d.BaseFields {
			if !seenBase[f] {
				seenBase[f] = true
				out.BaseFields = append(out.BaseFields, f)
			}
		}
		for _, lv := range d.ListVariables {
			if !seenList[lv] {
				seenList[lv] = true
				out.ListVariables = append(out.ListVariables, lv)
			}
		}
		for _, v := range d.Variables {
			if !seenVar[v] && !visiting[v] {
				seenVar[v] = true
				out.Variables = append(out.Variables, v)
			}
			walk(v)
		}
		visiting[n] = false
		visited[n] = true
	}
	walk(name)
	return out
}

// Toposort returns subset ordered so that every variable appears after
// all of its transitive variable dependencies — a valid emission order
// for sequential projection stages (invariant 3). Cyclic edges are
// skipped exactly as Transitive skips them, so Toposort always
// terminates even over a malformed catalog.
func (a *Analyzer) Toposort(subset []string) []string {
	inSubset := make(map[string]bool, len(subset))
	for _, n := range subset {
		inSubset[n] = true
	}

	visited := map[string]bool{}
	visiting := map[string]bool{}
	var order []string

	var visit func(n string)
	visit = func(n string) {
		if visited[n] {
			return
		}
		if visiting[n] {
			a.log.WithField("variable", n).Warn(filter.ErrCyclicVariable.New(n).Error())
			return
		}
		visiting[n] = true
		for _, dep := range a.Deps(n).Variables {
			if inSubset[dep] {
				visit(dep)
			}
		}
		visiting[n] = false
		visited[n] = true
		order = append(order, n)
	}
	for _, n := range subset {
		visit(n)
	}
	return order
}
