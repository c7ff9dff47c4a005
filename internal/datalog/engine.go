// Package datalog exposes a verification run's fact graph to Datalog
// queries. Facts are exported as Mangle atoms under a fixed geometry
// schema, so tooling can ask questions like "which points share a line
// with a" without knowing the graph's internal indexes.
package datalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"geoverify/internal/graph"
	"geoverify/internal/logging"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

//go:embed schema.mg
var geometrySchema string

// Config bounds the inspection engine.
type Config struct {
	// FactLimit caps the store; 0 means unlimited.
	FactLimit int
	// QueryTimeout bounds one query evaluation.
	QueryTimeout time.Duration
}

// DefaultConfig returns inspection defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit:    100000,
		QueryTimeout: 30 * time.Second,
	}
}

// Engine wraps a Mangle evaluator over the geometry schema.
type Engine struct {
	config Config

	mu             sync.RWMutex
	store          factstore.ConcurrentFactStore
	programInfo    *analysis.ProgramInfo
	queryContext   *mengine.QueryContext
	predicateIndex map[string]ast.PredicateSym
	factCount      int
}

// QueryResult holds variable bindings for one query.
type QueryResult struct {
	Bindings []map[string]interface{} `json:"bindings"`
	Duration time.Duration            `json:"duration"`
}

// Stats summarizes the exported fact store.
type Stats struct {
	TotalFacts      int            `json:"total_facts"`
	PredicateCounts map[string]int `json:"predicate_counts"`
}

// NewEngine creates an engine with the geometry schema loaded.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{
		config:         cfg,
		store:          factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore()),
		predicateIndex: make(map[string]ast.PredicateSym),
	}
	if err := e.loadSchema(geometrySchema); err != nil {
		return nil, fmt.Errorf("load geometry schema: %w", err)
	}
	return e, nil
}

func (e *Engine) loadSchema(schema string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.programInfo = programInfo
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))

	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}

	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.queryContext = &mengine.QueryContext{
		PredToRules: predToRules,
		PredToDecl:  predToDecl,
		Store:       e.store,
	}
	return nil
}

// ExportGraph clears the store and re-exports a fact graph: one point/3
// atom per node, one atom per fact, one justified/3 atom per fact's
// provenance. Derived schema rules are evaluated once at the end.
func (e *Engine) ExportGraph(g *graph.Graph) error {
	timer := logging.StartTimer(logging.CategoryDatalog, "datalog.ExportGraph")
	defer timer.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store = factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore())
	e.queryContext.Store = e.store
	e.factCount = 0

	for _, n := range g.Nodes() {
		if err := e.insertLocked("point", nameTerm(n.Name), ast.Float64(n.Pos.X), ast.Float64(n.Pos.Y)); err != nil {
			return err
		}
	}
	for _, f := range g.AllFacts() {
		args := make([]ast.BaseTerm, len(f.Args))
		for i, n := range f.Args {
			args[i] = nameTerm(n.Name)
		}
		if err := e.insertLocked(string(f.Kind), args...); err != nil {
			return err
		}
		if err := e.insertLocked("justified",
			ast.String(f.String()), ast.String(f.J.Rule), ast.Number(int64(f.J.Level))); err != nil {
			return err
		}
	}

	if _, err := mengine.EvalProgramWithStats(e.programInfo, e.store); err != nil {
		return fmt.Errorf("evaluate schema rules: %w", err)
	}
	logging.Datalog("exported %d facts", e.factCount)
	return nil
}

func (e *Engine) insertLocked(predicate string, args ...ast.BaseTerm) error {
	if e.config.FactLimit > 0 && e.factCount >= e.config.FactLimit {
		return fmt.Errorf("fact limit exceeded: %d", e.config.FactLimit)
	}
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return fmt.Errorf("predicate %s is not declared in the geometry schema", predicate)
	}
	if len(args) != sym.Arity {
		return fmt.Errorf("predicate %s expects %d args, got %d", predicate, sym.Arity, len(args))
	}
	if e.store.Add(ast.Atom{Predicate: sym, Args: args}) {
		e.factCount++
	}
	return nil
}

// Query evaluates one Mangle query atom, binding its variables. The
// query runs under the configured timeout unless the context carries a
// tighter deadline.
func (e *Engine) Query(ctx context.Context, query string) (*QueryResult, error) {
	shape, err := parseQueryShape(query)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	queryContext := e.queryContext
	store := e.store
	decl, ok := queryContext.PredToDecl[shape.atom.Predicate]
	if !ok {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s is not declared", shape.atom.Predicate.Symbol)
	}
	if len(decl.Modes()) == 0 {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s has no modes declared", shape.atom.Predicate.Symbol)
	}
	mode := decl.Modes()[0]
	hasRules := len(queryContext.PredToRules[shape.atom.Predicate]) > 0
	e.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		timeout := e.config.QueryTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resultChan := make(chan []map[string]interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		var results []map[string]interface{}
		collect := func(fact ast.Atom) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			row := make(map[string]interface{}, len(shape.variables))
			for _, binding := range shape.variables {
				if binding.Index >= len(fact.Args) {
					continue
				}
				row[binding.Name] = termToInterface(fact.Args[binding.Index])
			}
			results = append(results, row)
			return nil
		}
		var err error
		if hasRules {
			err = queryContext.EvalQuery(shape.atom, mode, unionfind.New(), collect)
		} else {
			// EvalQuery only walks rule bodies, so a predicate with no
			// rules reads its stored facts directly. Constant args in
			// the query pattern filter the enumeration.
			err = store.GetFacts(shape.atom, collect)
		}
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- results
	}()

	select {
	case results := <-resultChan:
		logging.Datalog("query %q: %d rows in %v", query, len(results), time.Since(start))
		return &QueryResult{Bindings: results, Duration: time.Since(start)}, nil
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("query timed out after %v: %w", time.Since(start), ctx.Err())
	}
}

// GetStats counts facts per predicate.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[string]int)
	for _, sym := range e.store.ListPredicates() {
		n := 0
		_ = e.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[sym.Symbol] = n
	}
	return Stats{
		TotalFacts:      e.store.EstimateFactCount(),
		PredicateCounts: counts,
	}
}

type queryVariable struct {
	Name  string
	Index int
}

type queryShape struct {
	atom      ast.Atom
	variables []queryVariable
}

func parseQueryShape(query string) (*queryShape, error) {
	clean := strings.TrimSpace(query)
	if clean == "" {
		return nil, fmt.Errorf("empty query")
	}
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSpace(strings.TrimSuffix(clean, "."))

	atom, err := parse.Atom(clean)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}

	variables := make([]queryVariable, 0, len(atom.Args))
	for idx, arg := range atom.Args {
		if variable, ok := arg.(ast.Variable); ok {
			variables = append(variables, queryVariable{Name: variable.Symbol, Index: idx})
		}
	}
	return &queryShape{atom: atom, variables: variables}, nil
}

// nameTerm turns a point name into a Mangle name constant. Point names
// are lowercase identifiers, so conversion cannot fail.
func nameTerm(s string) ast.BaseTerm {
	name, err := ast.Name("/" + s)
	if err != nil {
		return ast.String(s)
	}
	return name
}

func termToInterface(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return term.String()
	}
	switch c.Type {
	case ast.StringType, ast.NameType, ast.BytesType:
		return c.Symbol
	case ast.NumberType:
		return c.NumValue
	case ast.Float64Type:
		return math.Float64frombits(uint64(c.NumValue))
	default:
		return c.String()
	}
}
