package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"geoverify/internal/construct"
	"geoverify/internal/ddar"
	"geoverify/internal/graph"
	"geoverify/internal/logging"
	"geoverify/internal/problem"
	"geoverify/internal/rules"

	"github.com/google/uuid"
)

// Verifier checks proofs and solutions against one immutable table set.
// It is stateless between calls: every check builds its own graph, so a
// single Verifier may serve concurrent checks.
type Verifier struct {
	tables  *rules.Tables
	builder *construct.Builder
	params  Params
	cache   VerdictCache
}

// NewVerifier creates a verifier over the given tables.
func NewVerifier(tables *rules.Tables, params Params) *Verifier {
	return &Verifier{
		tables:  tables,
		builder: construct.NewBuilder(tables),
		params:  params,
	}
}

// WithCache attaches a verdict cache.
func (v *Verifier) WithCache(c VerdictCache) *Verifier {
	v.cache = c
	return v
}

// VerifyProof checks a step-by-step proof against a problem. It never
// returns an error: every failure mode is folded into the report.
func (v *Verifier) VerifyProof(ctx context.Context, problemText, proofText string) *Report {
	runID := uuid.NewString()[:8]
	rlog := logging.WithRunID(logging.CategoryVerify, runID)
	rlog.Info("proof check started")

	key := cacheKey("proof", problemText, proofText, v.tables.Hash)
	if v.cache != nil {
		if r, ok := v.cache.GetProof(key); ok {
			rlog.Info("cache hit: %s", r.String())
			return r
		}
	}

	r := v.verifyProof(ctx, rlog, problemText, proofText)
	rlog.Info("proof check finished: %s", r.String())
	if v.cache != nil {
		v.cache.PutProof(key, r)
	}
	return r
}

func (v *Verifier) verifyProof(ctx context.Context, rlog *logging.RunLogger, problemText, proofText string) *Report {
	prob, err := problem.Parse(problemText)
	if err != nil {
		return &Report{ErrorMessage: fmt.Sprintf("invalid problem: %v", err)}
	}

	steps := problem.SplitProofSteps(proofText)
	if len(steps) == 0 {
		return &Report{ErrorMessage: "no proof steps provided"}
	}

	// The context starts as the problem's own premises and accumulates
	// each verified clause in normalized form.
	var contextClauses []string
	for _, c := range prob.Clauses {
		contextClauses = append(contextClauses, c.String())
	}
	for _, s := range prob.Statements {
		contextClauses = append(contextClauses, s.String())
	}

	for i, step := range steps {
		var stepErr error
		if problem.IsConstruction(step) {
			contextClauses, stepErr = v.checkConstructionStep(contextClauses, step)
		} else {
			contextClauses, stepErr = v.checkDerivationStep(ctx, contextClauses, step)
		}
		if stepErr != nil {
			rlog.Warn("step %d failed: %v", i+1, stepErr)
			return &Report{
				ErrorMessage: fmt.Sprintf("step %d (%q): %v", i+1, step, stepErr),
				StepsPassed:  i,
			}
		}
		rlog.Debug("step %d passed", i+1)
	}

	if prob.Goal == nil {
		return &Report{
			IsValid:      true,
			ErrorMessage: "no global goal specified",
			StepsPassed:  len(steps),
			GoalReached:  true,
		}
	}

	reached := v.checkGoal(ctx, contextClauses, *prob.Goal, v.params.GoalMaxLevel, v.params.GoalTimeout)
	if !reached {
		rlog.Warn("steps valid but goal %q not reached", prob.Goal.String())
		return &Report{
			ErrorMessage: fmt.Sprintf("all steps valid but goal %q not reached", prob.Goal.String()),
			StepsPassed:  len(steps),
		}
	}
	return &Report{
		IsValid:     true,
		StepsPassed: len(steps),
		GoalReached: true,
	}
}

// checkConstructionStep validates a construction clause by rebuilding the
// context graph with the clause appended. A clause already present in the
// context is a no-op pass.
func (v *Verifier) checkConstructionStep(contextClauses []string, step string) ([]string, error) {
	prob, err := problem.Parse(step)
	if err != nil {
		return contextClauses, err
	}
	if len(prob.Clauses) != 1 || len(prob.Statements) != 0 || prob.Goal != nil {
		return contextClauses, fmt.Errorf("%w: expected a single construction clause", problem.ErrParse)
	}
	normalized := prob.Clauses[0].String()
	for _, c := range contextClauses {
		if c == normalized {
			return contextClauses, nil
		}
	}

	extended := append(append([]string(nil), contextClauses...), normalized)
	if _, _, err := v.buildContext(extended); err != nil {
		return contextClauses, err
	}
	return extended, nil
}

// checkDerivationStep checks every comma-separated sub-predicate of a
// derivation clause in sequence against the current context.
func (v *Verifier) checkDerivationStep(ctx context.Context, contextClauses []string, step string) ([]string, error) {
	subs, err := problem.SubStatements(step)
	if err != nil {
		return contextClauses, err
	}

	extended := append([]string(nil), contextClauses...)
	for _, sub := range subs {
		ok, err := v.derivableFromContext(ctx, extended, sub, v.params.StepMaxLevel, v.params.StepTimeout)
		if err != nil {
			return contextClauses, err
		}
		if !ok {
			return contextClauses, fmt.Errorf("logic gap: cannot derive %q", sub.String())
		}
		extended = append(extended, sub.String())
	}
	return extended, nil
}

// checkGoal runs the final deepening search; any error fails closed.
func (v *Verifier) checkGoal(ctx context.Context, contextClauses []string, goal problem.Statement, maxLevel int, timeout time.Duration) bool {
	ok, err := v.derivableFromContext(ctx, contextClauses, goal, maxLevel, timeout)
	if err != nil {
		logging.Get(logging.CategoryVerify).Warn("goal check failed closed: %v", err)
		return false
	}
	return ok
}

// derivableFromContext builds a fresh graph from the context and runs the
// deepening orchestrator for one target statement.
func (v *Verifier) derivableFromContext(ctx context.Context, contextClauses []string, target problem.Statement, maxLevel int, timeout time.Duration) (bool, error) {
	g, _, err := v.buildContext(contextClauses)
	if err != nil {
		return false, err
	}

	kind := graph.Kind(target.Name)
	if !graph.KnownKind(kind) {
		return false, fmt.Errorf("%w: %q", graph.ErrUnsupportedPredicate, target.Name)
	}
	nodes, err := g.Resolve(target.Args)
	if err != nil {
		return false, err
	}

	return ddar.Derivable(ctx, g, v.tables, kind, nodes, ddar.Options{
		MaxLevel:     maxLevel,
		PassTimeout:  timeout,
		NumericCheck: v.params.NumericCheck,
		MaxParallel:  v.params.MaxParallel,
	})
}

// buildContext realizes the context's constructions and replays its
// verified statements.
func (v *Verifier) buildContext(contextClauses []string) (*graph.Graph, *problem.Problem, error) {
	prob, err := problem.Parse(strings.Join(contextClauses, "; "))
	if err != nil {
		return nil, nil, err
	}
	g, err := v.builder.Build(prob)
	if err != nil {
		return nil, nil, err
	}
	if err := loadContext(g, prob.Statements); err != nil {
		return nil, nil, err
	}
	return g, prob, nil
}

// VerifySolution decides whether a problem is solvable once the given
// auxiliary construction (possibly empty) is spliced into its premises.
// Errors fail closed to false.
func (v *Verifier) VerifySolution(ctx context.Context, problemText, solutionText string) bool {
	runID := uuid.NewString()[:8]
	rlog := logging.WithRunID(logging.CategoryVerify, runID)
	rlog.Info("solution check started")

	key := cacheKey("solution", problemText, solutionText, v.tables.Hash)
	if v.cache != nil {
		if verdict, ok := v.cache.GetSolution(key); ok {
			rlog.Info("cache hit: %v", verdict)
			return verdict
		}
	}

	verdict := v.verifySolution(ctx, rlog, problemText, solutionText)
	rlog.Info("solution check finished: %v", verdict)
	if v.cache != nil {
		v.cache.PutSolution(key, verdict)
	}
	return verdict
}

func (v *Verifier) verifySolution(ctx context.Context, rlog *logging.RunLogger, problemText, solutionText string) bool {
	text := problem.InjectSolution(problemText, solutionText)
	prob, err := problem.Parse(text)
	if err != nil {
		rlog.Warn("invalid problem: %v", err)
		return false
	}
	if prob.Goal == nil {
		// A solution is judged by whether it makes the goal derivable.
		// With no goal there is nothing the construction could solve.
		rlog.Warn("problem has no goal")
		return false
	}

	var clauses []string
	for _, c := range prob.Clauses {
		clauses = append(clauses, c.String())
	}
	for _, s := range prob.Statements {
		clauses = append(clauses, s.String())
	}
	return v.checkGoal(ctx, clauses, *prob.Goal, v.params.GoalMaxLevel, v.params.GoalTimeout)
}
