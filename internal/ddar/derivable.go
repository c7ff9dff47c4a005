// Package ddar is the deepening orchestrator: it alternates rule engine
// passes and algebraic integration, level by level, until the goal holds,
// the search saturates, or the level budget runs out.
package ddar

import (
	"context"
	"errors"
	"time"

	"geoverify/internal/algebra"
	"geoverify/internal/dd"
	"geoverify/internal/graph"
	"geoverify/internal/logging"
	"geoverify/internal/rules"
)

// Options bounds one derivability check.
type Options struct {
	// MaxLevel caps iterative deepening. Per-step checks use a small cap
	// for fast failure; the final goal check uses a much larger one.
	MaxLevel int
	// PassTimeout bounds each rule engine pass. Zero means no deadline.
	PassTimeout time.Duration
	// NumericCheck filters rule conclusions against the realization.
	NumericCheck bool
	// MaxParallel caps concurrent rule matchers per pass.
	MaxParallel int
}

// Derivable reports whether the goal predicate follows from the graph
// within the level budget. The graph accumulates every fact derived along
// the way; levels increase monotonically and facts are never retracted.
//
// An algebraic contradiction inside a level marks that level as having
// produced nothing usable and the search continues at the next level; a
// contradiction usually signals a degenerate numeric sample rather than a
// true inconsistency, since matches are numerically filtered.
func Derivable(ctx context.Context, g *graph.Graph, tables *rules.Tables, goal graph.Kind, args []*graph.Node, opts Options) (bool, error) {
	timer := logging.StartTimer(logging.CategoryDD, "ddar.Derivable")
	defer timer.Stop()

	maxCost := tables.MaxCost()
	for level := 1; level <= opts.MaxLevel; level++ {
		ok, err := g.Holds(goal, args)
		if err != nil {
			return false, err
		}
		if ok {
			logging.DD("goal holds entering level %d", level)
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		res, err := dd.Pass(ctx, g, tables, level, dd.Options{
			NumericCheck: opts.NumericCheck,
			Timeout:      opts.PassTimeout,
			MaxParallel:  opts.MaxParallel,
		})
		if err != nil {
			return false, err
		}

		added, aerr := assertAll(g, level, res)
		if aerr != nil {
			if errors.Is(aerr, algebra.ErrContradiction) {
				logging.Get(logging.CategoryAR).Warn("level %d hit a contradiction, skipping level: %v", level, aerr)
				continue
			}
			return false, aerr
		}
		logging.DDDebug("level %d staged %d, added %d facts", level, res.Total(), added)

		ok, err = g.Holds(goal, args)
		if err != nil {
			return false, err
		}
		if ok {
			logging.DD("goal derived at level %d", level)
			return true, nil
		}

		// Saturation: a pass that stages nothing with every rule enabled
		// and no deadline expiry cannot make further progress.
		if res.Empty() && !res.TimedOut && level >= maxCost {
			logging.DD("saturated at level %d", level)
			break
		}
	}
	return g.Holds(goal, args)
}

// Saturate runs goal-less deepening, growing the graph until it
// saturates or the level budget runs out. It returns the number of facts
// added. Used by inspection tooling to materialize the deductive closure.
func Saturate(ctx context.Context, g *graph.Graph, tables *rules.Tables, opts Options) (int, error) {
	timer := logging.StartTimer(logging.CategoryDD, "ddar.Saturate")
	defer timer.Stop()

	maxCost := tables.MaxCost()
	total := 0
	for level := 1; level <= opts.MaxLevel; level++ {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		res, err := dd.Pass(ctx, g, tables, level, dd.Options{
			NumericCheck: opts.NumericCheck,
			Timeout:      opts.PassTimeout,
			MaxParallel:  opts.MaxParallel,
		})
		if err != nil {
			return total, err
		}
		added, aerr := assertAll(g, level, res)
		total += added
		if aerr != nil {
			if errors.Is(aerr, algebra.ErrContradiction) {
				logging.Get(logging.CategoryAR).Warn("level %d hit a contradiction, skipping level: %v", level, aerr)
				continue
			}
			return total, aerr
		}
		if res.Empty() && !res.TimedOut && level >= maxCost {
			logging.DD("saturated at level %d", level)
			break
		}
	}
	return total, nil
}

// assertAll feeds staged conclusions into the graph: plain facts first,
// then angle and ratio facts, which route through the algebraic store.
// Conclusions that already hold are skipped so saturation detection sees
// genuine progress only.
func assertAll(g *graph.Graph, level int, res dd.Result) (int, error) {
	added := 0
	for _, group := range [][]dd.Candidate{res.Plain, res.Angle, res.Ratio} {
		for _, c := range group {
			ok, err := g.Holds(c.Kind, c.Args)
			if err != nil {
				return added, err
			}
			if ok {
				continue
			}
			facts, err := g.Assert(c.Kind, c.Args, graph.Derived(level, c.Rule, nil))
			if err != nil {
				return added, err
			}
			added += len(facts)
		}
	}
	return added, nil
}
