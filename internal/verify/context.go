package verify

import (
	"fmt"

	"geoverify/internal/graph"
	"geoverify/internal/logging"
	"geoverify/internal/problem"
)

// loadContext replays previously verified predicate statements into a
// freshly built graph as level-0 facts, making earlier proof steps
// axiomatic without re-deriving them. Construction clauses are already
// baked into the graph by the builder and are not re-asserted.
//
// A statement naming a point that is not present, or an unrecognized
// predicate, is skipped rather than fatal: on a well-formed proof this
// never happens, and a malformed context must not crash a later check.
// Angle and ratio statements route through Assert and therefore through
// the algebraic store, keeping its classes consistent with the context.
func loadContext(g *graph.Graph, stmts []problem.Statement) error {
	for _, s := range stmts {
		kind := graph.Kind(s.Name)
		if !graph.KnownKind(kind) {
			logging.Get(logging.CategoryVerify).Warn("context statement %q: unsupported predicate, skipped", s.String())
			continue
		}
		nodes, ok := g.TryResolve(s.Args)
		if !ok {
			logging.Get(logging.CategoryVerify).Warn("context statement %q: unresolved point, skipped", s.String())
			continue
		}
		held, err := g.Holds(kind, nodes)
		if err != nil {
			logging.Get(logging.CategoryVerify).Warn("context statement %q: %v, skipped", s.String(), err)
			continue
		}
		if held {
			continue
		}
		if _, err := g.Assert(kind, nodes, graph.Verified()); err != nil {
			return fmt.Errorf("replay context statement %q: %w", s.String(), err)
		}
	}
	return nil
}
