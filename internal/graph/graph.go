// Package graph implements the deductive knowledge base: an arena of named
// point nodes plus a monotonically growing set of predicate facts, each
// tagged with its justification. Angle- and ratio-valued facts are routed
// through the algebraic store; the fact set keeps a provenance record for
// them but truth queries for those kinds always consult the algebra.
package graph

import (
	"fmt"
	"sort"
	"sync"

	"geoverify/internal/algebra"
	"geoverify/internal/geom"
)

// Graph is one deductive closure workspace. A graph is built fresh for
// every derivability check and discarded afterwards; it is never shared
// across checks. Holds and Assert are safe for concurrent use: queries
// intern algebra variables for unseen segments, so even reads mutate.
type Graph struct {
	mu     sync.Mutex
	nodes  []*Node
	byName map[string]*Node

	facts   map[string]*Fact
	byKind  map[Kind][]*Fact
	circles []map[int]bool // concyclic point sets, merged on 3 shared points

	alg *algebra.Store

	// applied tracks rule matches already consumed by the rule engine so
	// a match is not re-staged at later levels.
	applied map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		byName:  make(map[string]*Node),
		facts:   make(map[string]*Fact),
		byKind:  make(map[Kind][]*Fact),
		alg:     algebra.NewStore(),
		applied: make(map[string]bool),
	}
}

// AddNode registers a new named point with its concrete position.
func (g *Graph) AddNode(name string, pos geom.Point) (*Node, error) {
	if _, dup := g.byName[name]; dup {
		return nil, fmt.Errorf("duplicate point name %q", name)
	}
	n := &Node{ID: len(g.nodes), Name: name, Pos: pos}
	g.nodes = append(g.nodes, n)
	g.byName[name] = n
	return n, nil
}

// Nodes returns all nodes in insertion order. The slice is shared; callers
// must not mutate it.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Resolve looks up nodes by name, failing on the first unknown name.
func (g *Graph) Resolve(names []string) ([]*Node, error) {
	out := make([]*Node, len(names))
	for i, name := range names {
		n, ok := g.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
		}
		out[i] = n
	}
	return out, nil
}

// TryResolve is Resolve without the error path: ok is false when any name
// is not (yet) present. Used by the context loader, where a clause naming
// a not-yet-defined point is tolerated rather than fatal.
func (g *Graph) TryResolve(names []string) ([]*Node, bool) {
	out, err := g.Resolve(names)
	return out, err == nil
}

// Holds is a pure query: does the predicate follow from the current facts,
// including algebraic-class equality for angle/ratio kinds?
func (g *Graph) Holds(k Kind, args []*Node) (bool, error) {
	if err := CheckShape(k, len(args)); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := nodeIDs(args)
	switch k {
	case Coll:
		for i := 2; i < len(ids); i++ {
			if !g.alg.Coll(ids[0], ids[1], ids[i]) {
				return false, nil
			}
		}
		return true, nil
	case Para:
		return g.alg.Para(ids[0], ids[1], ids[2], ids[3]), nil
	case Perp:
		return g.alg.Perp(ids[0], ids[1], ids[2], ids[3]), nil
	case Cong:
		return g.alg.Cong(ids[0], ids[1], ids[2], ids[3]), nil
	case EqAngle:
		return g.alg.EqAngle(ids), nil
	case EqRatio:
		return g.alg.EqRatio(ids), nil
	case Cyclic:
		return g.concyclic(ids), nil
	case Circle:
		// Center knowledge reduces to congruent radii.
		o, rest := ids[0], ids[1:]
		for i := 1; i < len(rest); i++ {
			if !g.alg.Cong(o, rest[0], o, rest[i]) {
				return false, nil
			}
		}
		return true, nil
	default:
		_, ok := g.facts[canonicalKey(k, ids)]
		return ok, nil
	}
}

// Assert adds a fact if not already implied and returns the facts newly
// recorded (the fact itself plus any promotions the algebraic store emits).
// Asserting an already-known fact is a no-op, not an error.
func (g *Graph) Assert(k Kind, args []*Node, j Justification) ([]*Fact, error) {
	if err := CheckShape(k, len(args)); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := nodeIDs(args)
	key := canonicalKey(k, ids)
	var added []*Fact
	if _, seen := g.facts[key]; !seen {
		f := &Fact{Kind: k, Args: args, J: j}
		g.facts[key] = f
		g.byKind[k] = append(g.byKind[k], f)
		added = append(added, f)
	}

	promos, err := g.route(k, ids)
	if err != nil {
		return added, err
	}
	for _, p := range promos {
		pf, err := g.promote(p, j)
		if err != nil {
			return added, err
		}
		added = append(added, pf...)
	}
	return added, nil
}

// route forwards a fact into the algebraic store. Midpoint and circle
// facts decompose into their collinearity/congruence content.
func (g *Graph) route(k Kind, ids []int) ([]algebra.Promotion, error) {
	switch k {
	case Coll:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelColl, Args: ids}})
	case Para:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelPara, Args: ids}})
	case Perp:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelPerp, Args: ids}})
	case Cong:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelCong, Args: ids}})
	case EqAngle:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelEqAngle, Args: ids}})
	case EqRatio:
		return g.alg.Integrate([]algebra.Input{{Kind: algebra.RelEqRatio, Args: ids}})
	case Midp:
		m, a, b := ids[0], ids[1], ids[2]
		return g.alg.Integrate([]algebra.Input{
			{Kind: algebra.RelColl, Args: []int{m, a, b}},
			{Kind: algebra.RelCong, Args: []int{m, a, m, b}},
		})
	case Circle:
		o, a, b, c := ids[0], ids[1], ids[2], ids[3]
		g.mergeCircle([]int{a, b, c})
		return g.alg.Integrate([]algebra.Input{
			{Kind: algebra.RelCong, Args: []int{o, a, o, b}},
			{Kind: algebra.RelCong, Args: []int{o, a, o, c}},
		})
	case Cyclic:
		g.mergeCircle(ids)
		return nil, nil
	default:
		return nil, nil
	}
}

// promote records a fact emitted by the algebraic store. Promotions carry
// the asserting fact's level with the algebra rule tag.
func (g *Graph) promote(p algebra.Promotion, j Justification) ([]*Fact, error) {
	kind := Para
	switch p.Kind {
	case PromotionPerp:
		kind = Perp
	case PromotionCong:
		kind = Cong
	}
	args := []*Node{
		g.nodes[p.A[0]], g.nodes[p.A[1]],
		g.nodes[p.B[0]], g.nodes[p.B[1]],
	}
	ids := nodeIDs(args)
	key := canonicalKey(kind, ids)
	if _, seen := g.facts[key]; seen {
		return nil, nil
	}
	f := &Fact{Kind: kind, Args: args, J: Derived(j.Level, RuleAlgebra, nil)}
	g.facts[key] = f
	g.byKind[kind] = append(g.byKind[kind], f)
	return []*Fact{f}, nil
}

// Aliases so callers need not import algebra for the promotion kinds.
const (
	PromotionPara = algebra.PromotePara
	PromotionPerp = algebra.PromotePerp
	PromotionCong = algebra.PromoteCong
)

// FactsOfKind returns the recorded facts of one kind, in assertion order.
func (g *Graph) FactsOfKind(k Kind) []*Fact { return g.byKind[k] }

// AllFacts returns every recorded fact sorted by canonical key, for export
// and inspection.
func (g *Graph) AllFacts() []*Fact {
	keys := make([]string, 0, len(g.facts))
	for k := range g.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Fact, len(keys))
	for i, k := range keys {
		out[i] = g.facts[k]
	}
	return out
}

// MarkApplied records a rule-engine match key; returns false if it was
// already marked.
func (g *Graph) MarkApplied(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.applied[key] {
		return false
	}
	g.applied[key] = true
	return true
}

// concyclic reports whether some known circle contains all given points.
func (g *Graph) concyclic(ids []int) bool {
	for _, c := range g.circles {
		all := true
		for _, id := range ids {
			if !c[id] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// mergeCircle registers a concyclic point set, merging with any existing
// set sharing at least three points (three points determine the circle).
func (g *Graph) mergeCircle(ids []int) {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	merged := true
	for merged {
		merged = false
		for i, c := range g.circles {
			if sharedPoints(c, set) >= 3 {
				for id := range c {
					set[id] = true
				}
				g.circles = append(g.circles[:i], g.circles[i+1:]...)
				merged = true
				break
			}
		}
	}
	g.circles = append(g.circles, set)
}

func sharedPoints(a, b map[int]bool) int {
	n := 0
	for id := range a {
		if b[id] {
			n++
		}
	}
	return n
}

func nodeIDs(args []*Node) []int {
	ids := make([]int, len(args))
	for i, n := range args {
		ids[i] = n.ID
	}
	return ids
}
