// Package construct realizes construction clauses into concrete point
// coordinates and registers the implied predicates. Realization is
// deterministic for fixed input text: the sampling source is seeded from
// the problem text, and degenerate samples are retried a bounded number
// of times with fresh seeds.
package construct

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"

	"geoverify/internal/geom"
	"geoverify/internal/graph"
	"geoverify/internal/logging"
	"geoverify/internal/problem"
	"geoverify/internal/rules"
)

// ErrConstruction is wrapped by all realization failures: unknown
// constructors, bad arity, and constructions that stay degenerate after
// all sampling attempts.
var ErrConstruction = errors.New("construction error")

// errDegenerateSample marks a failure worth retrying with a fresh sample.
var errDegenerateSample = errors.New("degenerate sample")

// maxAttempts bounds degeneracy resampling. Each attempt reseeds the
// sampler, so a fixed problem text converges to a stable realization.
const maxAttempts = 3

// Builder executes construction clauses against the definition table.
type Builder struct {
	tables *rules.Tables
}

// NewBuilder creates a Builder over the given tables.
func NewBuilder(tables *rules.Tables) *Builder {
	return &Builder{tables: tables}
}

// Build realizes every construction clause of the problem in order into a
// fresh graph. Predicate statements in the problem are not asserted here;
// the context loader owns those.
func (b *Builder) Build(p *problem.Problem) (*graph.Graph, error) {
	timer := logging.StartTimer(logging.CategoryBuild, "construct.Build")
	defer timer.Stop()

	seed := textSeed(p.String())
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		rng := rand.New(rand.NewSource(seed + int64(attempt)))
		g, err := b.buildOnce(p, rng)
		if err == nil {
			if attempt > 0 {
				logging.Build("realized after %d resamples", attempt)
			}
			return g, nil
		}
		if !errors.Is(err, errDegenerateSample) && !errors.Is(err, geom.ErrDegenerate) {
			return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
		}
		logging.BuildDebug("attempt %d degenerate: %v", attempt, err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: still degenerate after %d attempts: %v", ErrConstruction, maxAttempts, lastErr)
}

func textSeed(text string) int64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return int64(h.Sum64())
}

func (b *Builder) buildOnce(p *problem.Problem, rng *rand.Rand) (*graph.Graph, error) {
	g := graph.New()
	for _, clause := range p.Clauses {
		if err := b.realize(g, clause, rng); err != nil {
			return nil, fmt.Errorf("clause %q: %w", clause.String(), err)
		}
	}
	return g, nil
}

// realize executes one clause: computes the new point positions from the
// intersection of the parts' constraints, checks degeneracy conditions,
// registers the nodes, and asserts the implied predicates.
func (b *Builder) realize(g *graph.Graph, clause problem.Clause, rng *rand.Rand) error {
	if len(clause.Parts) == 0 {
		return fmt.Errorf("no constructors")
	}

	defs := make([]*rules.Definition, len(clause.Parts))
	for i, part := range clause.Parts {
		def, ok := b.tables.Defs[part.Name]
		if !ok {
			return fmt.Errorf("unknown constructor %q", part.Name)
		}
		if len(part.Args) != def.Arity() {
			return fmt.Errorf("constructor %q takes %d arguments, got %d", part.Name, def.Arity(), len(part.Args))
		}
		for j, pt := range clause.Points {
			if j >= len(part.Args) || part.Args[j] != pt {
				return fmt.Errorf("constructor %q must lead with the constructed points %v", part.Name, clause.Points)
			}
		}
		defs[i] = def
	}

	positions, err := b.solvePositions(g, clause, rng)
	if err != nil {
		return err
	}

	for i, part := range clause.Parts {
		if err := b.checkDegeneracy(g, defs[i], part, clause.Points, positions); err != nil {
			return err
		}
	}

	for i, name := range clause.Points {
		if _, err := g.AddNode(name, positions[i]); err != nil {
			return err
		}
	}

	for i, part := range clause.Parts {
		if err := b.assertImplied(g, defs[i], part); err != nil {
			return err
		}
	}
	return nil
}

// solvePositions computes coordinates for the clause's new points. A
// clause with one direct constructor yields them outright; otherwise
// every part contributes a one-dimensional locus for a single new point
// and the loci are intersected.
func (b *Builder) solvePositions(g *graph.Graph, clause problem.Clause, rng *rand.Rand) ([]geom.Point, error) {
	if len(clause.Parts) == 1 {
		if pts, ok, err := b.directPoints(g, clause.Parts[0], len(clause.Points), rng); err != nil {
			return nil, err
		} else if ok {
			return pts, nil
		}
	}

	if len(clause.Points) != 1 {
		return nil, fmt.Errorf("constructor %q cannot define %d points", clause.Parts[0].Name, len(clause.Points))
	}

	loci := make([]geom.Locus, 0, len(clause.Parts))
	for _, part := range clause.Parts {
		l, err := b.locusFor(g, part)
		if err != nil {
			return nil, err
		}
		loci = append(loci, l)
	}

	if len(loci) == 1 {
		return []geom.Point{loci[0].Sample(rng)}, nil
	}

	cands, err := geom.Intersect(loci[0], loci[1], rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDegenerateSample, err)
	}
	var valid []geom.Point
	for _, c := range cands {
		ok := true
		for _, l := range loci[2:] {
			if !l.Contains(c) {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: loci do not meet", errDegenerateSample)
	}
	return []geom.Point{valid[rng.Intn(len(valid))]}, nil
}

// directPoints handles constructors whose result is computed rather than
// intersected. ok is false when the constructor is locus-shaped.
func (b *Builder) directPoints(g *graph.Graph, part problem.Construction, nPoints int, rng *rand.Rand) ([]geom.Point, bool, error) {
	sample := func() geom.Point {
		return geom.Point{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1}
	}
	switch part.Name {
	case "free":
		return []geom.Point{sample()}, true, nil
	case "segment":
		a := sample()
		q := sample()
		for a.Close(q) {
			q = sample()
		}
		return []geom.Point{a, q}, true, nil
	case "triangle":
		for i := 0; i < 16; i++ {
			a, bb, c := sample(), sample(), sample()
			if !geom.Coll(a, bb, c) && a.Dist(bb) > 0.1 && bb.Dist(c) > 0.1 && c.Dist(a) > 0.1 {
				return []geom.Point{a, bb, c}, true, nil
			}
		}
		return nil, true, fmt.Errorf("%w: could not sample a proper triangle", errDegenerateSample)
	case "midpoint":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		return []geom.Point{geom.Midpoint(pos[0], pos[1])}, true, nil
	case "foot":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		return []geom.Point{geom.Project(pos[0], pos[1], pos[2])}, true, nil
	case "circumcenter":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		o, _, ok := geom.Circumcircle(pos[0], pos[1], pos[2])
		if !ok {
			return nil, true, fmt.Errorf("%w: collinear circumcenter arguments", errDegenerateSample)
		}
		return []geom.Point{o}, true, nil
	case "incenter":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		return []geom.Point{geom.Incenter(pos[0], pos[1], pos[2])}, true, nil
	case "parallelogram":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		return []geom.Point{pos[0].Add(pos[2]).Sub(pos[1])}, true, nil
	case "intersection_ll":
		pos, err := b.argPositions(g, part.Args[nPoints:])
		if err != nil {
			return nil, true, err
		}
		l1 := geom.LineLocus(pos[0], pos[1].Sub(pos[0]))
		l2 := geom.LineLocus(pos[2], pos[3].Sub(pos[2]))
		pts, ierr := geom.Intersect(l1, l2, rng)
		if ierr != nil {
			return nil, true, fmt.Errorf("%w: %v", errDegenerateSample, ierr)
		}
		return []geom.Point{pts[0]}, true, nil
	}
	return nil, false, nil
}

// locusFor maps a locus-shaped constructor to the locus it pins the new
// point to. The new point is always the constructor's first argument.
func (b *Builder) locusFor(g *graph.Graph, part problem.Construction) (geom.Locus, error) {
	pos, err := b.argPositions(g, part.Args[1:])
	if err != nil {
		return geom.Locus{}, err
	}
	switch part.Name {
	case "on_line":
		return geom.LineLocus(pos[0], pos[1].Sub(pos[0])), nil
	case "on_pline":
		return geom.LineLocus(pos[0], pos[2].Sub(pos[1])), nil
	case "on_tline":
		return geom.LineLocus(pos[0], perpDir(pos[1], pos[2])), nil
	case "on_bline":
		return geom.LineLocus(geom.Midpoint(pos[0], pos[1]), perpDir(pos[0], pos[1])), nil
	case "on_circle":
		return geom.CircleLocus(pos[0], pos[0].Dist(pos[1])), nil
	case "eqdistance":
		return geom.CircleLocus(pos[0], pos[1].Dist(pos[2])), nil
	case "angle_bisector":
		return geom.LineLocus(pos[1], geom.AngleBisector(pos[0], pos[1], pos[2])), nil
	}
	return geom.Locus{}, fmt.Errorf("constructor %q cannot be combined in an intersection clause", part.Name)
}

func perpDir(a, b geom.Point) geom.Point {
	d := b.Sub(a)
	return geom.Point{X: -d.Y, Y: d.X}
}

// argPositions resolves already-constructed argument names to positions.
func (b *Builder) argPositions(g *graph.Graph, names []string) ([]geom.Point, error) {
	nodes, err := g.Resolve(names)
	if err != nil {
		return nil, err
	}
	out := make([]geom.Point, len(nodes))
	for i, n := range nodes {
		out[i] = n.Pos
	}
	return out, nil
}

// checkDegeneracy evaluates the definition's degeneracy conditions at the
// candidate positions. New points are looked up from the clause binding,
// existing points from the graph.
func (b *Builder) checkDegeneracy(g *graph.Graph, def *rules.Definition, part problem.Construction, points []string, positions []geom.Point) error {
	lookup := func(v string) (geom.Point, error) {
		arg, err := bindVar(def, part, v)
		if err != nil {
			return geom.Point{}, err
		}
		for i, pt := range points {
			if pt == arg {
				return positions[i], nil
			}
		}
		n, err := g.Resolve([]string{arg})
		if err != nil {
			return geom.Point{}, err
		}
		return n[0].Pos, nil
	}

	for _, d := range def.Degeneracy {
		pts := make([]geom.Point, len(d.Vars))
		for i, v := range d.Vars {
			p, err := lookup(v)
			if err != nil {
				return err
			}
			pts[i] = p
		}
		switch d.Kind {
		case rules.DegDistinct:
			for i := 0; i < len(pts); i++ {
				for j := i + 1; j < len(pts); j++ {
					if pts[i].Close(pts[j]) {
						return fmt.Errorf("%w: %s requires distinct points", errDegenerateSample, part.Name)
					}
				}
			}
		case rules.DegNonColl:
			if len(pts) >= 3 && geom.Coll(pts[0], pts[1], pts[2]) {
				return fmt.Errorf("%w: %s requires non-collinear points", errDegenerateSample, part.Name)
			}
		case rules.DegNonPara:
			if len(pts) >= 4 && geom.Para(pts[0], pts[1], pts[2], pts[3]) {
				return fmt.Errorf("%w: %s requires non-parallel lines", errDegenerateSample, part.Name)
			}
		}
	}
	return nil
}

// bindVar maps a definition variable to the concrete argument name.
func bindVar(def *rules.Definition, part problem.Construction, v string) (string, error) {
	for i, p := range def.Params {
		if p == v {
			return part.Args[i], nil
		}
	}
	return "", fmt.Errorf("definition %q has no variable %q", def.Name, v)
}

// assertImplied registers the predicates the constructor guarantees.
func (b *Builder) assertImplied(g *graph.Graph, def *rules.Definition, part problem.Construction) error {
	for _, p := range def.Implied {
		names := make([]string, len(p.Vars))
		for i, v := range p.Vars {
			arg, err := bindVar(def, part, v)
			if err != nil {
				return err
			}
			names[i] = arg
		}
		nodes, err := g.Resolve(names)
		if err != nil {
			return err
		}
		if _, err := g.Assert(p.Kind, nodes, graph.Constructed()); err != nil {
			return err
		}
	}
	return nil
}
