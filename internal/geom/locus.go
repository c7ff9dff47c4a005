package geom

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrDegenerate is returned when loci fail to intersect or intersect in a
// degenerate way (parallel lines, concentric circles, tangency treated as
// unstable). Callers resample and retry.
var ErrDegenerate = errors.New("degenerate locus intersection")

// Locus is a one-dimensional constraint on a point: a line, a circle, or a
// single fixed point. A construction clause intersects the loci of its
// constructors to realize the new point.
type Locus struct {
	Kind   LocusKind
	P      Point   // point on line / circle center / the fixed point
	Dir    Point   // line direction (unit not required)
	Radius float64 // circle radius
}

// LocusKind discriminates the locus variants.
type LocusKind int

const (
	LocusPoint LocusKind = iota
	LocusLine
	LocusCircle
)

// LineLocus builds a line locus through p with direction d.
func LineLocus(p, d Point) Locus { return Locus{Kind: LocusLine, P: p, Dir: d} }

// CircleLocus builds a circle locus centered at o with radius r.
func CircleLocus(o Point, r float64) Locus { return Locus{Kind: LocusCircle, P: o, Radius: r} }

// PointLocus builds a fixed-point locus.
func PointLocus(p Point) Locus { return Locus{Kind: LocusPoint, P: p} }

// Sample picks a point on the locus using rng. Fixed points ignore rng.
func (l Locus) Sample(rng *rand.Rand) Point {
	switch l.Kind {
	case LocusPoint:
		return l.P
	case LocusLine:
		t := rng.Float64()*2 - 1
		n := math.Hypot(l.Dir.X, l.Dir.Y)
		if n < Eps {
			return l.P
		}
		return l.P.Add(l.Dir.Scale(t / n))
	case LocusCircle:
		a := rng.Float64() * 2 * math.Pi
		return l.P.Add(Point{math.Cos(a) * l.Radius, math.Sin(a) * l.Radius})
	}
	return l.P
}

// Contains reports whether p lies on the locus within tolerance.
func (l Locus) Contains(p Point) bool {
	switch l.Kind {
	case LocusPoint:
		return l.P.Close(p)
	case LocusLine:
		return math.Abs(cross(l.Dir, p.Sub(l.P))) < 1e-6*math.Hypot(l.Dir.X, l.Dir.Y)
	case LocusCircle:
		return math.Abs(l.P.Dist(p)-l.Radius) < 1e-6
	}
	return false
}

// Intersect returns the intersection points of two loci. rng breaks the
// two-solution ambiguity of circle intersections deterministically given a
// seeded source.
func Intersect(a, b Locus, rng *rand.Rand) ([]Point, error) {
	// Normalize so the simpler kind comes first.
	if a.Kind > b.Kind {
		a, b = b, a
	}
	switch {
	case a.Kind == LocusPoint:
		if !b.Contains(a.P) {
			return nil, fmt.Errorf("%w: fixed point off locus", ErrDegenerate)
		}
		return []Point{a.P}, nil
	case a.Kind == LocusLine && b.Kind == LocusLine:
		return lineLine(a, b)
	case a.Kind == LocusLine && b.Kind == LocusCircle:
		return lineCircle(a, b)
	default:
		return circleCircle(a, b)
	}
}

func lineLine(a, b Locus) ([]Point, error) {
	den := cross(a.Dir, b.Dir)
	if math.Abs(den) < Eps {
		return nil, fmt.Errorf("%w: parallel lines", ErrDegenerate)
	}
	t := cross(b.P.Sub(a.P), b.Dir) / den
	return []Point{a.P.Add(a.Dir.Scale(t))}, nil
}

func lineCircle(l, c Locus) ([]Point, error) {
	n := math.Hypot(l.Dir.X, l.Dir.Y)
	if n < Eps {
		return nil, fmt.Errorf("%w: zero-length direction", ErrDegenerate)
	}
	d := l.Dir.Scale(1 / n)
	f := l.P.Sub(c.P)
	// Solve |f + t d|^2 = r^2 for t with |d| = 1.
	bq := dot(f, d)
	cq := dot(f, f) - c.Radius*c.Radius
	disc := bq*bq - cq
	if disc < Eps {
		return nil, fmt.Errorf("%w: line misses or is tangent to circle", ErrDegenerate)
	}
	s := math.Sqrt(disc)
	return []Point{
		l.P.Add(d.Scale(-bq + s)),
		l.P.Add(d.Scale(-bq - s)),
	}, nil
}

func circleCircle(a, b Locus) ([]Point, error) {
	d := a.P.Dist(b.P)
	if d < Eps {
		return nil, fmt.Errorf("%w: concentric circles", ErrDegenerate)
	}
	if d > a.Radius+b.Radius-Eps || d < math.Abs(a.Radius-b.Radius)+Eps {
		return nil, fmt.Errorf("%w: circles do not intersect transversally", ErrDegenerate)
	}
	x := (d*d + a.Radius*a.Radius - b.Radius*b.Radius) / (2 * d)
	h2 := a.Radius*a.Radius - x*x
	if h2 < Eps {
		return nil, fmt.Errorf("%w: tangent circles", ErrDegenerate)
	}
	h := math.Sqrt(h2)
	u := b.P.Sub(a.P).Scale(1 / d)
	v := rot90(u)
	base := a.P.Add(u.Scale(x))
	return []Point{
		base.Add(v.Scale(h)),
		base.Add(v.Scale(-h)),
	}, nil
}
