// Package geom provides the concrete 2-D realization layer: points, loci
// and numeric predicate checks. Symbolic deduction never trusts a numeric
// coincidence on its own; these checks are used to reject spurious rule
// matches at degenerate configurations and to validate constructions.
package geom

import "math"

// Eps is the tolerance used for all numeric coincidence checks.
// Coordinates are sampled in roughly unit scale, so a fixed absolute
// tolerance is adequate.
const Eps = 1e-8

// Point is a concrete coordinate assignment for a named geometric object.
type Point struct {
	X, Y float64
}

// Sub returns p - q as a vector.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Close reports whether p and q coincide within tolerance.
func (p Point) Close(q Point) bool {
	return p.Dist(q) < Eps*10
}

// Midpoint returns the midpoint of p and q.
func Midpoint(p, q Point) Point {
	return Point{(p.X + q.X) / 2, (p.Y + q.Y) / 2}
}

// rot90 rotates a vector by 90 degrees counterclockwise.
func rot90(v Point) Point { return Point{-v.Y, v.X} }

// cross returns the z-component of the cross product of vectors u and v.
func cross(u, v Point) float64 { return u.X*v.Y - u.Y*v.X }

// dot returns the dot product of vectors u and v.
func dot(u, v Point) float64 { return u.X*v.X + u.Y*v.Y }

// Direction returns the direction of the line through a and b, normalized
// to [0, pi). Directed angles between lines are taken modulo a straight
// angle throughout.
func Direction(a, b Point) float64 {
	d := math.Atan2(b.Y-a.Y, b.X-a.X)
	return NormalizeAngle(d)
}

// NormalizeAngle maps an angle to [0, pi).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	if math.Pi-a < Eps {
		a = 0
	}
	return a
}

// AngleEq reports whether two angles are equal modulo pi.
func AngleEq(a, b float64) bool {
	d := math.Abs(NormalizeAngle(a - b))
	return d < 1e-6 || math.Pi-d < 1e-6
}

// Coll reports whether a, b, c are collinear.
func Coll(a, b, c Point) bool {
	return math.Abs(cross(b.Sub(a), c.Sub(a))) < Eps*a.Dist(b)+Eps
}

// Para reports whether line ab is parallel to line cd.
func Para(a, b, c, d Point) bool {
	return AngleEq(Direction(a, b), Direction(c, d))
}

// Perp reports whether line ab is perpendicular to line cd.
func Perp(a, b, c, d Point) bool {
	return AngleEq(Direction(a, b)+math.Pi/2, Direction(c, d))
}

// Cong reports whether segment ab and segment cd have equal length.
func Cong(a, b, c, d Point) bool {
	return math.Abs(a.Dist(b)-c.Dist(d)) < Eps*10
}

// Midp reports whether m is the midpoint of segment ab.
func Midp(m, a, b Point) bool {
	return m.Close(Midpoint(a, b))
}

// EqAngle reports whether the directed angle from line ab to line cd
// equals the directed angle from line ef to line gh (mod pi).
func EqAngle(a, b, c, d, e, f, g, h Point) bool {
	return AngleEq(Direction(c, d)-Direction(a, b), Direction(g, h)-Direction(e, f))
}

// EqRatio reports whether ab/cd = ef/gh for segment lengths.
func EqRatio(a, b, c, d, e, f, g, h Point) bool {
	l1, l2 := a.Dist(b), c.Dist(d)
	l3, l4 := e.Dist(f), g.Dist(h)
	if l2 < Eps || l4 < Eps {
		return false
	}
	return math.Abs(l1/l2-l3/l4) < 1e-6
}

// Cyclic reports whether the given points lie on one common circle.
// Needs at least four points; the circle is fit to the first three.
func Cyclic(pts ...Point) bool {
	if len(pts) < 4 {
		return false
	}
	o, r, ok := Circumcircle(pts[0], pts[1], pts[2])
	if !ok {
		return false
	}
	for _, p := range pts[3:] {
		if math.Abs(o.Dist(p)-r) > 1e-6 {
			return false
		}
	}
	return true
}

// SimTri reports whether triangles abc and pqr are similar (ratios of
// corresponding sides agree).
func SimTri(a, b, c, p, q, r Point) bool {
	ab, bc, ca := a.Dist(b), b.Dist(c), c.Dist(a)
	pq, qr, rp := p.Dist(q), q.Dist(r), r.Dist(p)
	if pq < Eps || qr < Eps || rp < Eps {
		return false
	}
	k := ab / pq
	return math.Abs(bc/qr-k) < 1e-6 && math.Abs(ca/rp-k) < 1e-6
}

// ConTri reports whether triangles abc and pqr are congruent.
func ConTri(a, b, c, p, q, r Point) bool {
	return Cong(a, b, p, q) && Cong(b, c, q, r) && Cong(c, a, r, p)
}

// Circumcircle returns the center and radius of the circle through a, b, c.
// ok is false when the points are (nearly) collinear.
func Circumcircle(a, b, c Point) (Point, float64, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < Eps {
		return Point{}, 0, false
	}
	a2 := a.X*a.X + a.Y*a.Y
	b2 := b.X*b.X + b.Y*b.Y
	c2 := c.X*c.X + c.Y*c.Y
	ux := (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d
	uy := (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d
	o := Point{ux, uy}
	return o, o.Dist(a), true
}

// Project returns the orthogonal projection of p onto line ab.
func Project(p, a, b Point) Point {
	v := b.Sub(a)
	t := dot(p.Sub(a), v) / dot(v, v)
	return a.Add(v.Scale(t))
}

// AngleBisector returns a unit vector along the internal bisector of the
// angle at b in the wedge a-b-c.
func AngleBisector(a, b, c Point) Point {
	u := a.Sub(b)
	v := c.Sub(b)
	lu, lv := math.Hypot(u.X, u.Y), math.Hypot(v.X, v.Y)
	if lu < Eps || lv < Eps {
		return Point{1, 0}
	}
	w := u.Scale(1 / lu).Add(v.Scale(1 / lv))
	if math.Hypot(w.X, w.Y) < Eps {
		// Straight angle: bisector is perpendicular to ba.
		return rot90(u.Scale(1 / lu))
	}
	return w
}

// Incenter returns the incenter of triangle abc.
func Incenter(a, b, c Point) Point {
	la := b.Dist(c)
	lb := c.Dist(a)
	lc := a.Dist(b)
	s := la + lb + lc
	return Point{
		X: (la*a.X + lb*b.X + lc*c.X) / s,
		Y: (la*a.Y + lb*b.Y + lc*c.Y) / s,
	}
}
