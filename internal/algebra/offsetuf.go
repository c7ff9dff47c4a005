package algebra

import (
	"fmt"
	"math"
)

// offsetUF is a union-find where each element carries an offset relative to
// its parent: value(x) = value(parent(x)) + off(x). With modulus > 0 all
// offset comparisons are taken mod that modulus (directions mod pi);
// modulus 0 means exact arithmetic (log-lengths).
type offsetUF struct {
	parent  []int
	rank    []int
	off     []float64
	modulus float64
}

func newOffsetUF(modulus float64) offsetUF {
	return offsetUF{modulus: modulus}
}

func (u *offsetUF) addVar() int {
	id := len(u.parent)
	u.parent = append(u.parent, id)
	u.rank = append(u.rank, 0)
	u.off = append(u.off, 0)
	return id
}

// find returns the root of x and the offset of x relative to that root,
// compressing paths as it goes.
func (u *offsetUF) find(x int) (int, float64) {
	if u.parent[x] == x {
		return x, 0
	}
	root, above := u.find(u.parent[x])
	u.parent[x] = root
	u.off[x] += above
	return root, u.off[x]
}

// union records value(b) = value(a) + delta. Returns whether the classes
// were previously separate. Re-asserting a known relation is a no-op;
// asserting a conflicting one is a contradiction.
func (u *offsetUF) union(a, b int, delta float64) (bool, error) {
	ra, oa := u.find(a)
	rb, ob := u.find(b)
	if ra == rb {
		if !u.offsetEq(ob-oa, delta) {
			return false, fmt.Errorf("%w: class offset %g vs asserted %g", ErrContradiction, ob-oa, delta)
		}
		return false, nil
	}
	// value(rb) = value(ra) + oa + delta - ob
	shift := oa + delta - ob
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
		shift = -shift
	}
	u.parent[rb] = ra
	u.off[rb] = shift
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return true, nil
}

// diff returns value(b) - value(a) when a and b share a class.
func (u *offsetUF) diff(a, b int) (float64, bool) {
	ra, oa := u.find(a)
	rb, ob := u.find(b)
	if ra != rb {
		return 0, false
	}
	return ob - oa, true
}

func (u *offsetUF) offsetEq(a, b float64) bool {
	return modEq(a, b, u.modulus)
}

// modEq compares two values modulo m (exact when m == 0).
func modEq(a, b, m float64) bool {
	d := a - b
	if m > 0 {
		d = math.Mod(d, m)
		if d < 0 {
			d += m
		}
		return d < epsilon || m-d < epsilon
	}
	return math.Abs(d) < epsilon
}
