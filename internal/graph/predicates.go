package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a predicate kind in the fact graph's predicate table.
type Kind string

const (
	Coll    Kind = "coll"    // coll a b c ...: points are collinear
	Para    Kind = "para"    // para a b c d: line ab parallel to line cd
	Perp    Kind = "perp"    // perp a b c d: line ab perpendicular to line cd
	Cong    Kind = "cong"    // cong a b c d: |ab| = |cd|
	Midp    Kind = "midp"    // midp m a b: m is the midpoint of ab
	Cyclic  Kind = "cyclic"  // cyclic a b c d ...: points are concyclic
	Circle  Kind = "circle"  // circle o a b c: o is the center of the circle through a b c
	EqAngle Kind = "eqangle" // eqangle a b c d e f g h: angle(ab->cd) = angle(ef->gh)
	EqRatio Kind = "eqratio" // eqratio a b c d e f g h: |ab|/|cd| = |ef|/|gh|
	SimTri  Kind = "simtri"  // simtri a b c p q r: triangles abc and pqr are similar
	ConTri  Kind = "contri"  // contri a b c p q r: triangles abc and pqr are congruent
)

// arity describes the accepted argument counts per kind. max < 0 means
// unbounded (variadic predicates over point sets).
type arity struct {
	min, max int
}

var predicateTable = map[Kind]arity{
	Coll:    {3, -1},
	Para:    {4, 4},
	Perp:    {4, 4},
	Cong:    {4, 4},
	Midp:    {3, 3},
	Cyclic:  {4, -1},
	Circle:  {4, 4},
	EqAngle: {8, 8},
	EqRatio: {8, 8},
	SimTri:  {6, 6},
	ConTri:  {6, 6},
}

// KnownKind reports whether k is in the predicate table.
func KnownKind(k Kind) bool {
	_, ok := predicateTable[k]
	return ok
}

// CheckShape validates the argument count for a kind. The returned error
// wraps ErrUnsupportedPredicate or ErrMalformedFact.
func CheckShape(k Kind, n int) error {
	a, ok := predicateTable[k]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedPredicate, k)
	}
	if n < a.min || (a.max >= 0 && n > a.max) {
		return fmt.Errorf("%w: %s expects %s arguments, got %d", ErrMalformedFact, k, arityString(a), n)
	}
	return nil
}

func arityString(a arity) string {
	if a.max < 0 {
		return fmt.Sprintf(">=%d", a.min)
	}
	if a.min == a.max {
		return fmt.Sprintf("%d", a.min)
	}
	return fmt.Sprintf("%d..%d", a.min, a.max)
}

// seg returns a canonical ordering of a point pair.
func seg(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// canonicalKey builds the storage key for a fact. Two facts with the same
// key are the same fact under the kind's argument symmetries.
func canonicalKey(k Kind, ids []int) string {
	var parts []int
	switch k {
	case Coll, Cyclic:
		parts = append(parts, ids...)
		sort.Ints(parts)
	case Midp:
		s := seg(ids[1], ids[2])
		parts = []int{ids[0], s[0], s[1]}
	case Circle:
		rest := append([]int(nil), ids[1:]...)
		sort.Ints(rest)
		parts = append([]int{ids[0]}, rest...)
	case Para, Perp, Cong:
		s1 := seg(ids[0], ids[1])
		s2 := seg(ids[2], ids[3])
		if segLess(s2, s1) {
			s1, s2 = s2, s1
		}
		parts = []int{s1[0], s1[1], s2[0], s2[1]}
	case EqAngle, EqRatio:
		parts = canonicalQuad(ids)
	case SimTri, ConTri:
		parts = canonicalTriPairs(ids)
	default:
		parts = append(parts, ids...)
	}
	var b strings.Builder
	b.WriteString(string(k))
	for _, p := range parts {
		fmt.Fprintf(&b, ":%d", p)
	}
	return b.String()
}

func segLess(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// canonicalQuad canonicalizes an 8-point angle/ratio equality. The valid
// symmetries are: swapping the two sides of the equality, and reversing
// both angles (or both ratios) simultaneously.
func canonicalQuad(ids []int) []int {
	s := [4][2]int{
		seg(ids[0], ids[1]), seg(ids[2], ids[3]),
		seg(ids[4], ids[5]), seg(ids[6], ids[7]),
	}
	cands := [4][4][2]int{
		{s[0], s[1], s[2], s[3]},
		{s[2], s[3], s[0], s[1]},
		{s[1], s[0], s[3], s[2]},
		{s[3], s[2], s[1], s[0]},
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if quadLess(c, best) {
			best = c
		}
	}
	out := make([]int, 0, 8)
	for _, sg := range best {
		out = append(out, sg[0], sg[1])
	}
	return out
}

func quadLess(a, b [4][2]int) bool {
	for i := 0; i < 4; i++ {
		if a[i] != b[i] {
			return segLess(a[i], b[i])
		}
	}
	return false
}

// canonicalTriPairs canonicalizes a triangle correspondence: the vertex
// pairs may be listed in any order and the two triangles may be swapped.
func canonicalTriPairs(ids []int) []int {
	pairs := [3][2]int{
		{ids[0], ids[3]}, {ids[1], ids[4]}, {ids[2], ids[5]},
	}
	flipped := [3][2]int{
		{ids[3], ids[0]}, {ids[4], ids[1]}, {ids[5], ids[2]},
	}
	a := sortPairs(pairs)
	b := sortPairs(flipped)
	best := a
	if triLess(b, a) {
		best = b
	}
	return []int{best[0][0], best[1][0], best[2][0], best[0][1], best[1][1], best[2][1]}
}

func sortPairs(p [3][2]int) [3][2]int {
	s := p[:]
	sort.Slice(s, func(i, j int) bool { return segLess2(s[i], s[j]) })
	return [3][2]int{s[0], s[1], s[2]}
}

func segLess2(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func triLess(a, b [3][2]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return segLess2(a[i], b[i])
		}
	}
	return false
}
