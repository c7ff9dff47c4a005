// Package algebra tracks linear equalities among angle and log-length
// quantities and promotes solved relations back into geometric predicates.
//
// Variables are directions of lines (mod a straight angle) and logs of
// segment lengths. Pairwise relations (para, perp, cong, coll) are merges
// in a union-find with offsets; four-variable relations (eqangle, eqratio)
// are kept as reduced rows and re-examined after every merge. A row that
// collapses to a two-variable relation triggers a merge; a merge whose
// offset is a recognized constant (0 or a right angle for directions,
// 0 for log-lengths) is promoted to a para/perp/cong fact.
package algebra

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrContradiction is returned when the equation system is asked to equate
// two provably distinct constants. The deductive orchestrator treats this
// as "the current level produced nothing usable", not as a fatal error.
var ErrContradiction = errors.New("algebraic contradiction")

const (
	pi      = math.Pi
	halfPi  = math.Pi / 2
	epsilon = 1e-7
)

// Seg is a canonical point pair (node ids, smaller first).
type Seg [2]int

// MakeSeg canonicalizes a point pair. Zero-length pairs (a == b) are not
// representable; callers must guard.
func MakeSeg(a, b int) Seg {
	if a > b {
		a, b = b, a
	}
	return Seg{a, b}
}

// Kind of algebraic input relation.
type Kind int

const (
	RelColl Kind = iota
	RelPara
	RelPerp
	RelCong
	RelEqAngle
	RelEqRatio
)

// Input is one geometric fact routed into the store.
type Input struct {
	Kind Kind
	Args []int // node ids; length 3+ for coll, 4 for para/perp/cong, 8 for eqangle/eqratio
}

// PromotionKind discriminates the facts the store can emit.
type PromotionKind int

const (
	PromotePara PromotionKind = iota
	PromotePerp
	PromoteCong
)

// Promotion is a geometric fact entailed by the equation system: the two
// segments' relation became fully known during integration.
type Promotion struct {
	Kind PromotionKind
	A, B Seg
}

// Store holds the running equation system. One store belongs to exactly one
// fact graph and is never shared across derivability checks.
type Store struct {
	// Lines: equivalence classes of segments under collinearity. Each
	// line id doubles as a direction variable.
	lineOf  map[Seg]int
	lineRep []Seg // defining segment per line id
	linePar []int
	lineRk  []int

	dir offsetUF // direction variables, offsets mod pi

	segVar map[Seg]int
	segRep []Seg
	length offsetUF // log-length variables, exact offsets

	angleRows []row
	ratioRows []row

	promos []Promotion
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		lineOf: make(map[Seg]int),
		segVar: make(map[Seg]int),
		dir:    newOffsetUF(pi),
		length: newOffsetUF(0),
	}
}

// lineID returns (creating if needed) the line id for a segment.
func (s *Store) lineID(g Seg) int {
	if id, ok := s.lineOf[g]; ok {
		return id
	}
	id := len(s.linePar)
	s.lineOf[g] = id
	s.lineRep = append(s.lineRep, g)
	s.linePar = append(s.linePar, id)
	s.lineRk = append(s.lineRk, 0)
	s.dir.addVar()
	return id
}

func (s *Store) lineFind(x int) int {
	for s.linePar[x] != x {
		s.linePar[x] = s.linePar[s.linePar[x]]
		x = s.linePar[x]
	}
	return x
}

// lineUnion merges two collinearity classes and their direction variables.
func (s *Store) lineUnion(a, b int) error {
	ra, rb := s.lineFind(a), s.lineFind(b)
	if ra != rb {
		if s.lineRk[ra] < s.lineRk[rb] {
			ra, rb = rb, ra
		}
		s.linePar[rb] = ra
		if s.lineRk[ra] == s.lineRk[rb] {
			s.lineRk[ra]++
		}
	}
	_, err := s.mergeDirs(a, b, 0)
	return err
}

// segID returns (creating if needed) the length variable for a segment.
func (s *Store) segID(g Seg) int {
	if id, ok := s.segVar[g]; ok {
		return id
	}
	id := s.length.addVar()
	s.segVar[g] = id
	s.segRep = append(s.segRep, g)
	return id
}

// mergeDirs records dir(b) = dir(a) + delta and emits a promotion when the
// resulting relation is a recognized constant between previously unrelated
// lines. Returns whether a new merge actually happened.
func (s *Store) mergeDirs(a, b int, delta float64) (bool, error) {
	merged, err := s.dir.union(a, b, delta)
	if err != nil {
		return false, err
	}
	if merged {
		s.emitDirPromotion(a, b, delta)
	}
	return merged, nil
}

func (s *Store) emitDirPromotion(a, b int, delta float64) {
	segA := s.lineRep[a]
	segB := s.lineRep[b]
	if segA == segB {
		return
	}
	switch {
	case modEq(delta, 0, pi):
		s.promos = append(s.promos, Promotion{Kind: PromotePara, A: segA, B: segB})
	case modEq(delta, halfPi, pi):
		s.promos = append(s.promos, Promotion{Kind: PromotePerp, A: segA, B: segB})
	}
}

func (s *Store) mergeLens(a, b int, delta float64) (bool, error) {
	merged, err := s.length.union(a, b, delta)
	if err != nil {
		return false, err
	}
	if merged && math.Abs(delta) < epsilon {
		segA, segB := s.segRep[a], s.segRep[b]
		if segA != segB {
			s.promos = append(s.promos, Promotion{Kind: PromoteCong, A: segA, B: segB})
		}
	}
	return merged, nil
}

// Integrate folds a batch of geometric facts into the equation system and
// returns the predicate facts newly entailed by it. Re-integrating a known
// equality is a no-op. A contradiction aborts the batch.
func (s *Store) Integrate(batch []Input) ([]Promotion, error) {
	s.promos = s.promos[:0]
	for _, in := range batch {
		if err := s.add(in); err != nil {
			return nil, err
		}
	}
	if err := s.settle(); err != nil {
		return nil, err
	}
	out := make([]Promotion, len(s.promos))
	copy(out, s.promos)
	s.promos = s.promos[:0]
	sort.Slice(out, func(i, j int) bool { return promoLess(out[i], out[j]) })
	return out, nil
}

func promoLess(a, b Promotion) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.A != b.A {
		return a.A[0] < b.A[0] || (a.A[0] == b.A[0] && a.A[1] < b.A[1])
	}
	return b.B[0] > a.B[0] || (a.B[0] == b.B[0] && a.B[1] < b.B[1])
}

func (s *Store) add(in Input) error {
	switch in.Kind {
	case RelColl:
		if len(in.Args) < 3 {
			return fmt.Errorf("coll relation needs >= 3 points, got %d", len(in.Args))
		}
		base := MakeSeg(in.Args[0], in.Args[1])
		l0 := s.lineID(base)
		for _, p := range in.Args[2:] {
			li := s.lineID(MakeSeg(in.Args[0], p))
			if err := s.lineUnion(l0, li); err != nil {
				return err
			}
			lj := s.lineID(MakeSeg(in.Args[1], p))
			if err := s.lineUnion(l0, lj); err != nil {
				return err
			}
		}
		return nil
	case RelPara, RelPerp:
		l1 := s.lineID(MakeSeg(in.Args[0], in.Args[1]))
		l2 := s.lineID(MakeSeg(in.Args[2], in.Args[3]))
		delta := 0.0
		if in.Kind == RelPerp {
			delta = halfPi
		}
		_, err := s.mergeDirs(l1, l2, delta)
		return err
	case RelCong:
		v1 := s.segID(MakeSeg(in.Args[0], in.Args[1]))
		v2 := s.segID(MakeSeg(in.Args[2], in.Args[3]))
		_, err := s.mergeLens(v1, v2, 0)
		return err
	case RelEqAngle:
		r, err := s.angleRow(in.Args)
		if err != nil {
			return err
		}
		return s.insertRow(r, true)
	case RelEqRatio:
		r, err := s.ratioRow(in.Args)
		if err != nil {
			return err
		}
		return s.insertRow(r, false)
	}
	return fmt.Errorf("unknown relation kind %d", in.Kind)
}

// angleRow builds the linear relation for eqangle(a b, c d, e f, g h):
// dir(cd) - dir(ab) - dir(gh) + dir(ef) = 0 (mod pi).
func (s *Store) angleRow(args []int) (row, error) {
	segs, err := quadSegs(args)
	if err != nil {
		return row{}, err
	}
	r := newRow(pi)
	r.addVar(s.lineID(segs[1]), 1)
	r.addVar(s.lineID(segs[0]), -1)
	r.addVar(s.lineID(segs[3]), -1)
	r.addVar(s.lineID(segs[2]), 1)
	return r, nil
}

// ratioRow builds the linear relation for eqratio(a b, c d, e f, g h):
// len(ab) - len(cd) - len(ef) + len(gh) = 0 over log-lengths.
func (s *Store) ratioRow(args []int) (row, error) {
	segs, err := quadSegs(args)
	if err != nil {
		return row{}, err
	}
	r := newRow(0)
	r.addVar(s.segID(segs[0]), 1)
	r.addVar(s.segID(segs[1]), -1)
	r.addVar(s.segID(segs[2]), -1)
	r.addVar(s.segID(segs[3]), 1)
	return r, nil
}

func quadSegs(args []int) ([4]Seg, error) {
	var segs [4]Seg
	if len(args) != 8 {
		return segs, fmt.Errorf("quad relation needs 8 points, got %d", len(args))
	}
	for i := 0; i < 4; i++ {
		a, b := args[2*i], args[2*i+1]
		if a == b {
			return segs, fmt.Errorf("degenerate segment in relation (point %d repeated)", a)
		}
		segs[i] = MakeSeg(a, b)
	}
	return segs, nil
}

// insertRow folds a row into the appropriate system and processes the
// consequences of any merges it causes.
func (s *Store) insertRow(r row, angle bool) error {
	uf := &s.length
	rows := &s.ratioRows
	if angle {
		uf = &s.dir
		rows = &s.angleRows
	}
	reduced := reduceRow(r, *rows, uf)
	switch {
	case reduced.empty():
		if !reduced.zeroConst() {
			return fmt.Errorf("%w: residual constant %g", ErrContradiction, reduced.c)
		}
		return nil
	case reduced.pairMerge():
		va, vb, delta := reduced.mergeArgs()
		var err error
		if angle {
			_, err = s.mergeDirs(va, vb, delta)
		} else {
			_, err = s.mergeLens(va, vb, delta)
		}
		return err
	default:
		*rows = append(*rows, reduced)
		return nil
	}
}

// settle re-reduces stored rows until no row collapses further. Merges
// performed while settling can cascade into other rows.
func (s *Store) settle() error {
	for iter := 0; iter < 64; iter++ {
		changed, err := s.settleOnce(true)
		if err != nil {
			return err
		}
		c2, err := s.settleOnce(false)
		if err != nil {
			return err
		}
		if !changed && !c2 {
			return nil
		}
	}
	return nil
}

func (s *Store) settleOnce(angle bool) (bool, error) {
	uf := &s.length
	rows := s.ratioRows
	if angle {
		uf = &s.dir
		rows = s.angleRows
	}
	kept := rows[:0:0]
	changed := false
	for _, r := range rows {
		folded := foldRow(r, uf)
		reduced := reduceRow(folded, kept, uf)
		switch {
		case reduced.empty():
			if !reduced.zeroConst() {
				return false, fmt.Errorf("%w: residual constant %g", ErrContradiction, reduced.c)
			}
			changed = true
		case reduced.pairMerge():
			va, vb, delta := reduced.mergeArgs()
			var err error
			if angle {
				_, err = s.mergeDirs(va, vb, delta)
			} else {
				_, err = s.mergeLens(va, vb, delta)
			}
			if err != nil {
				return false, err
			}
			changed = true
		default:
			kept = append(kept, reduced)
		}
	}
	if angle {
		s.angleRows = kept
	} else {
		s.ratioRows = kept
	}
	return changed, nil
}
