package algebra

import (
	"errors"
	"testing"
)

func integrate(t *testing.T, s *Store, in ...Input) []Promotion {
	t.Helper()
	promos, err := s.Integrate(in)
	if err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}
	return promos
}

func TestCollTransitive(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelColl, Args: []int{0, 1, 2}})
	integrate(t, s, Input{Kind: RelColl, Args: []int{1, 2, 3}})

	if !s.Coll(0, 1, 3) {
		t.Error("Coll(0,1,3) = false after chaining collinearities")
	}
	if !s.SameLine(0, 1, 2, 3) {
		t.Error("SameLine(01, 23) = false on one line")
	}
	if s.Coll(0, 1, 4) {
		t.Error("Coll(0,1,4) = true for unconstrained point")
	}
}

func TestParaTransitive(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelPara, Args: []int{0, 1, 2, 3}})
	integrate(t, s, Input{Kind: RelPara, Args: []int{2, 3, 4, 5}})

	if !s.Para(0, 1, 4, 5) {
		t.Error("Para(01, 45) = false after chaining parallels")
	}
	if s.Perp(0, 1, 4, 5) {
		t.Error("Perp(01, 45) = true for parallel lines")
	}
}

func TestPerpComposition(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelPerp, Args: []int{0, 1, 2, 3}})
	integrate(t, s, Input{Kind: RelPerp, Args: []int{2, 3, 4, 5}})

	// Two right angles compose to a straight angle.
	if !s.Para(0, 1, 4, 5) {
		t.Error("Para(01, 45) = false after two perpendicularities")
	}
	if !s.Perp(0, 1, 2, 3) {
		t.Error("Perp(01, 23) = false for asserted relation")
	}
}

func TestCongTransitive(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelCong, Args: []int{0, 1, 2, 3}})
	integrate(t, s, Input{Kind: RelCong, Args: []int{3, 2, 4, 5}})

	if !s.Cong(0, 1, 4, 5) {
		t.Error("Cong(01, 45) = false after chaining congruences")
	}
	if s.Cong(0, 1, 6, 7) {
		t.Error("Cong(01, 67) = true for unconstrained segment")
	}
}

func TestEqAngleRowCollapse(t *testing.T) {
	s := NewStore()
	// angle(01->23) = angle(01->45) forces dir(23) = dir(45).
	promos := integrate(t, s, Input{Kind: RelEqAngle, Args: []int{0, 1, 2, 3, 0, 1, 4, 5}})

	if !s.Para(2, 3, 4, 5) {
		t.Error("Para(23, 45) = false after angle row collapse")
	}
	found := false
	for _, p := range promos {
		if p.Kind == PromotePara && p.A == MakeSeg(2, 3) && p.B == MakeSeg(4, 5) {
			found = true
		}
	}
	if !found {
		t.Errorf("Integrate() promotions = %v, want para(23, 45)", promos)
	}
}

func TestEqAnglePerpPromotion(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelPerp, Args: []int{0, 1, 2, 3}})
	// angle(01->23) = angle(45->67): the right angle transfers.
	promos := integrate(t, s, Input{Kind: RelEqAngle, Args: []int{0, 1, 2, 3, 4, 5, 6, 7}})

	if !s.Perp(4, 5, 6, 7) {
		t.Error("Perp(45, 67) = false after transferring a right angle")
	}
	found := false
	for _, p := range promos {
		if p.Kind == PromotePerp {
			found = true
		}
	}
	if !found {
		t.Errorf("Integrate() promotions = %v, want a perp promotion", promos)
	}
}

func TestEqRatioRowCollapse(t *testing.T) {
	s := NewStore()
	// |01|/|23| = |01|/|45| forces |23| = |45|.
	promos := integrate(t, s, Input{Kind: RelEqRatio, Args: []int{0, 1, 2, 3, 0, 1, 4, 5}})

	if !s.Cong(2, 3, 4, 5) {
		t.Error("Cong(23, 45) = false after ratio row collapse")
	}
	found := false
	for _, p := range promos {
		if p.Kind == PromoteCong && p.A == MakeSeg(2, 3) && p.B == MakeSeg(4, 5) {
			found = true
		}
	}
	if !found {
		t.Errorf("Integrate() promotions = %v, want cong(23, 45)", promos)
	}
}

func TestEqAngleQuery(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelEqAngle, Args: []int{0, 1, 2, 3, 4, 5, 6, 7}})

	if !s.EqAngle([]int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Error("EqAngle = false for asserted relation")
	}
	// Swapping the two sides of the equality preserves it.
	if !s.EqAngle([]int{4, 5, 6, 7, 0, 1, 2, 3}) {
		t.Error("EqAngle = false for swapped sides")
	}
	if s.EqAngle([]int{0, 1, 2, 3, 4, 5, 8, 9}) {
		t.Error("EqAngle = true for unrelated segments")
	}
}

func TestRowChaining(t *testing.T) {
	s := NewStore()
	// Two inert four-variable rows whose sum collapses pairwise.
	integrate(t, s, Input{Kind: RelEqAngle, Args: []int{0, 1, 2, 3, 4, 5, 6, 7}})
	integrate(t, s, Input{Kind: RelEqAngle, Args: []int{2, 3, 0, 1, 8, 9, 10, 11}})

	// Row 2 is the negation of row 1 with (89, 1011) in place of (45, 67):
	// together they force angle(45->67) = angle(1011->89)... verified via
	// the four-segment query.
	if !s.EqAngle([]int{4, 5, 6, 7, 10, 11, 8, 9}) {
		t.Error("EqAngle = false for relation implied by two rows")
	}
}

func TestContradiction(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelPara, Args: []int{0, 1, 2, 3}})
	_, err := s.Integrate([]Input{{Kind: RelPerp, Args: []int{0, 1, 2, 3}}})
	if !errors.Is(err, ErrContradiction) {
		t.Errorf("Integrate() error = %v, want ErrContradiction", err)
	}
}

func TestDegenerateQuadRejected(t *testing.T) {
	s := NewStore()
	_, err := s.Integrate([]Input{{Kind: RelEqAngle, Args: []int{0, 0, 2, 3, 4, 5, 6, 7}}})
	if err == nil {
		t.Error("Integrate() accepted a zero-length segment")
	}
}

func TestIntegrateIdempotent(t *testing.T) {
	s := NewStore()
	integrate(t, s, Input{Kind: RelCong, Args: []int{0, 1, 2, 3}})
	promos := integrate(t, s, Input{Kind: RelCong, Args: []int{0, 1, 2, 3}})
	if len(promos) != 0 {
		t.Errorf("re-integrating a known fact emitted %v", promos)
	}
}
