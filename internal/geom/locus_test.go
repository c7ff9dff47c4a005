package geom

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func testRNG() *rand.Rand { return rand.New(rand.NewSource(1)) }

func TestLocusSampleContains(t *testing.T) {
	rng := testRNG()
	tests := []struct {
		name  string
		locus Locus
	}{
		{"point", PointLocus(Point{2, 3})},
		{"line", LineLocus(Point{0, 1}, Point{3, 1})},
		{"circle", CircleLocus(Point{-1, 2}, 1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 8; i++ {
				p := tt.locus.Sample(rng)
				if !tt.locus.Contains(p) {
					t.Fatalf("Contains(Sample()) = false for %v", p)
				}
			}
		})
	}
}

func TestIntersectLineLine(t *testing.T) {
	a := LineLocus(Point{0, 0}, Point{1, 0})
	b := LineLocus(Point{2, -1}, Point{0, 1})
	pts, err := Intersect(a, b, testRNG())
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if len(pts) != 1 || !pts[0].Close(Point{2, 0}) {
		t.Errorf("Intersect() = %v, want [(2,0)]", pts)
	}
}

func TestIntersectParallelLines(t *testing.T) {
	a := LineLocus(Point{0, 0}, Point{1, 1})
	b := LineLocus(Point{0, 5}, Point{2, 2})
	if _, err := Intersect(a, b, testRNG()); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Intersect() error = %v, want ErrDegenerate", err)
	}
}

func TestIntersectLineCircle(t *testing.T) {
	l := LineLocus(Point{-5, 0}, Point{1, 0})
	c := CircleLocus(Point{0, 0}, 2)
	pts, err := Intersect(l, c, testRNG())
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("Intersect() returned %d points, want 2", len(pts))
	}
	for _, p := range pts {
		if math.Abs(p.Dist(Point{0, 0})-2) > 1e-9 || math.Abs(p.Y) > 1e-9 {
			t.Errorf("intersection %v not on both loci", p)
		}
	}

	miss := LineLocus(Point{0, 5}, Point{1, 0})
	if _, err := Intersect(miss, c, testRNG()); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Intersect() error = %v for missing line, want ErrDegenerate", err)
	}
}

func TestIntersectCircleCircle(t *testing.T) {
	a := CircleLocus(Point{0, 0}, 2)
	b := CircleLocus(Point{2, 0}, 2)
	pts, err := Intersect(a, b, testRNG())
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("Intersect() returned %d points, want 2", len(pts))
	}
	for _, p := range pts {
		if !a.Contains(p) || !b.Contains(p) {
			t.Errorf("intersection %v not on both circles", p)
		}
	}

	concentric := CircleLocus(Point{0, 0}, 1)
	if _, err := Intersect(a, concentric, testRNG()); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Intersect() error = %v for concentric circles, want ErrDegenerate", err)
	}
	far := CircleLocus(Point{10, 0}, 1)
	if _, err := Intersect(a, far, testRNG()); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Intersect() error = %v for disjoint circles, want ErrDegenerate", err)
	}
}

func TestIntersectWithFixedPoint(t *testing.T) {
	p := PointLocus(Point{1, 0})
	c := CircleLocus(Point{0, 0}, 1)
	pts, err := Intersect(c, p, testRNG())
	if err != nil {
		t.Fatalf("Intersect() error = %v", err)
	}
	if len(pts) != 1 || !pts[0].Close(Point{1, 0}) {
		t.Errorf("Intersect() = %v, want the fixed point", pts)
	}

	off := PointLocus(Point{3, 3})
	if _, err := Intersect(c, off, testRNG()); !errors.Is(err, ErrDegenerate) {
		t.Errorf("Intersect() error = %v for off-locus point, want ErrDegenerate", err)
	}
}
