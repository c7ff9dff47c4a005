package construct

import (
	"errors"
	"testing"

	"geoverify/internal/geom"
	"geoverify/internal/graph"
	"geoverify/internal/problem"
	"geoverify/internal/rules"
)

func buildText(t *testing.T, text string) *graph.Graph {
	t.Helper()
	p, err := problem.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	g, err := NewBuilder(rules.MustLoadDefault()).Build(p)
	if err != nil {
		t.Fatalf("Build(%q) error = %v", text, err)
	}
	return g
}

func pos(t *testing.T, g *graph.Graph, names ...string) []geom.Point {
	t.Helper()
	nodes, err := g.Resolve(names)
	if err != nil {
		t.Fatalf("Resolve(%v) error = %v", names, err)
	}
	out := make([]geom.Point, len(nodes))
	for i, n := range nodes {
		out[i] = n.Pos
	}
	return out
}

func holds(t *testing.T, g *graph.Graph, k graph.Kind, names ...string) {
	t.Helper()
	nodes, err := g.Resolve(names)
	if err != nil {
		t.Fatalf("Resolve(%v) error = %v", names, err)
	}
	ok, err := g.Holds(k, nodes)
	if err != nil {
		t.Fatalf("Holds(%s %v) error = %v", k, names, err)
	}
	if !ok {
		t.Errorf("Holds(%s %v) = false after construction", k, names)
	}
}

func TestBuildTriangle(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c")
	if len(g.Nodes()) != 3 {
		t.Fatalf("triangle produced %d nodes, want 3", len(g.Nodes()))
	}
	p := pos(t, g, "a", "b", "c")
	if geom.Coll(p[0], p[1], p[2]) {
		t.Error("triangle vertices are collinear")
	}
}

func TestBuildMidpoint(t *testing.T) {
	g := buildText(t, "a b = segment a b; m = midpoint m a b")
	holds(t, g, graph.Midp, "m", "a", "b")
	holds(t, g, graph.Cong, "m", "a", "m", "b")

	p := pos(t, g, "m", "a", "b")
	if !geom.Midp(p[0], p[1], p[2]) {
		t.Errorf("midpoint position %v is not the midpoint of %v %v", p[0], p[1], p[2])
	}
}

func TestBuildOnTline(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c; d = on_tline d b a c, on_tline d c a b")
	holds(t, g, graph.Perp, "d", "b", "a", "c")
	holds(t, g, graph.Perp, "d", "c", "a", "b")

	p := pos(t, g, "d", "b", "a", "c")
	if !geom.Perp(p[0], p[1], p[2], p[3]) {
		t.Error("constructed point does not satisfy the perpendicularity numerically")
	}
}

func TestBuildIntersectionLL(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c; m = midpoint m b c; n = midpoint n a c; x = intersection_ll x a m b n")
	holds(t, g, graph.Coll, "x", "a", "m")
	holds(t, g, graph.Coll, "x", "b", "n")

	// The medians meet at the centroid.
	p := pos(t, g, "x", "a", "b", "c")
	centroid := geom.Point{
		X: (p[1].X + p[2].X + p[3].X) / 3,
		Y: (p[1].Y + p[2].Y + p[3].Y) / 3,
	}
	if !p[0].Close(centroid) {
		t.Errorf("intersection = %v, want centroid %v", p[0], centroid)
	}
}

func TestBuildParallelogram(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c; d = parallelogram d a b c")
	holds(t, g, graph.Para, "a", "b", "c", "d")
	holds(t, g, graph.Cong, "a", "b", "c", "d")

	p := pos(t, g, "d", "a", "b", "c")
	want := p[1].Add(p[3]).Sub(p[2])
	if !p[0].Close(want) {
		t.Errorf("parallelogram vertex = %v, want %v", p[0], want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	const text = "a b c = triangle a b c; d = on_tline d b a c, on_tline d c a b"
	g1 := buildText(t, text)
	g2 := buildText(t, text)
	for i, n := range g1.Nodes() {
		m := g2.Nodes()[i]
		if n.Name != m.Name || !n.Pos.Close(m.Pos) {
			t.Fatalf("node %d differs between builds: %v vs %v", i, n, m)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown constructor", "a = pentagon a"},
		{"bad arity", "m = midpoint m a"},
		{"constructed point not leading", "a b = segment a b; d = on_line a d b"},
		{"unresolved argument", "m = midpoint m a b"},
		{"coincident lines", "a b = segment a b; c = on_line c a b; x = intersection_ll x a b a c"},
	}
	b := NewBuilder(rules.MustLoadDefault())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := problem.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if _, err := b.Build(p); !errors.Is(err, ErrConstruction) {
				t.Errorf("Build(%q) error = %v, want ErrConstruction", tt.text, err)
			}
		})
	}
}
