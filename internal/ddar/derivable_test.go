package ddar

import (
	"context"
	"testing"
	"time"

	"geoverify/internal/construct"
	"geoverify/internal/graph"
	"geoverify/internal/problem"
	"geoverify/internal/rules"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func buildText(t *testing.T, text string) *graph.Graph {
	t.Helper()
	p, err := problem.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	g, err := construct.NewBuilder(rules.MustLoadDefault()).Build(p)
	if err != nil {
		t.Fatalf("Build(%q) error = %v", text, err)
	}
	return g
}

func goalArgs(t *testing.T, g *graph.Graph, names ...string) []*graph.Node {
	t.Helper()
	nodes, err := g.Resolve(names)
	if err != nil {
		t.Fatalf("Resolve(%v) error = %v", names, err)
	}
	return nodes
}

func testOpts() Options {
	return Options{
		MaxLevel:     3,
		PassTimeout:  30 * time.Second,
		NumericCheck: true,
	}
}

func TestDerivableMidline(t *testing.T) {
	// The segment joining the midpoints of two triangle sides is parallel
	// to the third side. midline_para needs level 2.
	g := buildText(t, "a b c = triangle a b c; m = midpoint m a b; n = midpoint n a c")

	ok, err := Derivable(context.Background(), g, rules.MustLoadDefault(),
		graph.Para, goalArgs(t, g, "m", "n", "b", "c"), testOpts())
	if err != nil {
		t.Fatalf("Derivable() error = %v", err)
	}
	if !ok {
		t.Error("Derivable(para m n b c) = false for the midline")
	}
}

func TestDerivableSaturatesOnFalseGoal(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c")

	ok, err := Derivable(context.Background(), g, rules.MustLoadDefault(),
		graph.Cong, goalArgs(t, g, "a", "b", "a", "c"), Options{
			MaxLevel:     12,
			NumericCheck: true,
		})
	if err != nil {
		t.Fatalf("Derivable() error = %v", err)
	}
	if ok {
		t.Error("Derivable(cong a b a c) = true for a scalene triangle")
	}
}

func TestDerivableGoalAlreadyHolds(t *testing.T) {
	g := buildText(t, "a b = segment a b; m = midpoint m a b")

	ok, err := Derivable(context.Background(), g, rules.MustLoadDefault(),
		graph.Cong, goalArgs(t, g, "m", "a", "m", "b"), testOpts())
	if err != nil {
		t.Fatalf("Derivable() error = %v", err)
	}
	if !ok {
		t.Error("Derivable() = false for a construction-implied goal")
	}
}

func TestDerivableContextCancelled(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Derivable(ctx, g, rules.MustLoadDefault(),
		graph.Cong, goalArgs(t, g, "a", "b", "a", "c"), testOpts())
	if err == nil {
		t.Error("Derivable() error = nil with a cancelled context")
	}
}

func TestSaturate(t *testing.T) {
	g := buildText(t, "a b c = triangle a b c; m = midpoint m a b; n = midpoint n a c")

	added, err := Saturate(context.Background(), g, rules.MustLoadDefault(), testOpts())
	if err != nil {
		t.Fatalf("Saturate() error = %v", err)
	}
	if added == 0 {
		t.Fatal("Saturate() added no facts to a midline configuration")
	}

	ok, err := g.Holds(graph.Para, goalArgs(t, g, "m", "n", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("midline parallel missing after saturation")
	}
}
