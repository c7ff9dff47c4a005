package rules

import (
	"errors"
	"strings"
	"testing"
)

const testDefs = `free a

seg a b

midpoint m a b
  midp m a b
  ! distinct a b
`

const testRules = `r1: para a b c d, coll c d e => para a b c e
r2: cong o a o b, cong o b o c => cyclic a b c o @2
`

func TestLoad(t *testing.T) {
	tab, err := Load(testDefs, testRules)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tab.Theorems) != 2 {
		t.Fatalf("Load() parsed %d theorems, want 2", len(tab.Theorems))
	}
	if len(tab.Defs) != 3 {
		t.Fatalf("Load() parsed %d definitions, want 3", len(tab.Defs))
	}
	if tab.Hash == "" {
		t.Error("Load() produced an empty hash")
	}

	r1 := tab.Theorems[0]
	if r1.Name != "r1" || r1.Cost != 1 || len(r1.Premises) != 2 {
		t.Errorf("r1 = %+v", r1)
	}
	if r1.Conclusion.String() != "para a b c e" {
		t.Errorf("r1 conclusion = %q", r1.Conclusion)
	}
	if tab.Theorems[1].Cost != 2 {
		t.Errorf("r2 cost = %d, want 2", tab.Theorems[1].Cost)
	}
	if tab.MaxCost() != 2 {
		t.Errorf("MaxCost() = %d, want 2", tab.MaxCost())
	}

	mid := tab.Defs["midpoint"]
	if mid == nil || mid.Arity() != 3 {
		t.Fatalf("midpoint def = %+v", mid)
	}
	if len(mid.Implied) != 1 || len(mid.Degeneracy) != 1 {
		t.Errorf("midpoint implied/degeneracy = %d/%d", len(mid.Implied), len(mid.Degeneracy))
	}
	if mid.Degeneracy[0].Kind != DegDistinct {
		t.Errorf("midpoint degeneracy kind = %q", mid.Degeneracy[0].Kind)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		defs  string
		rules string
		want  string
	}{
		{"missing arrow", testDefs, "r1: coll a b c para a b c d\n", "missing =>"},
		{"bad cost", testDefs, "r1: coll a b c => coll a b c @zero\n", "bad cost"},
		{"unknown predicate", testDefs, "r1: between a b c => coll a b c\n", "unknown predicate"},
		{"duplicate rule", testDefs, "r1: coll a b c => coll a b c\nr1: coll a b c => coll a b c\n", "duplicate rule"},
		{"wrong arity", testDefs, "r1: para a b c => coll a b c\n", "para"},
		{"missing name", testDefs, "coll a b c => coll a b c\n", "missing rule name"},
		{"empty rules", testDefs, "# nothing\n", "empty rules table"},
		{"duplicate def", "free a\n\nfree a\n", testRules, "duplicate definition"},
		{"indent before signature", "  coll a b c\n", testRules, "indented line before"},
		{"degeneracy var not in signature", "midpoint m a b\n  ! distinct a z\n", testRules, "not in signature"},
		{"unknown degeneracy", "midpoint m a b\n  ! nonzero a b\n", testRules, "unknown degeneracy"},
		{"empty defs", "# nothing\n", testRules, "empty defs table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.defs, tt.rules)
			if !errors.Is(err, ErrTable) {
				t.Fatalf("Load() error = %v, want ErrTable", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoadDefault(t *testing.T) {
	tab, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if len(tab.Theorems) != 22 {
		t.Errorf("LoadDefault() theorems = %d, want 22", len(tab.Theorems))
	}
	if len(tab.Defs) != 16 {
		t.Errorf("LoadDefault() definitions = %d, want 16", len(tab.Defs))
	}
	if tab.MaxCost() != 3 {
		t.Errorf("MaxCost() = %d, want 3", tab.MaxCost())
	}
	for _, name := range []string{"triangle", "on_tline", "on_line", "midpoint", "circumcenter"} {
		if tab.Defs[name] == nil {
			t.Errorf("LoadDefault() missing constructor %q", name)
		}
	}
}

func TestHashVariesWithContent(t *testing.T) {
	a, err := Load(testDefs, testRules)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load(testDefs, testRules+"r3: coll a b c => coll b a c\n")
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash == b.Hash {
		t.Error("hashes identical for different rule tables")
	}
}
