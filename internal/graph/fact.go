package graph

import (
	"fmt"
	"strings"

	"geoverify/internal/geom"
)

// Node is an opaque handle to a named geometric object (a point). Names
// are unique within one graph; a graph never renames or removes a node.
type Node struct {
	ID   int
	Name string
	Pos  geom.Point
}

func (n *Node) String() string { return n.Name }

// Justification records why a fact is true. Facts loaded from an already
// verified context carry the zero level and the "verified" rule with no
// premises; everything else records the inference level, the rule that
// produced it and the premise facts it consumed. A derived fact's level is
// never below the level of any premise.
type Justification struct {
	Level    int
	Rule     string
	Premises []*Fact
}

// RuleVerified marks facts asserted from previously verified proof context.
const RuleVerified = "verified"

// RuleConstruction marks facts implied directly by a construction clause.
const RuleConstruction = "construction"

// RuleAlgebra marks facts promoted out of the algebraic store.
const RuleAlgebra = "ar"

// Verified creates the justification for an externally supplied fact.
func Verified() Justification {
	return Justification{Level: 0, Rule: RuleVerified}
}

// Constructed creates the justification for a construction-implied fact.
func Constructed() Justification {
	return Justification{Level: 0, Rule: RuleConstruction}
}

// Derived creates the justification for a rule-derived fact.
func Derived(level int, rule string, premises []*Fact) Justification {
	return Justification{Level: level, Rule: rule, Premises: premises}
}

// Fact is one predicate asserted true in a graph. Facts are append-only:
// once true, always true for that graph instance.
type Fact struct {
	Kind Kind
	Args []*Node
	J    Justification
}

func (f *Fact) String() string {
	names := make([]string, 0, len(f.Args)+1)
	names = append(names, string(f.Kind))
	for _, n := range f.Args {
		names = append(names, n.Name)
	}
	return strings.Join(names, " ")
}

// Key returns the canonical storage key of the fact.
func (f *Fact) Key() string {
	ids := make([]int, len(f.Args))
	for i, n := range f.Args {
		ids[i] = n.ID
	}
	return canonicalKey(f.Kind, ids)
}

// Provenance renders a one-line justification, e.g. "level 2 via aa_similar".
func (f *Fact) Provenance() string {
	if f.J.Rule == RuleVerified || f.J.Rule == RuleConstruction {
		return f.J.Rule
	}
	return fmt.Sprintf("level %d via %s", f.J.Level, f.J.Rule)
}
