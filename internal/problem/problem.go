// Package problem parses the textual problem and proof DSLs.
//
// A problem is `<constructions> ? <goal>` where the `?` and goal are
// optional. Constructions are ';'-separated; each reads
// `<point names> = <constructor> <args> (, <constructor> <args>)*`.
// A clause without '=' is a predicate statement. Proof text uses the same
// clause syntax, separated by ';' or newlines.
package problem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse is wrapped by all DSL parse failures.
var ErrParse = errors.New("parse error")

// Construction is one constructor invocation: `on_tline d b a c`.
type Construction struct {
	Name string
	Args []string
}

func (c Construction) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Clause introduces one or more new points as the intersection of the
// constraints of its constructor parts.
type Clause struct {
	Points []string
	Parts  []Construction
}

func (c Clause) String() string {
	parts := make([]string, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = p.String()
	}
	return strings.Join(c.Points, " ") + " = " + strings.Join(parts, ", ")
}

// Statement is a predicate clause: `perp a d b c`.
type Statement struct {
	Name string
	Args []string
}

func (s Statement) String() string {
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Problem is an ordered list of construction clauses, any interleaved
// predicate statements (facts carried over from verified context), and an
// optional goal.
type Problem struct {
	Clauses    []Clause
	Statements []Statement
	Goal       *Statement
}

// String renders the problem in normalized DSL form.
func (p *Problem) String() string {
	var premises []string
	for _, c := range p.Clauses {
		premises = append(premises, c.String())
	}
	for _, s := range p.Statements {
		premises = append(premises, s.String())
	}
	out := strings.Join(premises, "; ")
	if p.Goal != nil {
		out += " ? " + p.Goal.String()
	}
	return out
}

// Parse parses problem text.
func Parse(text string) (*Problem, error) {
	premises, goalText, hasGoal := strings.Cut(text, "?")
	p := &Problem{}

	for _, raw := range splitClauses(premises) {
		if strings.Contains(raw, "=") {
			c, err := parseClause(raw)
			if err != nil {
				return nil, err
			}
			p.Clauses = append(p.Clauses, c)
			continue
		}
		s, err := parseStatement(raw)
		if err != nil {
			return nil, err
		}
		p.Statements = append(p.Statements, s)
	}

	if hasGoal {
		goalText = strings.TrimSpace(goalText)
		if goalText == "" {
			return nil, fmt.Errorf("%w: empty goal after '?'", ErrParse)
		}
		g, err := parseStatement(goalText)
		if err != nil {
			return nil, err
		}
		p.Goal = &g
	}
	return p, nil
}

// ParseStatement parses a single predicate clause.
func ParseStatement(text string) (Statement, error) {
	return parseStatement(text)
}

// splitClauses splits on ';' and newlines, dropping empty pieces.
func splitClauses(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == '\n'
	})
	var out []string
	for _, c := range raw {
		if strings.TrimSpace(c) != "" {
			out = append(out, strings.TrimSpace(c))
		}
	}
	return out
}

// SplitProofSteps splits proof text into clauses, preserving order. Each
// clause is either a construction (contains '=') or a derivation.
func SplitProofSteps(text string) []string {
	return splitClauses(text)
}

// IsConstruction reports whether a proof clause introduces points.
func IsConstruction(clause string) bool {
	return strings.Contains(clause, "=")
}

func parseClause(raw string) (Clause, error) {
	lhs, rhs, ok := strings.Cut(raw, "=")
	if !ok {
		return Clause{}, fmt.Errorf("%w: construction clause %q missing '='", ErrParse, raw)
	}
	points := strings.Fields(lhs)
	if len(points) == 0 {
		return Clause{}, fmt.Errorf("%w: construction clause %q names no points", ErrParse, raw)
	}
	seen := make(map[string]bool)
	for _, pt := range points {
		if seen[pt] {
			return Clause{}, fmt.Errorf("%w: point %q repeated in clause %q", ErrParse, pt, raw)
		}
		seen[pt] = true
	}

	var parts []Construction
	for _, piece := range strings.Split(rhs, ",") {
		fields := strings.Fields(piece)
		if len(fields) == 0 {
			return Clause{}, fmt.Errorf("%w: empty constructor in clause %q", ErrParse, raw)
		}
		parts = append(parts, Construction{Name: fields[0], Args: fields[1:]})
	}
	return Clause{Points: points, Parts: parts}, nil
}

func parseStatement(raw string) (Statement, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return Statement{}, fmt.Errorf("%w: statement %q needs a predicate and arguments", ErrParse, raw)
	}
	return Statement{Name: fields[0], Args: fields[1:]}, nil
}

// SubStatements splits a derivation clause into its comma-separated
// sub-predicates, each to be checked independently.
func SubStatements(clause string) ([]Statement, error) {
	var out []Statement
	for _, piece := range strings.Split(clause, ",") {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		s, err := parseStatement(strings.TrimSpace(piece))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: derivation clause %q is empty", ErrParse, clause)
	}
	return out, nil
}

// InjectSolution splices an auxiliary construction into a problem's
// premises, before the goal separator. A missing separator appends to the
// end. An empty solution returns the problem unchanged.
func InjectSolution(problemText, solutionText string) string {
	solution := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(solutionText), ";"))
	if solution == "" {
		return problemText
	}
	premises, goal, hasGoal := strings.Cut(problemText, "?")
	premises = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(premises), ";"))
	if premises == "" {
		premises = solution
	} else {
		premises = premises + "; " + solution
	}
	if !hasGoal {
		return premises
	}
	return premises + " ? " + strings.TrimSpace(goal)
}

// StripSolution removes a previously injected construction, inverting
// InjectSolution up to whitespace and ';' normalization.
func StripSolution(problemText, solutionText string) string {
	solution := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(solutionText), ";"))
	if solution == "" {
		return problemText
	}
	premises, goal, hasGoal := strings.Cut(problemText, "?")
	clauses := splitClauses(premises)
	kept := clauses[:0]
	injected := splitClauses(solution)
	for _, c := range clauses {
		matched := false
		for i, inj := range injected {
			if c == inj {
				injected = append(injected[:i], injected[i+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, c)
		}
	}
	out := strings.Join(kept, "; ")
	if hasGoal {
		out += " ? " + strings.TrimSpace(goal)
	}
	return out
}
