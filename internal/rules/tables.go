// Package rules loads the immutable theorem and definition tables that the
// rule engine and construction builder run against. Tables are parsed once
// at verifier construction and shared read-only across all checks.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"geoverify/internal/graph"
)

// ErrTable is wrapped by all table parse failures.
var ErrTable = errors.New("invalid table")

// Pattern is a predicate template over placeholder points.
type Pattern struct {
	Kind graph.Kind
	Vars []string
}

func (p Pattern) String() string {
	return string(p.Kind) + " " + strings.Join(p.Vars, " ")
}

// Theorem is one inference rule: if every premise pattern holds under some
// assignment of placeholders to points, the conclusion holds. Cost gates
// the rule to passes at that inference level or deeper.
type Theorem struct {
	Name       string
	Premises   []Pattern
	Conclusion Pattern
	Cost       int
}

// DegKind names a degeneracy condition a construction must avoid.
type DegKind string

const (
	DegDistinct DegKind = "distinct" // points must not coincide
	DegNonColl  DegKind = "ncoll"    // points must not be collinear
	DegNonPara  DegKind = "npara"    // two lines must not be parallel
)

// Degeneracy is a numeric condition that rejects a construction sample.
type Degeneracy struct {
	Kind DegKind
	Vars []string
}

// Definition describes one constructor: its signature, the predicates it
// implies about the constructed point, and the degeneracy conditions under
// which its realization must be rejected.
type Definition struct {
	Name       string
	Params     []string
	Implied    []Pattern
	Degeneracy []Degeneracy
}

// Arity returns the number of arguments the constructor takes.
func (d *Definition) Arity() int { return len(d.Params) }

// Tables bundles the two immutable tables plus a content hash used for
// verdict-cache keying.
type Tables struct {
	Theorems []*Theorem
	Defs     map[string]*Definition
	Hash     string
}

// MaxCost returns the largest rule cost; the deepening orchestrator only
// declares saturation once passes at this level stop producing facts.
func (t *Tables) MaxCost() int {
	max := 1
	for _, th := range t.Theorems {
		if th.Cost > max {
			max = th.Cost
		}
	}
	return max
}

// Load parses definition and rule table text.
func Load(defsText, rulesText string) (*Tables, error) {
	defs, err := parseDefs(defsText)
	if err != nil {
		return nil, err
	}
	theorems, err := parseRules(rulesText)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(defsText + "\x00" + rulesText))
	return &Tables{
		Theorems: theorems,
		Defs:     defs,
		Hash:     hex.EncodeToString(sum[:]),
	}, nil
}

// LoadFiles reads and parses table files from disk.
func LoadFiles(defsPath, rulesPath string) (*Tables, error) {
	defsText, err := os.ReadFile(defsPath)
	if err != nil {
		return nil, fmt.Errorf("read defs table: %w", err)
	}
	rulesText, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("read rules table: %w", err)
	}
	return Load(string(defsText), string(rulesText))
}

// parseRules parses the theorem table. One rule per line:
//
//	name: premise, premise => conclusion @cost
//
// The cost suffix is optional and defaults to 1. Blank lines and lines
// starting with '#' are skipped.
func parseRules(text string) ([]*Theorem, error) {
	var out []*Theorem
	seen := make(map[string]bool)
	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: rules line %d: missing rule name", ErrTable, lineNo+1)
		}
		name = strings.TrimSpace(name)
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrTable, name)
		}
		seen[name] = true

		cost := 1
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			n, err := strconv.Atoi(strings.TrimSpace(rest[at+1:]))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: rule %q: bad cost %q", ErrTable, name, rest[at+1:])
			}
			cost = n
			rest = rest[:at]
		}

		lhs, rhs, ok := strings.Cut(rest, "=>")
		if !ok {
			return nil, fmt.Errorf("%w: rule %q: missing =>", ErrTable, name)
		}
		var premises []Pattern
		for _, part := range strings.Split(lhs, ",") {
			p, err := parsePattern(part)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q: %v", ErrTable, name, err)
			}
			premises = append(premises, p)
		}
		if len(premises) == 0 {
			return nil, fmt.Errorf("%w: rule %q has no premises", ErrTable, name)
		}
		concl, err := parsePattern(rhs)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrTable, name, err)
		}
		out = append(out, &Theorem{Name: name, Premises: premises, Conclusion: concl, Cost: cost})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty rules table", ErrTable)
	}
	return out, nil
}

func parsePattern(s string) (Pattern, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return Pattern{}, fmt.Errorf("pattern %q too short", s)
	}
	kind := graph.Kind(fields[0])
	if !graph.KnownKind(kind) {
		return Pattern{}, fmt.Errorf("unknown predicate %q", fields[0])
	}
	if err := graph.CheckShape(kind, len(fields)-1); err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %v", s, err)
	}
	return Pattern{Kind: kind, Vars: fields[1:]}, nil
}

// parseDefs parses the definition table. Definitions are blank-line
// separated blocks: an unindented signature line followed by indented
// implied-predicate lines; lines starting with '!' are degeneracy
// conditions.
func parseDefs(text string) (map[string]*Definition, error) {
	defs := make(map[string]*Definition)
	var cur *Definition
	for lineNo, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indented := raw != "" && (raw[0] == ' ' || raw[0] == '\t')
		if !indented {
			fields := strings.Fields(trimmed)
			name := fields[0]
			if _, dup := defs[name]; dup {
				return nil, fmt.Errorf("%w: duplicate definition %q", ErrTable, name)
			}
			cur = &Definition{Name: name, Params: fields[1:]}
			defs[name] = cur
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: defs line %d: indented line before any signature", ErrTable, lineNo+1)
		}
		if strings.HasPrefix(trimmed, "!") {
			fields := strings.Fields(strings.TrimPrefix(trimmed, "!"))
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: def %q: bad degeneracy condition %q", ErrTable, cur.Name, trimmed)
			}
			kind := DegKind(fields[0])
			switch kind {
			case DegDistinct, DegNonColl, DegNonPara:
			default:
				return nil, fmt.Errorf("%w: def %q: unknown degeneracy kind %q", ErrTable, cur.Name, fields[0])
			}
			if err := checkDefVars(cur, fields[1:]); err != nil {
				return nil, fmt.Errorf("%w: def %q: %v", ErrTable, cur.Name, err)
			}
			cur.Degeneracy = append(cur.Degeneracy, Degeneracy{Kind: kind, Vars: fields[1:]})
			continue
		}
		p, err := parsePattern(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: def %q: %v", ErrTable, cur.Name, err)
		}
		if err := checkDefVars(cur, p.Vars); err != nil {
			return nil, fmt.Errorf("%w: def %q: %v", ErrTable, cur.Name, err)
		}
		cur.Implied = append(cur.Implied, p)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: empty defs table", ErrTable)
	}
	return defs, nil
}

func checkDefVars(d *Definition, vars []string) error {
	for _, v := range vars {
		found := false
		for _, p := range d.Params {
			if p == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("variable %q not in signature", v)
		}
	}
	return nil
}
