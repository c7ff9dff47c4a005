// Package dd implements the deductive rule engine: one pass matches every
// enabled theorem's premise patterns against the current graph and stages
// candidate conclusions for the orchestrator to assert. Matching different
// rules is independent and runs in parallel; the pass deadline is polled
// cooperatively, so an expired pass returns the partial result found so
// far rather than failing.
package dd

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"geoverify/internal/geom"
	"geoverify/internal/graph"
	"geoverify/internal/logging"
	"geoverify/internal/rules"

	"golang.org/x/sync/errgroup"
)

// Options configures one pass.
type Options struct {
	// NumericCheck discards matches whose conclusion is numerically false
	// under the graph's coordinate realization. Symbolic matching alone
	// produces spurious conclusions at degenerate configurations.
	NumericCheck bool
	// Timeout bounds the matching search. Zero means no deadline.
	Timeout time.Duration
	// MaxParallel caps concurrent rule matchers; 0 uses GOMAXPROCS.
	MaxParallel int
}

// Candidate is one staged conclusion.
type Candidate struct {
	Kind  graph.Kind
	Args  []*graph.Node
	Rule  string
	Level int
}

func (c Candidate) String() string {
	names := make([]string, 0, len(c.Args)+1)
	names = append(names, string(c.Kind))
	for _, n := range c.Args {
		names = append(names, n.Name)
	}
	return strings.Join(names, " ")
}

// Result is the outcome of one pass, split by how the conclusions feed
// back: plain facts are asserted directly, angle and ratio facts route
// through the algebraic store.
type Result struct {
	Plain    []Candidate
	Angle    []Candidate
	Ratio    []Candidate
	TimedOut bool
}

// Empty reports whether the pass staged nothing.
func (r Result) Empty() bool {
	return len(r.Plain) == 0 && len(r.Angle) == 0 && len(r.Ratio) == 0
}

// Total returns the number of staged candidates.
func (r Result) Total() int {
	return len(r.Plain) + len(r.Angle) + len(r.Ratio)
}

// Pass runs one inference level: every theorem whose cost is within the
// level is matched against the graph. Matches already consumed at an
// earlier level are skipped via the graph's applied-match record.
func Pass(ctx context.Context, g *graph.Graph, tables *rules.Tables, level int, opts Options) (Result, error) {
	timer := logging.StartTimer(logging.CategoryDD, fmt.Sprintf("dd.Pass level %d", level))
	defer timer.Stop()

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	enabled := make([]*rules.Theorem, 0, len(tables.Theorems))
	for _, th := range tables.Theorems {
		if th.Cost <= level {
			enabled = append(enabled, th)
		}
	}

	perRule := make([][]Candidate, len(enabled))
	var timedOut atomic.Bool

	eg, egCtx := errgroup.WithContext(ctx)
	limit := opts.MaxParallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	eg.SetLimit(limit)

	for i, th := range enabled {
		i, th := i, th
		eg.Go(func() error {
			m := &matcher{
				g:        g,
				rule:     th,
				level:    level,
				deadline: deadline,
				ctx:      egCtx,
			}
			cands, expired, err := m.run()
			if err != nil {
				return err
			}
			if expired {
				timedOut.Store(true)
			}
			perRule[i] = cands
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	res.TimedOut = timedOut.Load()
	for i, cands := range perRule {
		for _, c := range cands {
			if opts.NumericCheck && !numericTrue(c.Kind, c.Args) {
				logging.DDDebug("numeric filter rejected %s (%s)", c.String(), enabled[i].Name)
				continue
			}
			switch c.Kind {
			case graph.EqAngle:
				res.Angle = append(res.Angle, c)
			case graph.EqRatio:
				res.Ratio = append(res.Ratio, c)
			default:
				res.Plain = append(res.Plain, c)
			}
		}
	}

	if res.TimedOut {
		logging.DD("pass at level %d timed out with %d partial candidates", level, res.Total())
	}
	return res, nil
}

// matcher searches assignments of one rule's placeholders to graph nodes.
type matcher struct {
	g        *graph.Graph
	rule     *rules.Theorem
	level    int
	deadline time.Time
	ctx      context.Context

	vars    []string
	varIdx  map[string]int
	byLast  [][]rules.Pattern // premises to check once var i is bound
	binding []*graph.Node

	out     []Candidate
	polls   int
	expired bool
}

func (m *matcher) run() ([]Candidate, bool, error) {
	m.collectVars()
	m.binding = make([]*graph.Node, len(m.vars))
	if err := m.assign(0); err != nil {
		return nil, false, err
	}
	return m.out, m.expired, nil
}

// collectVars orders placeholders by first appearance and indexes each
// premise under the last placeholder it mentions, so premises are checked
// as soon as they are fully bound and prune the search early.
func (m *matcher) collectVars() {
	m.varIdx = make(map[string]int)
	add := func(v string) {
		if _, ok := m.varIdx[v]; !ok {
			m.varIdx[v] = len(m.vars)
			m.vars = append(m.vars, v)
		}
	}
	for _, p := range m.rule.Premises {
		for _, v := range p.Vars {
			add(v)
		}
	}
	for _, v := range m.rule.Conclusion.Vars {
		add(v)
	}

	m.byLast = make([][]rules.Pattern, len(m.vars))
	for _, p := range m.rule.Premises {
		last := 0
		for _, v := range p.Vars {
			if idx := m.varIdx[v]; idx > last {
				last = idx
			}
		}
		m.byLast[last] = append(m.byLast[last], p)
	}
}

func (m *matcher) assign(i int) error {
	if m.expired {
		return nil
	}
	if i == len(m.vars) {
		m.stage()
		return nil
	}
	for _, n := range m.g.Nodes() {
		if m.poll() {
			return nil
		}
		m.binding[i] = n
		ok, err := m.premisesHold(i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := m.assign(i + 1); err != nil {
			return err
		}
	}
	return nil
}

// poll checks the deadline and context every few hundred assignments.
func (m *matcher) poll() bool {
	m.polls++
	if m.polls%256 != 0 {
		return m.expired
	}
	if m.ctx.Err() != nil {
		m.expired = true
		return true
	}
	if !m.deadline.IsZero() && time.Now().After(m.deadline) {
		m.expired = true
		return true
	}
	return false
}

func (m *matcher) premisesHold(i int) (bool, error) {
	for _, p := range m.byLast[i] {
		args := make([]*graph.Node, len(p.Vars))
		for j, v := range p.Vars {
			args[j] = m.binding[m.varIdx[v]]
		}
		ok, err := m.g.Holds(p.Kind, args)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// stage records a completed match unless it was already consumed at an
// earlier level.
func (m *matcher) stage() {
	concl := m.rule.Conclusion
	args := make([]*graph.Node, len(concl.Vars))
	for j, v := range concl.Vars {
		args[j] = m.binding[m.varIdx[v]]
	}

	var key strings.Builder
	key.WriteString(m.rule.Name)
	for _, n := range m.binding {
		fmt.Fprintf(&key, ":%d", n.ID)
	}
	if !m.g.MarkApplied(key.String()) {
		return
	}
	if degenerateConclusion(concl.Kind, args) {
		return
	}

	m.out = append(m.out, Candidate{
		Kind:  concl.Kind,
		Args:  append([]*graph.Node(nil), args...),
		Rule:  m.rule.Name,
		Level: m.level,
	})
}

// degenerateConclusion reports whether a match instantiated the theorem
// vacuously: the conclusion names a zero-length segment or collapses
// points that the predicate needs distinct. The algebraic store rejects
// such relations, so they are dropped at staging.
func degenerateConclusion(k graph.Kind, args []*graph.Node) bool {
	switch k {
	case graph.EqAngle, graph.EqRatio:
		for i := 0; i < len(args); i += 2 {
			if args[i] == args[i+1] {
				return true
			}
		}
	case graph.Para, graph.Perp, graph.Cong:
		return args[0] == args[1] || args[2] == args[3]
	case graph.Coll, graph.Midp, graph.Cyclic, graph.Circle:
		for i := 0; i < len(args); i++ {
			for j := i + 1; j < len(args); j++ {
				if args[i] == args[j] {
					return true
				}
			}
		}
	}
	return false
}

// numericTrue checks a conclusion against the concrete realization.
func numericTrue(k graph.Kind, args []*graph.Node) bool {
	p := make([]geom.Point, len(args))
	for i, n := range args {
		p[i] = n.Pos
	}
	switch k {
	case graph.Coll:
		for i := 2; i < len(p); i++ {
			if !geom.Coll(p[0], p[1], p[i]) {
				return false
			}
		}
		return true
	case graph.Para:
		return geom.Para(p[0], p[1], p[2], p[3])
	case graph.Perp:
		return geom.Perp(p[0], p[1], p[2], p[3])
	case graph.Cong:
		return geom.Cong(p[0], p[1], p[2], p[3])
	case graph.Midp:
		return geom.Midp(p[0], p[1], p[2])
	case graph.Cyclic:
		return geom.Cyclic(p...)
	case graph.Circle:
		return geom.Cong(p[0], p[1], p[0], p[2]) && geom.Cong(p[0], p[1], p[0], p[3])
	case graph.EqAngle:
		return geom.EqAngle(p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])
	case graph.EqRatio:
		return geom.EqRatio(p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])
	case graph.SimTri:
		return geom.SimTri(p[0], p[1], p[2], p[3], p[4], p[5])
	case graph.ConTri:
		return geom.ConTri(p[0], p[1], p[2], p[3], p[4], p[5])
	}
	return false
}
