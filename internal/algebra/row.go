package algebra

import (
	"math"
	"sort"
)

// row is a sparse linear relation sum(coef[v] * value(v)) + c = 0, taken
// mod `modulus` when it is positive. Rows hold four-variable angle/ratio
// relations that a union-find cannot represent directly.
type row struct {
	coef    map[int]float64
	c       float64
	modulus float64
}

func newRow(modulus float64) row {
	return row{coef: make(map[int]float64), modulus: modulus}
}

func (r row) clone() row {
	out := row{coef: make(map[int]float64, len(r.coef)), c: r.c, modulus: r.modulus}
	for k, v := range r.coef {
		out.coef[k] = v
	}
	return out
}

func (r *row) addVar(v int, k float64) {
	nk := r.coef[v] + k
	if math.Abs(nk) < epsilon {
		delete(r.coef, v)
	} else {
		r.coef[v] = nk
	}
}

func (r *row) addConst(c float64) { r.c += c }

func (r row) empty() bool { return len(r.coef) == 0 }

func (r row) zeroConst() bool { return modEq(r.c, 0, r.modulus) }

// leading returns the smallest variable id in the row; rows are kept in
// echelon form ordered by leading variable.
func (r row) leading() int {
	lead := math.MaxInt
	for v := range r.coef {
		if v < lead {
			lead = v
		}
	}
	return lead
}

// pairMerge reports whether the row is a two-variable relation with unit
// coefficients of opposite sign, i.e. directly expressible as a union-find
// merge. Rows with non-unit coefficients stay as rows: dividing a modular
// relation is not sound in general.
func (r row) pairMerge() bool {
	if len(r.coef) != 2 {
		return false
	}
	var ks []float64
	for _, k := range r.coef {
		ks = append(ks, k)
	}
	return math.Abs(ks[0]+ks[1]) < epsilon && math.Abs(math.Abs(ks[0])-1) < epsilon
}

// mergeArgs extracts (a, b, delta) such that value(b) = value(a) + delta
// from a pairMerge row.
func (r row) mergeArgs() (int, int, float64) {
	vars := make([]int, 0, 2)
	for v := range r.coef {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	a, b := vars[0], vars[1]
	// coef[a]*value(a) + coef[b]*value(b) + c = 0 with coef[b] = -coef[a].
	if r.coef[b] > 0 {
		a, b = b, a
	}
	// Now coef[a] = +1, coef[b] = -1: value(b) = value(a) + c.
	return a, b, r.c
}

// foldRow rewrites a row's variables onto current union-find roots, folding
// class offsets into the constant term.
func foldRow(r row, uf *offsetUF) row {
	out := newRow(r.modulus)
	out.c = r.c
	for v, k := range r.coef {
		root, off := uf.find(v)
		out.addVar(root, k)
		out.addConst(k * off)
	}
	return out
}

// reduceRow eliminates a row against a set of echelon rows. The input rows
// are not modified; the result is folded onto current roots first.
func reduceRow(r row, rows []row, uf *offsetUF) row {
	cur := foldRow(r, uf)
	for {
		if cur.empty() {
			return cur
		}
		lead := cur.leading()
		var pivot *row
		for i := range rows {
			folded := foldRow(rows[i], uf)
			if !folded.empty() && folded.leading() == lead {
				pivot = &folded
				break
			}
		}
		if pivot == nil {
			return cur
		}
		factor := cur.coef[lead] / pivot.coef[lead]
		next := cur.clone()
		for v, k := range pivot.coef {
			next.addVar(v, -factor*k)
		}
		next.addConst(-factor * pivot.c)
		cur = next
	}
}
