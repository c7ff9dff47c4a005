package algebra

// Pure queries against the current equation system. A query never changes
// what the system knows; interning of line/length variables for previously
// unseen segments is the only internal bookkeeping it may do.

// Coll reports whether the system knows a, b, c to be collinear.
func (s *Store) Coll(a, b, c int) bool {
	if a == b || b == c || a == c {
		return false
	}
	l1 := s.lineID(MakeSeg(a, b))
	l2 := s.lineID(MakeSeg(a, c))
	return s.lineFind(l1) == s.lineFind(l2)
}

// SameLine reports whether segments ab and cd lie on one known line.
func (s *Store) SameLine(a, b, c, d int) bool {
	if a == b || c == d {
		return false
	}
	l1 := s.lineID(MakeSeg(a, b))
	l2 := s.lineID(MakeSeg(c, d))
	return s.lineFind(l1) == s.lineFind(l2)
}

// Para reports whether line ab is known parallel to line cd. Two segments
// of one line count as parallel.
func (s *Store) Para(a, b, c, d int) bool {
	if a == b || c == d {
		return false
	}
	return s.dirRelation(a, b, c, d, 0)
}

// Perp reports whether line ab is known perpendicular to line cd.
func (s *Store) Perp(a, b, c, d int) bool {
	if a == b || c == d {
		return false
	}
	if s.SameLine(a, b, c, d) {
		return false
	}
	return s.dirRelation(a, b, c, d, halfPi)
}

func (s *Store) dirRelation(a, b, c, d int, delta float64) bool {
	l1 := s.lineID(MakeSeg(a, b))
	l2 := s.lineID(MakeSeg(c, d))
	r := newRow(pi)
	r.addVar(l2, 1)
	r.addVar(l1, -1)
	r.addConst(-delta)
	reduced := reduceRow(r, s.angleRows, &s.dir)
	return reduced.empty() && reduced.zeroConst()
}

// Cong reports whether |ab| = |cd| is known.
func (s *Store) Cong(a, b, c, d int) bool {
	if a == b || c == d {
		return false
	}
	v1 := s.segID(MakeSeg(a, b))
	v2 := s.segID(MakeSeg(c, d))
	r := newRow(0)
	r.addVar(v1, 1)
	r.addVar(v2, -1)
	reduced := reduceRow(r, s.ratioRows, &s.length)
	return reduced.empty() && reduced.zeroConst()
}

// EqAngle reports whether angle(ab->cd) = angle(ef->gh) is known (mod pi).
func (s *Store) EqAngle(args []int) bool {
	r, err := s.angleRow(args)
	if err != nil {
		return false
	}
	reduced := reduceRow(r, s.angleRows, &s.dir)
	return reduced.empty() && reduced.zeroConst()
}

// EqRatio reports whether |ab|/|cd| = |ef|/|gh| is known.
func (s *Store) EqRatio(args []int) bool {
	r, err := s.ratioRow(args)
	if err != nil {
		return false
	}
	reduced := reduceRow(r, s.ratioRows, &s.length)
	return reduced.empty() && reduced.zeroConst()
}
