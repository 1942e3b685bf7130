package series

// Reduce strips outermost index levels that carry only one distinct value,
// while more than one level remains. The result is the minimal display rank
// of the data: one varying level renders as a line, two or more as a
// surface. Reduce is pure and idempotent: Reduce(Reduce(s)) == Reduce(s).
func Reduce(s *Series) *Series {
	out := s
	for len(out.Levels) > 1 && len(out.LevelValues(0)) <= 1 {
		out = out.dropLevel(0)
	}
	return out
}
