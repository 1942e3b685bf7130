package series

import (
	"sweepwatch/domain/core"
)

// AxisNone is the sentinel slice axis meaning "do not slice".
const AxisNone = "none"

// AxisOptions returns the axes a series can be sliced along: its index
// levels, in level order. AxisNone is not included; the view layer prepends
// it when building the selector.
func AxisOptions(s *Series) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.Levels...)
}

// ValueOptions returns the distinct values of the chosen axis in first-seen
// index order. The AxisNone sentinel has no selectable values.
func ValueOptions(s *Series, axis string) ([]float64, error) {
	if axis == AxisNone {
		return nil, nil
	}
	if s == nil {
		return nil, core.NewEmptyDataError("no series to slice")
	}
	level := s.LevelIndex(axis)
	if level < 0 {
		return nil, core.NewNotFoundError("axis", axis)
	}
	return s.LevelValues(level), nil
}

// Slice projects the series onto the subseries where axis == value,
// dropping that index level. Slicing along AxisNone is the identity.
func Slice(s *Series, axis string, value float64) (*Series, error) {
	if axis == AxisNone {
		return s, nil
	}
	if s == nil {
		return nil, core.NewEmptyDataError("no series to slice")
	}
	level := s.LevelIndex(axis)
	if level < 0 {
		return nil, core.NewNotFoundError("axis", axis)
	}

	levels := make([]string, 0, len(s.Levels)-1)
	levels = append(levels, s.Levels[:level]...)
	levels = append(levels, s.Levels[level+1:]...)

	out := New(s.Name, levels)
	out.Complex = s.Complex
	for _, p := range s.Points() {
		if p.Key[level] != value {
			continue
		}
		key := make(Key, 0, len(p.Key)-1)
		key = append(key, p.Key[:level]...)
		key = append(key, p.Key[level+1:]...)
		out.Append(key, p.Value)
	}
	return out, nil
}
