// Package series holds the pure data-shaping layer: index-labeled series
// keyed by a run's independent parameters, run tables that align several
// series, dimensionality reduction and axis slicing. No I/O happens here.
package series

import (
	"encoding/binary"
	"math"
)

// Key is one ordered tuple of independent-parameter values, one entry per
// index level.
type Key []float64

// Point is a single measurement: an index tuple and its decoded value.
// Real-valued data is carried with a zero imaginary part.
type Point struct {
	Key   Key
	Value complex128
}

// Series is a mapping from index tuples to values with axis identity
// preserved as ordered, named levels. Tuples are unique: appending a point
// with an existing tuple overwrites the previous value (last write wins),
// which is how a growing result table re-read mid-sweep resolves.
type Series struct {
	Name    string
	Levels  []string
	Complex bool

	points []Point
	lookup map[string]int
}

// New creates an empty series over the given ordered index levels.
func New(name string, levels []string) *Series {
	return &Series{
		Name:   name,
		Levels: append([]string(nil), levels...),
		lookup: make(map[string]int),
	}
}

// Append inserts a point, overwriting any point sharing the same tuple.
// Appending in row order keeps first-seen ordering for everything else.
func (s *Series) Append(key Key, value complex128) {
	k := keyString(key)
	if i, ok := s.lookup[k]; ok {
		s.points[i].Value = value
		return
	}
	s.lookup[k] = len(s.points)
	s.points = append(s.points, Point{Key: append(Key(nil), key...), Value: value})
}

// Len returns the number of distinct index tuples.
func (s *Series) Len() int { return len(s.points) }

// Point returns the i-th point in first-seen order.
func (s *Series) Point(i int) Point { return s.points[i] }

// Points returns all points in first-seen order. Callers must not mutate.
func (s *Series) Points() []Point { return s.points }

// Lookup returns the value stored at the given tuple.
func (s *Series) Lookup(key Key) (complex128, bool) {
	i, ok := s.lookup[keyString(key)]
	if !ok {
		return 0, false
	}
	return s.points[i].Value, true
}

// LevelIndex returns the position of a named level, or -1.
func (s *Series) LevelIndex(name string) int {
	for i, l := range s.Levels {
		if l == name {
			return i
		}
	}
	return -1
}

// LevelValues returns the distinct values of one index level in first-seen
// order.
func (s *Series) LevelValues(level int) []float64 {
	seen := make(map[uint64]struct{}, len(s.points))
	var out []float64
	for _, p := range s.points {
		bits := math.Float64bits(p.Key[level])
		if _, ok := seen[bits]; ok {
			continue
		}
		seen[bits] = struct{}{}
		out = append(out, p.Key[level])
	}
	return out
}

// dropLevel removes one index level, keeping the remaining tuple order.
// Colliding tuples after the drop resolve last-write-wins, consistent with
// Append.
func (s *Series) dropLevel(level int) *Series {
	levels := make([]string, 0, len(s.Levels)-1)
	levels = append(levels, s.Levels[:level]...)
	levels = append(levels, s.Levels[level+1:]...)

	out := New(s.Name, levels)
	out.Complex = s.Complex
	for _, p := range s.points {
		key := make(Key, 0, len(p.Key)-1)
		key = append(key, p.Key[:level]...)
		key = append(key, p.Key[level+1:]...)
		out.Append(key, p.Value)
	}
	return out
}

// Real returns a copy of the series with every value replaced by its real
// part.
func (s *Series) Real() *Series {
	return s.mapValues(func(v complex128) complex128 { return complex(real(v), 0) })
}

// Imag returns a copy of the series with every value replaced by its
// imaginary part.
func (s *Series) Imag() *Series {
	return s.mapValues(func(v complex128) complex128 { return complex(imag(v), 0) })
}

func (s *Series) mapValues(f func(complex128) complex128) *Series {
	out := New(s.Name, s.Levels)
	for _, p := range s.points {
		out.Append(p.Key, f(p.Value))
	}
	return out
}

// Equal reports structural equality: same levels, same tuples in the same
// order, bit-identical values. Used as the change-detection rule for series
// cells.
func Equal(a, b *Series) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Name != b.Name || a.Complex != b.Complex || len(a.Levels) != len(b.Levels) || len(a.points) != len(b.points) {
		return false
	}
	for i := range a.Levels {
		if a.Levels[i] != b.Levels[i] {
			return false
		}
	}
	for i := range a.points {
		pa, pb := a.points[i], b.points[i]
		if pa.Value != pb.Value {
			return false
		}
		for j := range pa.Key {
			if math.Float64bits(pa.Key[j]) != math.Float64bits(pb.Key[j]) {
				return false
			}
		}
	}
	return true
}

// keyString encodes a tuple into an exact map key. Float bits rather than
// formatted text, so -0 and rounding artifacts stay distinct.
func keyString(key Key) string {
	buf := make([]byte, 8*len(key))
	for i, v := range key {
		binary.BigEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return string(buf)
}
