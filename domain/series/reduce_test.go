package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	t.Run("both axes vary, unchanged", func(t *testing.T) {
		s := grid()
		r := Reduce(s)
		assert.Equal(t, []string{"B_field", "gate_v"}, r.Levels)
		assert.Equal(t, 4, r.Len())
	})

	t.Run("constant outer axis drops", func(t *testing.T) {
		s := New("current", []string{"B_field", "gate_v"})
		s.Append(Key{0, 0}, 1)
		s.Append(Key{0, 1}, 2)
		s.Append(Key{0, 2}, 3)

		r := Reduce(s)
		require.Equal(t, []string{"gate_v"}, r.Levels)
		require.Equal(t, 3, r.Len())
		v, ok := r.Lookup(Key{1})
		require.True(t, ok)
		assert.Equal(t, complex128(2), v)
	})

	t.Run("cascading constant levels", func(t *testing.T) {
		s := New("v", []string{"a", "b", "c"})
		s.Append(Key{5, 7, 0}, 1)
		s.Append(Key{5, 7, 1}, 2)

		r := Reduce(s)
		assert.Equal(t, []string{"c"}, r.Levels)
	})

	t.Run("never drops the last level", func(t *testing.T) {
		s := New("v", []string{"x"})
		s.Append(Key{3}, 1)

		r := Reduce(s)
		assert.Equal(t, []string{"x"}, r.Levels)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, s := range []*Series{grid(), constantOuter()} {
			once := Reduce(s)
			twice := Reduce(once)
			assert.True(t, Equal(once, twice))
		}
	})

	t.Run("pure, input untouched", func(t *testing.T) {
		s := constantOuter()
		_ = Reduce(s)
		assert.Equal(t, []string{"B_field", "gate_v"}, s.Levels)
		assert.Equal(t, 2, s.Len())
	})
}

func constantOuter() *Series {
	s := New("current", []string{"B_field", "gate_v"})
	s.Append(Key{0, 0}, 1)
	s.Append(Key{0, 1}, 2)
	return s
}
