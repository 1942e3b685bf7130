package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grid builds the canonical two-axis test sweep:
// (0,0)=1, (0,1)=2, (1,0)=3, (1,1)=4 over levels (B_field, gate_v).
func grid() *Series {
	s := New("current", []string{"B_field", "gate_v"})
	s.Append(Key{0, 0}, 1)
	s.Append(Key{0, 1}, 2)
	s.Append(Key{1, 0}, 3)
	s.Append(Key{1, 1}, 4)
	return s
}

func TestSeriesAppend(t *testing.T) {
	t.Run("keeps first-seen order", func(t *testing.T) {
		s := grid()
		require.Equal(t, 4, s.Len())
		assert.Equal(t, Key{0, 0}, s.Point(0).Key)
		assert.Equal(t, Key{1, 1}, s.Point(3).Key)
	})

	t.Run("duplicate tuple resolves last-write-wins", func(t *testing.T) {
		s := grid()
		s.Append(Key{0, 1}, 99)
		assert.Equal(t, 4, s.Len())
		v, ok := s.Lookup(Key{0, 1})
		require.True(t, ok)
		assert.Equal(t, complex128(99), v)
		// position is stable: overwriting does not reorder
		assert.Equal(t, Key{0, 1}, s.Point(1).Key)
	})

	t.Run("distinguishes exact float keys", func(t *testing.T) {
		s := New("v", []string{"x"})
		s.Append(Key{0.1}, 1)
		s.Append(Key{0.2}, 2)
		assert.Equal(t, 2, s.Len())
	})
}

func TestLevelValues(t *testing.T) {
	s := grid()
	assert.Equal(t, []float64{0, 1}, s.LevelValues(0))
	assert.Equal(t, []float64{0, 1}, s.LevelValues(1))

	assert.Equal(t, 0, s.LevelIndex("B_field"))
	assert.Equal(t, 1, s.LevelIndex("gate_v"))
	assert.Equal(t, -1, s.LevelIndex("missing"))
}

func TestRealImag(t *testing.T) {
	s := New("z", []string{"x"})
	s.Complex = true
	s.Append(Key{0}, complex(1, 2))

	re := s.Real()
	im := s.Imag()
	assert.Equal(t, complex128(1), re.Point(0).Value)
	assert.Equal(t, complex128(2), im.Point(0).Value)
	// source untouched
	assert.Equal(t, complex(1.0, 2.0), s.Point(0).Value)
}

func TestEqual(t *testing.T) {
	a, b := grid(), grid()
	assert.True(t, Equal(a, b))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))

	b.Append(Key{2, 0}, 5)
	assert.False(t, Equal(a, b))

	c := grid()
	c.Append(Key{1, 1}, 5)
	assert.False(t, Equal(a, c))
}
