package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweepwatch/domain/core"
)

func TestAxisOptions(t *testing.T) {
	assert.Equal(t, []string{"B_field", "gate_v"}, AxisOptions(grid()))
	assert.Nil(t, AxisOptions(nil))
}

func TestValueOptions(t *testing.T) {
	t.Run("first-seen order", func(t *testing.T) {
		s := New("v", []string{"x", "y"})
		s.Append(Key{3, 0}, 1)
		s.Append(Key{1, 0}, 2)
		s.Append(Key{3, 1}, 3)
		s.Append(Key{2, 0}, 4)

		opts, err := ValueOptions(s, "x")
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 1, 2}, opts)
	})

	t.Run("none axis has no values", func(t *testing.T) {
		opts, err := ValueOptions(grid(), AxisNone)
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("unknown axis", func(t *testing.T) {
		_, err := ValueOptions(grid(), "bogus")
		assert.True(t, core.IsNotFoundError(err))
	})
}

func TestSlice(t *testing.T) {
	t.Run("projects one rank down", func(t *testing.T) {
		cut, err := Slice(grid(), "B_field", 0)
		require.NoError(t, err)
		require.Equal(t, []string{"gate_v"}, cut.Levels)
		require.Equal(t, 2, cut.Len())

		v, ok := cut.Lookup(Key{0})
		require.True(t, ok)
		assert.Equal(t, complex128(1), v)
		v, ok = cut.Lookup(Key{1})
		require.True(t, ok)
		assert.Equal(t, complex128(2), v)
	})

	t.Run("sliced axis leaves the option set", func(t *testing.T) {
		cut, err := Slice(grid(), "B_field", 1)
		require.NoError(t, err)
		assert.NotContains(t, AxisOptions(cut), "B_field")
	})

	t.Run("none is identity", func(t *testing.T) {
		s := grid()
		cut, err := Slice(s, AxisNone, 123)
		require.NoError(t, err)
		assert.Same(t, s, cut)
	})

	t.Run("no matching value yields empty series", func(t *testing.T) {
		cut, err := Slice(grid(), "B_field", 42)
		require.NoError(t, err)
		assert.Equal(t, 0, cut.Len())
	})

	t.Run("unknown axis", func(t *testing.T) {
		_, err := Slice(grid(), "bogus", 0)
		assert.True(t, core.IsNotFoundError(err))
	})
}
