package layout

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimimalizam/scicom/errors"
)

func TestForeignShape(t *testing.T) {
	tests := []struct {
		host []int
		want []int
	}{
		{[]int{}, []int{}},
		{[]int{7}, []int{7}},
		{[]int{4, 3}, []int{4, 3}},
		{[]int{5, 3, 4}, []int{3, 4, 5}},
		{[]int{2, 4, 3, 5}, []int{3, 5, 4, 2}},
		{[]int{6, 2, 4, 3, 5}, []int{3, 5, 4, 2, 6}},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.host), func(t *testing.T) {
			assert.Equal(t, tc.want, ForeignShape(tc.host))
		})
	}
}

func TestForeignShape_ReverseThenSwap(t *testing.T) {
	for rank := 3; rank <= 7; rank++ {
		shape := make([]int, rank)
		for i := range shape {
			shape[i] = i + 2
		}
		want := slices.Clone(shape)
		slices.Reverse(want)
		want[0], want[1] = want[1], want[0]
		assert.Equal(t, want, ForeignShape(shape), "rank %d", rank)
	}
}

func TestForeignShape_DoesNotModifyInput(t *testing.T) {
	shape := []int{5, 3, 4}
	ForeignShape(shape)
	assert.Equal(t, []int{5, 3, 4}, shape)
}

func TestHostIndexToForeignIndex(t *testing.T) {
	assert.Equal(t, []int{1}, HostIndexToForeignIndex([]int{0}))
	assert.Equal(t, []int{3, 1}, HostIndexToForeignIndex([]int{2, 0}))
	assert.Equal(t, []int{2, 3, 1}, HostIndexToForeignIndex([]int{0, 1, 2}))
	assert.Equal(t, []int{3, 4, 2, 1}, HostIndexToForeignIndex([]int{0, 1, 2, 3}))

	for _, idx := range [][]int{{4}, {1, 2}, {4, 0, 3}, {1, 3, 2, 4}} {
		back, err := ForeignIndexToHostIndex(HostIndexToForeignIndex(idx))
		require.NoError(t, err)
		assert.Equal(t, idx, back)
	}

	_, err := ForeignIndexToHostIndex([]int{0, 1})
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindOutOfBounds})
}

// foreignLinear flattens a 1-based engine index in column-major order.
func foreignLinear(fidx, dim []int) int {
	l, step := 0, 1
	for j, f := range fidx {
		l += (f - 1) * step
		step *= dim[j]
	}
	return l
}

func TestVector_MatchesHostElements(t *testing.T) {
	for _, shape := range [][]int{{12}, {4, 3}, {5, 3, 4}, {2, 4, 3, 5}, {2, 2, 3, 2, 2}} {
		t.Run(fmt.Sprint(shape), func(t *testing.T) {
			arr, err := Arange(Size(shape)).Reshape(shape...)
			require.NoError(t, err)

			vec, err := NewVector(arr)
			require.NoError(t, err)
			require.Equal(t, Size(shape), vec.Len())
			require.Equal(t, ForeignShape(shape), vec.Dim())

			arr.Each(func(idx []int, v float64) {
				l := foreignLinear(HostIndexToForeignIndex(idx), vec.Dim())
				assert.Equal(t, v, vec.At(l), "host index %v", idx)
			})
		})
	}
}

func TestVector_ColumnMajorOrder(t *testing.T) {
	t.Run("matrix", func(t *testing.T) {
		arr, err := Arange(12).Reshape(4, 3)
		require.NoError(t, err)
		vec, err := NewVector(arr)
		require.NoError(t, err)

		// engine column 1 is host column 0
		assert.Equal(t, []float64{0, 3, 6, 9, 1, 4, 7, 10, 2, 5, 8, 11}, vec.Values())
	})

	t.Run("rank3", func(t *testing.T) {
		arr, err := Arange(60).Reshape(5, 3, 4)
		require.NoError(t, err)
		vec, err := NewVector(arr)
		require.NoError(t, err)

		// element e sits at host counter (e/12, e%3, (e%12)/3)
		for e := 0; e < 60; e++ {
			c0, c1, c2 := e/12, e%3, (e%12)/3
			assert.Equal(t, float64(c0*12+c1*4+c2), vec.At(e), "element %d", e)
		}
	})
}

func TestVector_SharesStorage(t *testing.T) {
	arr, err := Arange(6).Reshape(2, 3)
	require.NoError(t, err)
	vec, err := NewVector(arr)
	require.NoError(t, err)

	assert.Same(t, &arr.Data()[0], &vec.Storage()[0])
}

func TestVector_Slices(t *testing.T) {
	base, err := Arange(24).Reshape(2, 3, 4)
	require.NoError(t, err)

	t.Run("leading axis", func(t *testing.T) {
		s, err := base.Slice(0, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, s.Shape())
		assert.Equal(t, 12, s.Offset())

		vec, err := NewVector(s)
		require.NoError(t, err)
		assert.Equal(t, 12.0, vec.At(0))
		assert.Equal(t, 16.0, vec.At(1))
		assert.Equal(t, 13.0, vec.At(3))
	})

	t.Run("trailing axis", func(t *testing.T) {
		s, err := base.Slice(2, 1)
		require.NoError(t, err)
		assert.False(t, s.Contiguous())
		assert.Equal(t, []int{12, 4}, s.Strides())

		vec, err := NewVector(s)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 13, 5, 17, 9, 21}, vec.Values())
	})

	_, err = base.Slice(3, 0)
	assert.Error(t, err)
	_, err = base.Slice(0, 2)
	assert.Error(t, err)
}

func TestVector_FreezesHostArray(t *testing.T) {
	arr, err := Arange(6).Reshape(3, 2)
	require.NoError(t, err)
	sibling, err := arr.Slice(0, 0)
	require.NoError(t, err)

	require.NoError(t, arr.Set(10, 0, 0))

	_, err = NewVector(arr)
	require.NoError(t, err)

	assert.True(t, arr.Frozen())
	assert.True(t, sibling.Frozen())

	err = arr.Set(1, 0, 0)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindImmutable})
	err = sibling.Set(1, 1)
	assert.Error(t, err)

	v, err := arr.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

type badArray struct {
	Dense
	strides []int
}

func (b *badArray) Strides() []int { return b.strides }

func TestViewOf_Invariants(t *testing.T) {
	d, err := NewDense([]float64{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)

	t.Run("stride count", func(t *testing.T) {
		_, err := ViewOf(&badArray{Dense: *d, strides: []int{2}})
		assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindShapeMismatch})
	})

	t.Run("outside storage", func(t *testing.T) {
		_, err := ViewOf(&badArray{Dense: *d, strides: []int{4, 1}})
		assert.Error(t, err)
	})

	t.Run("ok", func(t *testing.T) {
		v, err := ViewOf(d)
		require.NoError(t, err)
		assert.Equal(t, 4, v.Size())
		assert.Equal(t, []int{2, 1}, v.Strides)
	})
}

func TestDense(t *testing.T) {
	_, err := NewDense([]float64{1, 2, 3}, 2, 2)
	assert.Error(t, err)

	d, err := NewDense([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Rank())
	assert.Equal(t, 6, d.Size())
	assert.True(t, d.Contiguous())

	v, err := d.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	_, err = d.At(2, 0)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindOutOfBounds})
	_, err = d.At(0)
	assert.Error(t, err)

	_, err = d.Reshape(4)
	assert.Error(t, err)

	var order []float64
	d.Each(func(_ []int, v float64) { order = append(order, v) })
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, order)

	s, err := d.Slice(1, 0)
	require.NoError(t, err)
	_, err = s.Reshape(2)
	assert.Error(t, err, "reshape of a strided view")
}
