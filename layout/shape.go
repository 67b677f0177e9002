package layout

import (
	"github.com/mimimalizam/scicom/errors"
)

// hostAxis returns the host axis that becomes engine axis j for an array of
// the given rank.
func hostAxis(rank, j int) int {
	if rank <= 2 {
		return j
	}
	switch j {
	case 0:
		return rank - 2
	case 1:
		return rank - 1
	default:
		return rank - 1 - j
	}
}

// axes returns hostAxis for every engine axis.
func axes(rank int) []int {
	out := make([]int, rank)
	for j := range out {
		out[j] = hostAxis(rank, j)
	}
	return out
}

// ForeignShape converts a host shape into the engine's dim.
func ForeignShape(shape []int) []int {
	out := make([]int, len(shape))
	for j := range out {
		out[j] = shape[hostAxis(len(shape), j)]
	}
	return out
}

// HostIndexToForeignIndex converts a 0-based host index into the engine's
// 1-based index for the same element.
func HostIndexToForeignIndex(idx []int) []int {
	out := make([]int, len(idx))
	for j := range out {
		out[j] = idx[hostAxis(len(idx), j)] + 1
	}
	return out
}

// ForeignIndexToHostIndex is the inverse of HostIndexToForeignIndex.
func ForeignIndexToHostIndex(fidx []int) ([]int, error) {
	out := make([]int, len(fidx))
	for j, f := range fidx {
		if f < 1 {
			return nil, errors.OutOfBounds(errors.PhaseLayout, nil, f, 0)
		}
		out[hostAxis(len(fidx), j)] = f - 1
	}
	return out, nil
}

// Size returns the element count of shape.
func Size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// RowMajorStrides returns contiguous row-major strides for shape.
func RowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}
