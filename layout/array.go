package layout

import (
	"strconv"
	"sync/atomic"

	"github.com/mimimalizam/scicom/errors"
)

// Array is the host numeric array capability consumed by the bridge.
type Array interface {
	// Shape returns the axis lengths, slowest-varying first.
	Shape() []int
	// Strides returns the storage step of each axis.
	Strides() []int
	// Offset returns the storage position of the first element.
	Offset() int
	// Data returns the backing storage. It is shared, not copied.
	Data() []float64
	// At returns the element at a 0-based multi-index.
	At(idx ...int) (float64, error)
	// Freeze marks the array immutable. Arrays are frozen once their
	// storage has been published to an engine by reference.
	Freeze()
}

// Dense is a strided float64 array. Slices and reshapes share storage and
// frozen state with the array they came from.
type Dense struct {
	frozen  *atomic.Bool
	data    []float64
	shape   []int
	strides []int
	offset  int
}

var _ Array = (*Dense)(nil)

// NewDense wraps data as a row-major array of the given shape.
func NewDense(data []float64, shape ...int) (*Dense, error) {
	for i, s := range shape {
		if s < 0 {
			return nil, errors.ShapeMismatch("negative length %d on axis %d", s, i)
		}
	}
	if Size(shape) != len(data) {
		return nil, errors.ShapeMismatch("shape %v holds %d elements, data has %d", shape, Size(shape), len(data))
	}
	return &Dense{
		frozen:  new(atomic.Bool),
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: RowMajorStrides(shape),
	}, nil
}

// Arange returns the vector 0, 1, ..., n-1.
func Arange(n int) *Dense {
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	d, _ := NewDense(data, n)
	return d
}

func (d *Dense) Shape() []int    { return append([]int(nil), d.shape...) }
func (d *Dense) Strides() []int  { return append([]int(nil), d.strides...) }
func (d *Dense) Offset() int     { return d.offset }
func (d *Dense) Data() []float64 { return d.data }
func (d *Dense) Rank() int       { return len(d.shape) }
func (d *Dense) Size() int       { return Size(d.shape) }

// Freeze marks the storage immutable for every array sharing it.
func (d *Dense) Freeze() { d.frozen.Store(true) }

// Frozen reports whether the storage has been published by reference.
func (d *Dense) Frozen() bool { return d.frozen.Load() }

// Contiguous reports whether the array covers its storage in row-major order.
func (d *Dense) Contiguous() bool {
	if d.offset != 0 || Size(d.shape) != len(d.data) {
		return false
	}
	want := RowMajorStrides(d.shape)
	for i := range want {
		if d.shape[i] > 1 && d.strides[i] != want[i] {
			return false
		}
	}
	return true
}

func (d *Dense) pos(idx []int) (int, error) {
	if len(idx) != len(d.shape) {
		return 0, errors.ShapeMismatch("index of rank %d for array of rank %d", len(idx), len(d.shape))
	}
	p := d.offset
	for i, x := range idx {
		if x < 0 || x >= d.shape[i] {
			return 0, errors.OutOfBounds(errors.PhaseLayout, []string{"axis", strconv.Itoa(i)}, x, d.shape[i])
		}
		p += x * d.strides[i]
	}
	return p, nil
}

// At returns the element at idx.
func (d *Dense) At(idx ...int) (float64, error) {
	p, err := d.pos(idx)
	if err != nil {
		return 0, err
	}
	return d.data[p], nil
}

// Set stores v at idx. It fails once the array has been frozen.
func (d *Dense) Set(v float64, idx ...int) error {
	if d.Frozen() {
		return errors.Immutable("array storage is published to an engine")
	}
	p, err := d.pos(idx)
	if err != nil {
		return err
	}
	d.data[p] = v
	return nil
}

// Reshape returns a contiguous array with a new shape over the same storage.
func (d *Dense) Reshape(shape ...int) (*Dense, error) {
	if !d.Contiguous() {
		return nil, errors.ShapeMismatch("reshape of a non-contiguous view")
	}
	if Size(shape) != Size(d.shape) {
		return nil, errors.ShapeMismatch("cannot reshape %v into %v", d.shape, shape)
	}
	return &Dense{
		frozen:  d.frozen,
		data:    d.data,
		shape:   append([]int(nil), shape...),
		strides: RowMajorStrides(shape),
	}, nil
}

// Slice fixes axis at i and returns the remaining axes as a view.
func (d *Dense) Slice(axis, i int) (*Dense, error) {
	if axis < 0 || axis >= len(d.shape) {
		return nil, errors.OutOfBounds(errors.PhaseLayout, []string{"axis"}, axis, len(d.shape))
	}
	if i < 0 || i >= d.shape[axis] {
		return nil, errors.OutOfBounds(errors.PhaseLayout, []string{"axis", strconv.Itoa(axis)}, i, d.shape[axis])
	}
	shape := make([]int, 0, len(d.shape)-1)
	strides := make([]int, 0, len(d.shape)-1)
	for k := range d.shape {
		if k == axis {
			continue
		}
		shape = append(shape, d.shape[k])
		strides = append(strides, d.strides[k])
	}
	return &Dense{
		frozen:  d.frozen,
		data:    d.data,
		shape:   shape,
		strides: strides,
		offset:  d.offset + i*d.strides[axis],
	}, nil
}

// Each calls fn for every element in row-major order. The index slice is
// reused between calls.
func (d *Dense) Each(fn func(idx []int, v float64)) {
	n := Size(d.shape)
	if n == 0 {
		return
	}
	idx := make([]int, len(d.shape))
	for k := 0; k < n; k++ {
		p := d.offset
		for i, x := range idx {
			p += x * d.strides[i]
		}
		fn(idx, d.data[p])
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < d.shape[i] {
				break
			}
			idx[i] = 0
		}
	}
}
