package layout

import (
	"github.com/mimimalizam/scicom/errors"
)

// View describes a host array without copying its storage.
type View struct {
	Data    []float64
	Shape   []int
	Strides []int
	Offset  int
}

// ViewOf captures the layout of a and checks that every element it
// addresses lies inside the backing storage.
func ViewOf(a Array) (View, error) {
	v := View{
		Data:    a.Data(),
		Shape:   a.Shape(),
		Strides: a.Strides(),
		Offset:  a.Offset(),
	}
	if len(v.Shape) != len(v.Strides) {
		return View{}, errors.ShapeMismatch("%d axes but %d strides", len(v.Shape), len(v.Strides))
	}
	if Size(v.Shape) == 0 {
		return v, nil
	}
	lo, hi := v.Offset, v.Offset
	for i, s := range v.Shape {
		if s < 0 {
			return View{}, errors.ShapeMismatch("negative length %d on axis %d", s, i)
		}
		step := (s - 1) * v.Strides[i]
		if step < 0 {
			lo += step
		} else {
			hi += step
		}
	}
	if lo < 0 || hi >= len(v.Data) {
		return View{}, errors.ShapeMismatch("view spans [%d, %d] of storage with %d elements", lo, hi, len(v.Data))
	}
	return v, nil
}

// Size returns the number of elements the view addresses.
func (v View) Size() int { return Size(v.Shape) }

// Vector is an engine-layout vector backed by host storage. Element i is
// the i-th element in the engine's column-major order over Dim.
type Vector struct {
	data     []float64
	dim      []int
	fstrides []int
	offset   int
	size     int
}

// NewVector freezes a and returns a vector reading its storage in engine
// order. No element is copied.
func NewVector(a Array) (*Vector, error) {
	view, err := ViewOf(a)
	if err != nil {
		return nil, err
	}
	a.Freeze()
	return newVector(view), nil
}

func newVector(view View) *Vector {
	rank := len(view.Shape)
	ax := axes(rank)
	fstrides := make([]int, rank)
	for j, h := range ax {
		fstrides[j] = view.Strides[h]
	}
	return &Vector{
		data:     view.Data,
		dim:      ForeignShape(view.Shape),
		fstrides: fstrides,
		offset:   view.Offset,
		size:     view.Size(),
	}
}

// Len returns the element count.
func (v *Vector) Len() int { return v.size }

// Dim returns the engine shape.
func (v *Vector) Dim() []int { return append([]int(nil), v.dim...) }

// Storage returns the shared backing slice. It must not be written.
func (v *Vector) Storage() []float64 { return v.data }

// Pos returns the storage position of engine element i.
func (v *Vector) Pos(i int) int {
	p := v.offset
	for j, n := range v.dim {
		p += (i % n) * v.fstrides[j]
		i /= n
	}
	return p
}

// At returns engine element i. It panics if i is out of range.
func (v *Vector) At(i int) float64 {
	if i < 0 || i >= v.size {
		panic(errors.OutOfBounds(errors.PhaseLayout, nil, i, v.size))
	}
	return v.data[v.Pos(i)]
}

// Values copies the elements out in engine order. Engines that cannot share
// host memory use this when a vector crosses a memory boundary.
func (v *Vector) Values() []float64 {
	out := make([]float64, v.size)
	for i := range out {
		out[i] = v.data[v.Pos(i)]
	}
	return out
}
