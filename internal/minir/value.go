package minir

import (
	"math"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/layout"
)

const naInt = math.MinInt32

// naDouble is R's NA_real_: a quiet NaN with payload 1954.
var naDouble = math.Float64frombits(0x7FF00000000007A2)

func isNA(f float64) bool { return math.Float64bits(f) == 0x7FF00000000007A2 }

type attr struct {
	val  *Value
	name string
}

// Value is an engine value. The zero value is not valid; use the
// constructors.
type Value struct {
	fn    *builtin
	view  *layout.Vector
	dbl   []float64
	ints  []int32 // integer and logical storage
	str   []string
	strNA []bool
	list  []*Value
	attrs []attr
	kind  scicom.Kind
}

var _ scicom.Value = (*Value)(nil)

var null = &Value{kind: scicom.KindNull}

func newDouble(xs ...float64) *Value { return &Value{kind: scicom.KindDouble, dbl: xs} }
func newInt(xs ...int32) *Value      { return &Value{kind: scicom.KindInteger, ints: xs} }
func newString(xs ...string) *Value  { return &Value{kind: scicom.KindCharacter, str: xs} }
func newFunc(b *builtin) *Value      { return &Value{kind: scicom.KindFunction, fn: b} }

func newLogical(xs ...bool) *Value {
	ints := make([]int32, len(xs))
	for i, x := range xs {
		if x {
			ints[i] = 1
		}
	}
	return &Value{kind: scicom.KindLogical, ints: ints}
}

func newList(elems []*Value, names []string) *Value {
	v := &Value{kind: scicom.KindList, list: elems}
	if hasNames(names) {
		v = v.withAttr("names", newString(names...))
	}
	return v
}

func hasNames(names []string) bool {
	for _, n := range names {
		if n != "" {
			return true
		}
	}
	return false
}

// newVector returns an empty vector of kind k with n NA elements.
func newVector(k scicom.Kind, n int) *Value {
	switch k {
	case scicom.KindDouble:
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = naDouble
		}
		return newDouble(xs...)
	case scicom.KindInteger, scicom.KindLogical:
		xs := make([]int32, n)
		for i := range xs {
			xs[i] = naInt
		}
		return &Value{kind: k, ints: xs}
	case scicom.KindCharacter:
		v := newString(make([]string, n)...)
		v.strNA = make([]bool, n)
		for i := range v.strNA {
			v.strNA[i] = true
		}
		return v
	case scicom.KindList:
		elems := make([]*Value, n)
		for i := range elems {
			elems[i] = null
		}
		return newList(elems, nil)
	default:
		return null
	}
}

// fromVector wraps a host view as a read-only double array.
func fromVector(vec *layout.Vector) *Value {
	v := &Value{kind: scicom.KindDouble, view: vec}
	if dim := vec.Dim(); len(dim) > 0 {
		ints := make([]int32, len(dim))
		for i, d := range dim {
			ints[i] = int32(d)
		}
		v.attrs = []attr{{name: "dim", val: newInt(ints...)}}
	}
	return v
}

func (v *Value) Kind() scicom.Kind { return v.kind }

func (v *Value) Len() int {
	switch v.kind {
	case scicom.KindDouble:
		if v.view != nil {
			return v.view.Len()
		}
		return len(v.dbl)
	case scicom.KindInteger, scicom.KindLogical:
		return len(v.ints)
	case scicom.KindCharacter:
		return len(v.str)
	case scicom.KindList:
		return len(v.list)
	case scicom.KindFunction:
		return 1
	default:
		return 0
	}
}

func (v *Value) At(i int) any {
	switch v.kind {
	case scicom.KindDouble:
		f := v.double(i)
		if isNA(f) {
			return nil
		}
		return f
	case scicom.KindInteger:
		if v.ints[i] == naInt {
			return nil
		}
		return v.ints[i]
	case scicom.KindLogical:
		if v.ints[i] == naInt {
			return nil
		}
		return v.ints[i] != 0
	case scicom.KindCharacter:
		if v.strIsNA(i) {
			return nil
		}
		return v.str[i]
	case scicom.KindList:
		return scicom.Value(v.list[i])
	default:
		return nil
	}
}

func (v *Value) double(i int) float64 {
	if v.view != nil {
		return v.view.At(i)
	}
	return v.dbl[i]
}

func (v *Value) strIsNA(i int) bool {
	return v.strNA != nil && v.strNA[i]
}

// doubles returns the elements as float64, materializing a view.
func (v *Value) doubles() []float64 {
	if v.view != nil {
		return v.view.Values()
	}
	return v.dbl
}

func (v *Value) isNumeric() bool {
	return v.kind == scicom.KindDouble || v.kind == scicom.KindInteger || v.kind == scicom.KindLogical
}

func (v *Value) attr(name string) *Value {
	for _, a := range v.attrs {
		if a.name == name {
			return a.val
		}
	}
	return nil
}

// clone copies v with fresh storage slices. Views are materialized.
func (v *Value) clone() *Value {
	out := &Value{kind: v.kind, fn: v.fn}
	switch v.kind {
	case scicom.KindDouble:
		out.dbl = append([]float64(nil), v.doubles()...)
	case scicom.KindInteger, scicom.KindLogical:
		out.ints = append([]int32(nil), v.ints...)
	case scicom.KindCharacter:
		out.str = append([]string(nil), v.str...)
		if v.strNA != nil {
			out.strNA = append([]bool(nil), v.strNA...)
		}
	case scicom.KindList:
		out.list = append([]*Value(nil), v.list...)
	}
	out.attrs = append([]attr(nil), v.attrs...)
	return out
}

// shallow copies v sharing element storage, including views.
func (v *Value) shallow() *Value {
	out := *v
	out.attrs = append([]attr(nil), v.attrs...)
	return &out
}

// withAttr returns a copy of v with attribute name set; NULL removes it.
func (v *Value) withAttr(name string, val *Value) *Value {
	out := v.shallow()
	for i, a := range out.attrs {
		if a.name == name {
			if val == nil || val.kind == scicom.KindNull {
				out.attrs = append(out.attrs[:i], out.attrs[i+1:]...)
			} else {
				out.attrs[i].val = val
			}
			return out
		}
	}
	if val != nil && val.kind != scicom.KindNull {
		out.attrs = append(out.attrs, attr{name: name, val: val})
	}
	return out
}

func (v *Value) withoutAttrs() *Value {
	out := v.shallow()
	out.attrs = nil
	return out
}

func (v *Value) dim() []int {
	d := v.attr("dim")
	if d == nil {
		return nil
	}
	return toInts(d)
}

func (v *Value) names() []string {
	n := v.attr("names")
	if n == nil {
		return nil
	}
	return n.str
}

func toInts(v *Value) []int {
	out := make([]int, v.Len())
	for i := range out {
		switch v.kind {
		case scicom.KindDouble:
			out[i] = int(v.double(i))
		case scicom.KindInteger, scicom.KindLogical:
			out[i] = int(v.ints[i])
		case scicom.KindCharacter:
			n, _ := strconv.Atoi(v.str[i])
			out[i] = n
		}
	}
	return out
}

// typeName is typeof(v).
func (v *Value) typeName() string {
	return v.kind.String()
}

// formatElem renders element i the way as.character does.
func (v *Value) formatElem(i int) string {
	switch v.kind {
	case scicom.KindDouble:
		return formatDouble(v.double(i))
	case scicom.KindInteger:
		if v.ints[i] == naInt {
			return "NA"
		}
		return strconv.Itoa(int(v.ints[i]))
	case scicom.KindLogical:
		switch v.ints[i] {
		case naInt:
			return "NA"
		case 0:
			return "FALSE"
		default:
			return "TRUE"
		}
	case scicom.KindCharacter:
		if v.strIsNA(i) {
			return "NA"
		}
		return v.str[i]
	case scicom.KindList:
		e := v.list[i]
		parts := make([]string, e.Len())
		for k := range parts {
			parts[k] = e.formatElem(k)
		}
		if e.Len() == 1 {
			return parts[0]
		}
		return "c(" + strings.Join(parts, ", ") + ")"
	case scicom.KindFunction:
		return "function"
	default:
		return "NULL"
	}
}

func formatDouble(f float64) string {
	switch {
	case isNA(f):
		return "NA"
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'g', 15, 64)
	}
}
