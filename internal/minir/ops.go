package minir

import (
	"math"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom"
)

var kindRank = map[scicom.Kind]int{
	scicom.KindNull:      0,
	scicom.KindLogical:   1,
	scicom.KindInteger:   2,
	scicom.KindDouble:    3,
	scicom.KindCharacter: 4,
	scicom.KindList:      5,
}

func higher(a, b scicom.Kind) scicom.Kind {
	if kindRank[b] > kindRank[a] {
		return b
	}
	return a
}

// coerce converts an atomic vector to kind k, keeping attributes.
func coerce(v *Value, k scicom.Kind) (*Value, error) {
	if v.kind == k {
		return v, nil
	}
	if v.kind == scicom.KindFunction {
		return nil, errorf("", "cannot coerce type 'closure' to vector of type '%s'", k)
	}
	n := v.Len()
	var out *Value
	switch k {
	case scicom.KindDouble:
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = v.float(i)
		}
		out = newDouble(xs...)
	case scicom.KindInteger, scicom.KindLogical:
		xs := make([]int32, n)
		for i := range xs {
			if k == scicom.KindLogical {
				xs[i] = v.logical(i)
			} else {
				xs[i] = v.integer(i)
			}
		}
		out = &Value{kind: k, ints: xs}
	case scicom.KindCharacter:
		out = newString(make([]string, n)...)
		for i := 0; i < n; i++ {
			if v.elemIsNA(i) {
				if out.strNA == nil {
					out.strNA = make([]bool, n)
				}
				out.strNA[i] = true
				continue
			}
			out.str[i] = v.formatElem(i)
		}
	case scicom.KindList:
		elems := make([]*Value, n)
		for i := range elems {
			elems[i] = v.element(i)
		}
		out = newList(elems, nil)
	default:
		return nil, errorf("", "cannot coerce type '%s' to vector of type '%s'", v.typeName(), k)
	}
	out.attrs = append([]attr(nil), v.attrs...)
	return out, nil
}

func (v *Value) elemIsNA(i int) bool {
	switch v.kind {
	case scicom.KindDouble:
		return isNA(v.double(i))
	case scicom.KindInteger, scicom.KindLogical:
		return v.ints[i] == naInt
	case scicom.KindCharacter:
		return v.strIsNA(i)
	}
	return false
}

func (v *Value) float(i int) float64 {
	switch v.kind {
	case scicom.KindDouble:
		return v.double(i)
	case scicom.KindInteger, scicom.KindLogical:
		if v.ints[i] == naInt {
			return naDouble
		}
		return float64(v.ints[i])
	case scicom.KindCharacter:
		if v.strIsNA(i) {
			return naDouble
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str[i]), 64)
		if err != nil {
			return naDouble
		}
		return f
	case scicom.KindList:
		if e := v.list[i]; e.Len() == 1 && e.kind != scicom.KindList {
			return e.float(0)
		}
	}
	return naDouble
}

func (v *Value) integer(i int) int32 {
	switch v.kind {
	case scicom.KindInteger, scicom.KindLogical:
		return v.ints[i]
	}
	f := v.float(i)
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt32+1 || f <= math.MinInt32 {
		return naInt
	}
	return int32(f)
}

func (v *Value) logical(i int) int32 {
	switch v.kind {
	case scicom.KindLogical:
		return v.ints[i]
	case scicom.KindCharacter:
		if v.strIsNA(i) {
			return naInt
		}
		switch v.str[i] {
		case "TRUE", "true", "T", "True":
			return 1
		case "FALSE", "false", "F", "False":
			return 0
		}
		return naInt
	}
	f := v.float(i)
	if math.IsNaN(f) {
		return naInt
	}
	if f != 0 {
		return 1
	}
	return 0
}

// element returns element i as a length-one vector, or the list element.
func (v *Value) element(i int) *Value {
	switch v.kind {
	case scicom.KindDouble:
		return newDouble(v.double(i))
	case scicom.KindInteger, scicom.KindLogical:
		return &Value{kind: v.kind, ints: []int32{v.ints[i]}}
	case scicom.KindCharacter:
		out := newString(v.str[i])
		if v.strIsNA(i) {
			out.strNA = []bool{true}
		}
		return out
	case scicom.KindList:
		return v.list[i]
	}
	return null
}

func unary(op string, x *Value) (*Value, error) {
	switch op {
	case "!":
		if !x.isNumeric() {
			return nil, errorf("", "invalid argument type")
		}
		out := make([]int32, x.Len())
		for i := range out {
			switch b := x.logical(i); b {
			case naInt:
				out[i] = naInt
			default:
				out[i] = 1 - b
			}
		}
		return keepAttrs(&Value{kind: scicom.KindLogical, ints: out}, x), nil
	case "+", "-":
		if !x.isNumeric() {
			return nil, errorf("", "invalid argument to unary operator")
		}
		if op == "+" {
			return x, nil
		}
		if x.kind == scicom.KindDouble {
			xs := x.doubles()
			out := make([]float64, len(xs))
			for i, f := range xs {
				if isNA(f) {
					out[i] = naDouble
				} else {
					out[i] = -f
				}
			}
			return keepAttrs(newDouble(out...), x), nil
		}
		out := make([]int32, x.Len())
		for i := range out {
			if x.ints[i] == naInt {
				out[i] = naInt
			} else {
				out[i] = -x.ints[i]
			}
		}
		return keepAttrs(newInt(out...), x), nil
	}
	return nil, errorf("", "unknown operator %s", op)
}

func keepAttrs(out, from *Value) *Value {
	out.attrs = append([]attr(nil), from.attrs...)
	return out
}

func binary(op string, l, r *Value) (*Value, error) {
	switch op {
	case ":":
		return colon(l, r)
	case "==", "!=", "<", ">", "<=", ">=":
		return compare(op, l, r)
	case "&", "|":
		return elementwiseLogical(op, l, r)
	}
	if !l.isNumeric() || !r.isNumeric() {
		return nil, errorf("", "non-numeric argument to binary operator")
	}
	n := recycledLen(l, r)
	if (op == "+" || op == "-" || op == "*") && l.kind != scicom.KindDouble && r.kind != scicom.KindDouble {
		out := make([]int32, n)
		for i := range out {
			a, b := l.integer(i%l.Len()), r.integer(i%r.Len())
			if a == naInt || b == naInt {
				out[i] = naInt
				continue
			}
			var res int64
			switch op {
			case "+":
				res = int64(a) + int64(b)
			case "-":
				res = int64(a) - int64(b)
			case "*":
				res = int64(a) * int64(b)
			}
			if res > math.MaxInt32 || res <= math.MinInt32 {
				out[i] = naInt
			} else {
				out[i] = int32(res)
			}
		}
		return binaryAttrs(newInt(out...), l, r), nil
	}
	out := make([]float64, n)
	for i := range out {
		a, b := l.float(i%l.Len()), r.float(i%r.Len())
		if isNA(a) || isNA(b) {
			out[i] = naDouble
			continue
		}
		switch op {
		case "+":
			out[i] = a + b
		case "-":
			out[i] = a - b
		case "*":
			out[i] = a * b
		case "/":
			out[i] = a / b
		case "^":
			out[i] = math.Pow(a, b)
		default:
			return nil, errorf("", "unknown operator %s", op)
		}
	}
	return binaryAttrs(newDouble(out...), l, r), nil
}

func recycledLen(l, r *Value) int {
	if l.Len() == 0 || r.Len() == 0 {
		return 0
	}
	return max(l.Len(), r.Len())
}

// binaryAttrs copies attributes from the operand whose length matches the
// result, preferring the left.
func binaryAttrs(out, l, r *Value) *Value {
	switch {
	case l.Len() == out.Len() && len(l.attrs) > 0:
		return keepAttrs(out, l)
	case r.Len() == out.Len():
		return keepAttrs(out, r)
	}
	return out
}

func compare(op string, l, r *Value) (*Value, error) {
	if !isAtomic(l) || !isAtomic(r) {
		return nil, errorf("", "comparison (%s) is possible only for atomic types", op)
	}
	n := recycledLen(l, r)
	out := make([]int32, n)
	text := l.kind == scicom.KindCharacter || r.kind == scicom.KindCharacter
	for i := range out {
		li, ri := i%l.Len(), i%r.Len()
		if l.elemIsNA(li) || r.elemIsNA(ri) {
			out[i] = naInt
			continue
		}
		var c int
		if text {
			c = strings.Compare(l.formatElem(li), r.formatElem(ri))
		} else {
			a, b := l.float(li), r.float(ri)
			if math.IsNaN(a) || math.IsNaN(b) {
				out[i] = naInt
				continue
			}
			switch {
			case a < b:
				c = -1
			case a > b:
				c = 1
			}
		}
		var ok bool
		switch op {
		case "==":
			ok = c == 0
		case "!=":
			ok = c != 0
		case "<":
			ok = c < 0
		case ">":
			ok = c > 0
		case "<=":
			ok = c <= 0
		case ">=":
			ok = c >= 0
		}
		if ok {
			out[i] = 1
		}
	}
	return binaryAttrs(&Value{kind: scicom.KindLogical, ints: out}, l, r), nil
}

func isAtomic(v *Value) bool {
	switch v.kind {
	case scicom.KindNull, scicom.KindLogical, scicom.KindInteger, scicom.KindDouble, scicom.KindCharacter:
		return true
	}
	return false
}

func elementwiseLogical(op string, l, r *Value) (*Value, error) {
	if !l.isNumeric() || !r.isNumeric() {
		return nil, errorf("", "operations are possible only for numeric, logical or complex types")
	}
	n := recycledLen(l, r)
	out := make([]int32, n)
	for i := range out {
		out[i] = shortCircuit(op+op, l.logical(i%l.Len()), r.logical(i%r.Len())).ints[0]
	}
	return binaryAttrs(&Value{kind: scicom.KindLogical, ints: out}, l, r), nil
}

func scalarLogical(op string, v *Value) (int32, error) {
	if v.Len() == 0 || !(v.isNumeric() || v.kind == scicom.KindCharacter) {
		return 0, errorf("", "invalid 'x' type in 'x %s y'", op)
	}
	return v.logical(0), nil
}

func shortCircuit(op string, a, b int32) *Value {
	switch op {
	case "&&":
		if a == 0 || b == 0 {
			return newLogical(false)
		}
	default:
		if a == 1 || b == 1 {
			return newLogical(true)
		}
	}
	if a == naInt || b == naInt {
		return newVector(scicom.KindLogical, 1)
	}
	return newLogical(op == "&&")
}

func colon(l, r *Value) (*Value, error) {
	if l.Len() == 0 || r.Len() == 0 {
		return nil, errorf("", "argument of length 0")
	}
	from, to := l.float(0), r.float(0)
	if math.IsNaN(from) || math.IsNaN(to) {
		return nil, errorf("", "NA/NaN argument")
	}
	n := int(math.Floor(math.Abs(to-from)+1e-10)) + 1
	step := 1.0
	if to < from {
		step = -1
	}
	if from == math.Trunc(from) && math.Abs(from) <= math.MaxInt32 && math.Abs(to) <= math.MaxInt32 {
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(from + step*float64(i))
		}
		return newInt(out...), nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return newDouble(out...), nil
}
