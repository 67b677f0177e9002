package minir

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom"
)

type builtin struct {
	fn      func(in *interp, m *matched) (*Value, error)
	special func(in *interp, args []argNode) (*Value, error)
	name    string
	// formals lists the parameter names in order; "..." collects the rest.
	formals []string
}

// matched holds arguments bound to a builtin's formals.
type matched struct {
	vals map[string]*Value
	dots []arg
}

func (m *matched) get(name string) *Value { return m.vals[name] }

func (m *matched) has(name string) bool {
	_, ok := m.vals[name]
	return ok
}

func (b *builtin) call(in *interp, args []arg) (*Value, error) {
	m, err := b.match(args)
	if err != nil {
		return nil, err
	}
	return b.fn(in, m)
}

func (b *builtin) match(args []arg) (*matched, error) {
	m := &matched{vals: make(map[string]*Value, len(b.formals))}
	dots := -1
	for i, f := range b.formals {
		if f == "..." {
			dots = i
		}
	}
	used := make([]bool, len(args))
	for i, a := range args {
		if a.name == "" {
			continue
		}
		for _, f := range b.formals {
			if f == a.name && f != "..." {
				if m.has(f) {
					return nil, errorf("", "formal argument \"%s\" matched by multiple actual arguments", f)
				}
				m.vals[f] = a.val
				used[i] = true
				break
			}
		}
	}
	next := 0
	for i, a := range args {
		if used[i] {
			continue
		}
		if a.name == "" {
			for next < len(b.formals) && b.formals[next] != "..." && m.has(b.formals[next]) {
				next++
			}
			if next < len(b.formals) && b.formals[next] != "..." {
				m.vals[b.formals[next]] = a.val
				next++
				continue
			}
		}
		if dots < 0 {
			if a.name != "" {
				return nil, errorf("", "unused argument (%s = %s)", a.name, deparse(a.val))
			}
			return nil, errorf("", "unused argument (%s)", deparse(a.val))
		}
		m.dots = append(m.dots, a)
	}
	return m, nil
}

// deparse renders a short source form of v for error messages.
func deparse(v *Value) string {
	if v.Len() == 1 && isAtomic(v) {
		if v.kind == scicom.KindCharacter && !v.strIsNA(0) {
			return `"` + v.str[0] + `"`
		}
		return v.formatElem(0)
	}
	parts := make([]string, 0, v.Len())
	for i := 0; i < v.Len() && i < 6; i++ {
		parts = append(parts, v.formatElem(i))
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

var builtins map[string]*builtin

func define(name string, formals []string, fn func(in *interp, m *matched) (*Value, error)) {
	builtins[name] = &builtin{name: name, formals: formals, fn: fn}
}

func init() {
	builtins = make(map[string]*builtin)

	define("c", []string{"..."}, func(_ *interp, m *matched) (*Value, error) { return combine(m.dots) })
	define("list", []string{"..."}, func(_ *interp, m *matched) (*Value, error) {
		elems := make([]*Value, len(m.dots))
		names := make([]string, len(m.dots))
		for i, a := range m.dots {
			elems[i], names[i] = a.val, a.name
		}
		return newList(elems, names), nil
	})
	define("mean", []string{"x", "trim", "na.rm"}, builtinMean)
	define("sum", []string{"...", "na.rm"}, builtinSum)
	define("length", []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		return newInt(int32(x.Len())), nil
	})
	define("seq", []string{"from", "to", "by", "length.out"}, builtinSeq)
	define("rep", []string{"x", "times", "each", "length.out"}, builtinRep)
	define("matrix", []string{"data", "nrow", "ncol", "byrow"}, builtinMatrix)

	define("attr", []string{"x", "which", "exact"}, func(_ *interp, m *matched) (*Value, error) {
		x, which, err := attrArgs(m)
		if err != nil {
			return nil, err
		}
		if v := x.attr(which); v != nil {
			return v, nil
		}
		return null, nil
	})
	define("attr<-", []string{"x", "which", "value"}, func(_ *interp, m *matched) (*Value, error) {
		x, which, err := attrArgs(m)
		if err != nil {
			return nil, err
		}
		return setAttr(x, which, m.get("value"))
	})
	define("attributes", []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		if len(x.attrs) == 0 {
			return null, nil
		}
		elems := make([]*Value, len(x.attrs))
		names := make([]string, len(x.attrs))
		for i, a := range x.attrs {
			elems[i], names[i] = a.val, a.name
		}
		return newList(elems, names), nil
	})
	defineAttrAccessor("dim")
	defineAttrAccessor("names")
	defineAttrAccessor("class")
	// class() falls back to the implicit class.
	define("class", []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		return newString(classOf(x)...), nil
	})

	builtins["rm"] = &builtin{name: "rm", special: builtinRm}
	define("exists", []string{"x"}, func(in *interp, m *matched) (*Value, error) {
		name, err := stringArg(m, "x")
		if err != nil {
			return nil, err
		}
		_, ok := in.vars[name]
		if !ok {
			_, ok = in.builtins[name]
		}
		return newLogical(ok), nil
	})
	define("ls", nil, func(in *interp, _ *matched) (*Value, error) {
		return newString(in.names()...), nil
	})
	define("toString", []string{"x", "sep"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		sep := ", "
		if m.has("sep") {
			if sep, err = stringArg(m, "sep"); err != nil {
				return nil, err
			}
		}
		parts := make([]string, x.Len())
		for i := range parts {
			parts[i] = x.formatElem(i)
		}
		return newString(strings.Join(parts, sep)), nil
	})

	definePredicate("is.numeric", func(v *Value) bool {
		return v.kind == scicom.KindDouble || v.kind == scicom.KindInteger
	})
	definePredicate("is.integer", func(v *Value) bool { return v.kind == scicom.KindInteger })
	definePredicate("is.double", func(v *Value) bool { return v.kind == scicom.KindDouble })
	definePredicate("is.logical", func(v *Value) bool { return v.kind == scicom.KindLogical })
	definePredicate("is.character", func(v *Value) bool { return v.kind == scicom.KindCharacter })
	definePredicate("is.null", func(v *Value) bool { return v.kind == scicom.KindNull })
	definePredicate("is.function", func(v *Value) bool { return v.kind == scicom.KindFunction })
	definePredicate("is.list", func(v *Value) bool { return v.kind == scicom.KindList })

	defineCoercion("as.integer", scicom.KindInteger)
	defineCoercion("as.numeric", scicom.KindDouble)
	defineCoercion("as.double", scicom.KindDouble)
	defineCoercion("as.character", scicom.KindCharacter)
	defineCoercion("as.logical", scicom.KindLogical)

	defineConstructor("numeric", scicom.KindDouble)
	defineConstructor("integer", scicom.KindInteger)
	defineConstructor("character", scicom.KindCharacter)
	defineConstructor("logical", scicom.KindLogical)

	define("identity", []string{"x"}, func(_ *interp, m *matched) (*Value, error) { return required(m, "x") })
	define("invisible", []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		if !m.has("x") {
			return null, nil
		}
		return m.get("x"), nil
	})
	define("typeof", []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		if x.kind == scicom.KindFunction {
			return newString("builtin"), nil
		}
		return newString(x.typeName()), nil
	})
}

func required(m *matched, name string) (*Value, error) {
	v, ok := m.vals[name]
	if !ok {
		return nil, errorf("", "argument \"%s\" is missing, with no default", name)
	}
	return v, nil
}

func stringArg(m *matched, name string) (string, error) {
	v, err := required(m, name)
	if err != nil {
		return "", err
	}
	if v.kind != scicom.KindCharacter || v.Len() != 1 || v.strIsNA(0) {
		return "", errorf("", "invalid '%s' argument", name)
	}
	return v.str[0], nil
}

func flagArg(m *matched, name string) (bool, error) {
	v := m.get(name)
	if v == nil {
		return false, nil
	}
	if v.Len() != 1 || !v.isNumeric() || v.logical(0) == naInt {
		return false, errorf("", "invalid '%s' argument", name)
	}
	return v.logical(0) == 1, nil
}

func numberArg(m *matched, name string) (float64, bool, error) {
	v := m.get(name)
	if v == nil {
		return 0, false, nil
	}
	if !v.isNumeric() || v.Len() < 1 {
		return 0, false, errorf("", "invalid '%s' argument", name)
	}
	return v.float(0), true, nil
}

func definePredicate(name string, pred func(*Value) bool) {
	define(name, []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		return newLogical(pred(x)), nil
	})
}

func defineCoercion(name string, k scicom.Kind) {
	define(name, []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x := m.get("x")
		if x == nil {
			return newVector(k, 0), nil
		}
		if x.kind == scicom.KindList {
			for _, e := range x.list {
				if e.Len() != 1 {
					return nil, errorf("", "'list' object cannot be coerced to type '%s'", k)
				}
			}
		}
		out, err := coerce(x, k)
		if err != nil {
			return nil, err
		}
		if out == x {
			out = out.shallow()
		}
		out.attrs = nil
		return out, nil
	})
}

// defineConstructor defines name(length = 0), a zero-filled vector.
func defineConstructor(name string, k scicom.Kind) {
	define(name, []string{"length"}, func(_ *interp, m *matched) (*Value, error) {
		n, _, err := numberArg(m, "length")
		if err != nil {
			return nil, err
		}
		if n < 0 || math.IsNaN(n) {
			return nil, errorf("", "invalid 'length' argument")
		}
		out := newVector(k, int(n))
		for i := 0; i < out.Len(); i++ {
			switch k {
			case scicom.KindDouble:
				out.dbl[i] = 0
			case scicom.KindInteger, scicom.KindLogical:
				out.ints[i] = 0
			case scicom.KindCharacter:
				out.strNA[i] = false
			}
		}
		return out, nil
	})
}

// defineAttrAccessor defines name(x) and name<-(x, value).
func defineAttrAccessor(name string) {
	define(name, []string{"x"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		if v := x.attr(name); v != nil {
			return v, nil
		}
		return null, nil
	})
	define(name+"<-", []string{"x", "value"}, func(_ *interp, m *matched) (*Value, error) {
		x, err := required(m, "x")
		if err != nil {
			return nil, err
		}
		return setAttr(x, name, m.get("value"))
	})
}

func attrArgs(m *matched) (*Value, string, error) {
	x, err := required(m, "x")
	if err != nil {
		return nil, "", err
	}
	which, err := stringArg(m, "which")
	if err != nil {
		return nil, "", errorf("", "exactly one attribute 'which' must be given")
	}
	return x, which, nil
}

// setAttr validates and applies an attribute write. NULL removes.
func setAttr(x *Value, name string, val *Value) (*Value, error) {
	if val == nil || val.kind == scicom.KindNull {
		return x.withAttr(name, nil), nil
	}
	if x.kind == scicom.KindNull {
		return nil, errorf("", "attempt to set an attribute on NULL")
	}
	switch name {
	case "dim":
		if !val.isNumeric() {
			return nil, errorf("", "invalid second argument, must be vector or NULL")
		}
		product := 1
		for _, d := range toInts(val) {
			if d < 0 {
				return nil, errorf("", "the dims contain negative values")
			}
			product *= d
		}
		if product != x.Len() {
			return nil, errorf("", "dims [product %d] do not match the length of object [%d]", product, x.Len())
		}
		ints, err := coerce(val, scicom.KindInteger)
		if err != nil {
			return nil, err
		}
		return x.withAttr("names", nil).withAttr("dim", ints.withoutAttrs()), nil
	case "names":
		if val.Len() > x.Len() {
			return nil, errorf("", "'names' attribute [%d] must be the same length as the vector [%d]", val.Len(), x.Len())
		}
		s, err := coerce(val, scicom.KindCharacter)
		if err != nil {
			return nil, err
		}
		s = s.withoutAttrs()
		if s.Len() < x.Len() {
			s = extend(s, x.Len())
		}
		return x.withAttr("names", s), nil
	case "class":
		s, err := coerce(val, scicom.KindCharacter)
		if err != nil {
			return nil, err
		}
		return x.withAttr("class", s.withoutAttrs()), nil
	}
	return x.withAttr(name, val), nil
}

func classOf(x *Value) []string {
	if c := x.attr("class"); c != nil {
		return append([]string(nil), c.str...)
	}
	if d := x.dim(); d != nil {
		if len(d) == 2 {
			return []string{"matrix", "array"}
		}
		return []string{"array"}
	}
	switch x.kind {
	case scicom.KindDouble:
		return []string{"numeric"}
	case scicom.KindFunction:
		return []string{"function"}
	}
	return []string{x.typeName()}
}

func combine(args []arg) (*Value, error) {
	kind := scicom.KindNull
	named := false
	for _, a := range args {
		switch a.val.kind {
		case scicom.KindFunction, scicom.KindEnvironment, scicom.KindOther:
			kind = scicom.KindList
		default:
			kind = higher(kind, a.val.kind)
		}
		if a.name != "" || a.val.names() != nil {
			named = true
		}
	}
	if kind == scicom.KindNull {
		return null, nil
	}
	out := newVector(kind, 0)
	var names []string
	for _, a := range args {
		if a.val.kind == scicom.KindFunction {
			out.list = append(out.list, a.val)
			names = append(names, a.name)
			continue
		}
		src, err := coerce(a.val, kind)
		if err != nil {
			return nil, err
		}
		start := out.Len()
		out = extend(out.withoutAttrs(), start+src.Len())
		for i := 0; i < src.Len(); i++ {
			setElem(out, start+i, src, i)
		}
		inner := a.val.names()
		for i := 0; i < src.Len(); i++ {
			var n string
			switch {
			case inner != nil && a.name != "":
				n = a.name + "." + inner[i]
			case inner != nil:
				n = inner[i]
			case a.name != "" && src.Len() == 1:
				n = a.name
			case a.name != "":
				n = a.name + strconv.Itoa(i+1)
			}
			names = append(names, n)
		}
	}
	out = out.withoutAttrs()
	if named && hasNames(names) {
		out = out.withAttr("names", newString(names...))
	}
	return out, nil
}

func numericValues(name string, x *Value, naRm bool) ([]float64, bool, error) {
	if !x.isNumeric() {
		return nil, false, errorf("", "argument is not numeric or logical")
	}
	xs := make([]float64, 0, x.Len())
	for i := 0; i < x.Len(); i++ {
		f := x.float(i)
		if math.IsNaN(f) {
			if naRm {
				continue
			}
			if isNA(f) {
				return nil, true, nil
			}
		}
		xs = append(xs, f)
	}
	return xs, false, nil
}

func builtinMean(_ *interp, m *matched) (*Value, error) {
	x, err := required(m, "x")
	if err != nil {
		return nil, err
	}
	naRm, err := flagArg(m, "na.rm")
	if err != nil {
		return nil, err
	}
	trim, _, err := numberArg(m, "trim")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(trim) || trim < 0 {
		return nil, errorf("", "'trim' must be numeric of length one")
	}
	xs, na, err := numericValues("mean", x, naRm)
	if err != nil {
		return nil, err
	}
	if na {
		return newDouble(naDouble), nil
	}
	n := len(xs)
	if n == 0 {
		return newDouble(nan), nil
	}
	if trim > 0 {
		sort.Float64s(xs)
		if trim >= 0.5 {
			return newDouble(median(xs)), nil
		}
		lo := int(math.Floor(float64(n) * trim))
		xs = xs[lo : n-lo]
	}
	sum := 0.0
	for _, f := range xs {
		sum += f
	}
	return newDouble(sum / float64(len(xs))), nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func builtinSum(_ *interp, m *matched) (*Value, error) {
	naRm, err := flagArg(m, "na.rm")
	if err != nil {
		return nil, err
	}
	integer := true
	total := 0.0
	for _, a := range m.dots {
		if a.val.kind == scicom.KindDouble {
			integer = false
		}
		xs, na, err := numericValues("sum", a.val, naRm)
		if err != nil {
			return nil, errorf("", "invalid 'type' (%s) of argument", a.val.typeName())
		}
		if na {
			if integer {
				return newVector(scicom.KindInteger, 1), nil
			}
			return newDouble(naDouble), nil
		}
		for _, f := range xs {
			total += f
		}
	}
	if integer && math.Abs(total) <= math.MaxInt32 {
		return newInt(int32(total)), nil
	}
	return newDouble(total), nil
}

func builtinSeq(_ *interp, m *matched) (*Value, error) {
	from, hasFrom, err := numberArg(m, "from")
	if err != nil {
		return nil, err
	}
	to, hasTo, err := numberArg(m, "to")
	if err != nil {
		return nil, err
	}
	by, hasBy, err := numberArg(m, "by")
	if err != nil {
		return nil, err
	}
	n, hasN, err := numberArg(m, "length.out")
	if err != nil {
		return nil, err
	}
	switch {
	case hasFrom && !hasTo && !hasBy && !hasN:
		if m.get("from").Len() > 1 {
			return colon(newInt(1), newInt(int32(m.get("from").Len())))
		}
		return colon(newInt(1), newDouble(from))
	case hasN:
		if !hasFrom {
			from = 1
		}
		count := int(math.Ceil(n))
		out := make([]float64, count)
		switch {
		case hasTo && count > 1:
			by = (to - from) / float64(count-1)
		case !hasBy:
			by = 1
		}
		for i := range out {
			out[i] = from + by*float64(i)
		}
		return newDouble(out...), nil
	case !hasBy:
		if !hasFrom {
			from = 1
		}
		if !hasTo {
			to = 1
		}
		return colon(newDouble(from), newDouble(to))
	}
	if !hasFrom {
		from = 1
	}
	if !hasTo {
		to = 1
	}
	if by == 0 {
		if from == to {
			return newDouble(from), nil
		}
		return nil, errorf("", "invalid '(to - from)/by' in seq(.)")
	}
	if (to-from)/by < 0 {
		return nil, errorf("", "wrong sign in 'by' argument")
	}
	count := int(math.Floor((to-from)/by+1e-10)) + 1
	out := make([]float64, count)
	for i := range out {
		out[i] = from + by*float64(i)
	}
	if f := m.get("from"); f != nil && f.kind == scicom.KindInteger && m.get("by").kind == scicom.KindInteger {
		return coerce(newDouble(out...), scicom.KindInteger)
	}
	return newDouble(out...), nil
}

func builtinRep(_ *interp, m *matched) (*Value, error) {
	x, err := required(m, "x")
	if err != nil {
		return nil, err
	}
	times, each := 1, 1
	if v, ok, err := numberArg(m, "times"); err != nil {
		return nil, err
	} else if ok {
		times = int(v)
	}
	if v, ok, err := numberArg(m, "each"); err != nil {
		return nil, err
	} else if ok {
		each = int(v)
	}
	if times < 0 || each < 0 {
		return nil, errorf("", "invalid 'times' argument")
	}
	var positions []int
	for t := 0; t < times; t++ {
		for i := 0; i < x.Len(); i++ {
			for e := 0; e < each; e++ {
				positions = append(positions, i)
			}
		}
	}
	if v, ok, err := numberArg(m, "length.out"); err != nil {
		return nil, err
	} else if ok && x.Len() > 0 {
		n := int(v)
		grown := make([]int, n)
		for i := range grown {
			if len(positions) > 0 {
				grown[i] = positions[i%len(positions)]
			} else {
				grown[i] = i % x.Len()
			}
		}
		positions = grown
	}
	out := pick(x.withoutAttrs(), positions)
	return out, nil
}

func builtinMatrix(_ *interp, m *matched) (*Value, error) {
	data := m.get("data")
	if data == nil {
		data = newVector(scicom.KindLogical, 1)
	}
	if !isAtomic(data) && data.kind != scicom.KindList {
		return nil, errorf("", "'data' must be of a vector type, was '%s'", data.typeName())
	}
	nrowF, hasRow, err := numberArg(m, "nrow")
	if err != nil {
		return nil, err
	}
	ncolF, hasCol, err := numberArg(m, "ncol")
	if err != nil {
		return nil, err
	}
	byrow, err := flagArg(m, "byrow")
	if err != nil {
		return nil, err
	}
	n := data.Len()
	nrow, ncol := int(nrowF), int(ncolF)
	switch {
	case !hasRow && !hasCol:
		nrow, ncol = n, 1
	case !hasCol:
		ncol = int(math.Ceil(float64(n) / float64(max(nrow, 1))))
	case !hasRow:
		nrow = int(math.Ceil(float64(n) / float64(max(ncol, 1))))
	}
	if nrow < 0 || ncol < 0 {
		return nil, errorf("", "invalid matrix extents")
	}
	if n == 0 && nrow*ncol > 0 {
		return nil, errorf("", "'data' must be of a vector type, was 'NULL'")
	}
	out := newVector(data.kind, nrow*ncol)
	for r := 0; r < nrow; r++ {
		for c := 0; c < ncol; c++ {
			src := c*nrow + r
			if byrow {
				src = r*ncol + c
			}
			setElem(out, c*nrow+r, data, src%n)
		}
	}
	return out.withAttr("dim", newInt(int32(nrow), int32(ncol))), nil
}

// builtinRm removes bindings given as bare names, strings or list=.
func builtinRm(in *interp, args []argNode) (*Value, error) {
	var names []string
	for _, a := range args {
		switch {
		case a.name == "list":
			v, err := in.eval(a.val)
			if err != nil {
				return nil, err
			}
			if v.kind != scicom.KindCharacter && v.kind != scicom.KindNull {
				return nil, errorf("", "invalid first argument")
			}
			names = append(names, v.str...)
		case a.name != "":
			return nil, errorf("", "unused argument (%s)", a.name)
		default:
			switch n := a.val.(type) {
			case *ident:
				names = append(names, n.name)
			case *strLit:
				names = append(names, n.v)
			default:
				return nil, errorf("", "... must contain names or character strings")
			}
		}
	}
	for _, name := range names {
		delete(in.vars, name)
	}
	return null, nil
}
