package minir

import (
	"github.com/mimimalizam/scicom"
)

// subscript resolves one index vector against an extent of n into zero-based
// positions. Missing or out-of-range reads resolve to -1 unless extend is
// set, in which case positions past n are returned as-is.
func subscript(s *Value, n int, names []string, extend bool) ([]int, error) {
	if s == nil {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	switch s.kind {
	case scicom.KindNull:
		return nil, nil
	case scicom.KindLogical:
		m := max(n, s.Len())
		var out []int
		if s.Len() == 0 {
			return nil, nil
		}
		for i := 0; i < m; i++ {
			switch s.ints[i%s.Len()] {
			case 0:
			case naInt:
				out = append(out, -1)
			default:
				if i >= n && !extend {
					out = append(out, -1)
				} else {
					out = append(out, i)
				}
			}
		}
		return out, nil
	case scicom.KindCharacter:
		out := make([]int, s.Len())
		for i := range out {
			out[i] = -1
			for k, name := range names {
				if name == s.str[i] {
					out[i] = k
					break
				}
			}
		}
		return out, nil
	case scicom.KindInteger, scicom.KindDouble:
		var (
			pos, neg []int
			na       bool
		)
		for i := 0; i < s.Len(); i++ {
			k := s.integer(i)
			switch {
			case k == naInt:
				na = true
				pos = append(pos, -1)
			case k > 0:
				pos = append(pos, int(k)-1)
			case k < 0:
				neg = append(neg, int(-k)-1)
			}
		}
		if len(neg) > 0 {
			if len(pos) > 0 || na {
				return nil, errorf("", "can't mix positive and negative subscripts")
			}
			drop := make(map[int]bool, len(neg))
			for _, k := range neg {
				drop[k] = true
			}
			out := make([]int, 0, n)
			for i := 0; i < n; i++ {
				if !drop[i] {
					out = append(out, i)
				}
			}
			return out, nil
		}
		if !extend {
			for i, p := range pos {
				if p >= n {
					pos[i] = -1
				}
			}
		}
		return pos, nil
	}
	return nil, errorf("", "invalid subscript type '%s'", s.typeName())
}

func notSubsettable(v *Value) error {
	return errorf("", "object of type '%s' is not subsettable", v.typeName())
}

// pick gathers the elements at positions; -1 yields NA.
func pick(v *Value, positions []int) *Value {
	out := newVector(v.kind, len(positions))
	for i, p := range positions {
		if p >= 0 {
			setElem(out, i, v, p)
		}
	}
	if names := v.names(); names != nil {
		sub := make([]string, len(positions))
		for i, p := range positions {
			if p >= 0 {
				sub[i] = names[p]
			} else if v.kind != scicom.KindList {
				sub[i] = "NA"
			}
		}
		out = out.withAttr("names", newString(sub...))
	}
	return out
}

// setElem copies element j of src into position i of dst. Both share kind.
func setElem(dst *Value, i int, src *Value, j int) {
	switch dst.kind {
	case scicom.KindDouble:
		dst.dbl[i] = src.float(j)
	case scicom.KindInteger:
		dst.ints[i] = src.integer(j)
	case scicom.KindLogical:
		dst.ints[i] = src.logical(j)
	case scicom.KindCharacter:
		if src.elemIsNA(j) {
			if dst.strNA == nil {
				dst.strNA = make([]bool, len(dst.str))
			}
			dst.strNA[i] = true
			return
		}
		dst.str[i] = src.formatElem(j)
		if dst.strNA != nil {
			dst.strNA[i] = false
		}
	case scicom.KindList:
		if src.kind == scicom.KindList {
			dst.list[i] = src.list[j]
		} else {
			dst.list[i] = src.element(j)
		}
	}
}

func index1(obj *Value, idx []*Value) (*Value, error) {
	switch obj.kind {
	case scicom.KindNull:
		return null, nil
	case scicom.KindFunction, scicom.KindEnvironment, scicom.KindOther:
		return nil, notSubsettable(obj)
	}
	switch len(idx) {
	case 0:
		return obj, nil
	case 1:
		if idx[0] == nil {
			return obj, nil
		}
		pos, err := subscript(idx[0], obj.Len(), obj.names(), false)
		if err != nil {
			return nil, err
		}
		return pick(obj, pos), nil
	}
	dim := obj.dim()
	if len(dim) != len(idx) {
		return nil, errorf("", "incorrect number of dimensions")
	}
	per := make([][]int, len(dim))
	for k, s := range idx {
		pos, err := subscript(s, dim[k], nil, false)
		if err != nil {
			return nil, err
		}
		for _, p := range pos {
			if p < 0 {
				return nil, errorf("", "subscript out of bounds")
			}
		}
		per[k] = pos
	}
	offsets := arrayOffsets(dim, per)
	out := newVector(obj.kind, len(offsets))
	for i, off := range offsets {
		setElem(out, i, obj, off)
	}
	var kept []int32
	for _, p := range per {
		if len(p) != 1 {
			kept = append(kept, int32(len(p)))
		}
	}
	if len(kept) > 1 {
		out = out.withAttr("dim", newInt(kept...))
	}
	return out, nil
}

// arrayOffsets enumerates linear offsets of the selected cells, first axis
// fastest.
func arrayOffsets(dim []int, per [][]int) []int {
	total := 1
	for _, p := range per {
		total *= len(p)
	}
	if total == 0 {
		return nil
	}
	strides := make([]int, len(dim))
	s := 1
	for k, d := range dim {
		strides[k] = s
		s *= d
	}
	out := make([]int, 0, total)
	counter := make([]int, len(per))
	for {
		off := 0
		for k, c := range counter {
			off += per[k][c] * strides[k]
		}
		out = append(out, off)
		k := 0
		for ; k < len(counter); k++ {
			counter[k]++
			if counter[k] < len(per[k]) {
				break
			}
			counter[k] = 0
		}
		if k == len(counter) {
			return out
		}
	}
}

// singleOffset resolves a [[ subscript list to one linear offset.
func singleOffset(obj *Value, idx []*Value) (int, error) {
	if len(idx) == 1 {
		s := idx[0]
		if s == nil || s.Len() != 1 {
			return 0, errorf("", "subscript out of bounds")
		}
		pos, err := subscript(s, obj.Len(), obj.names(), false)
		if err != nil {
			return 0, err
		}
		if len(pos) != 1 || pos[0] < 0 {
			return 0, errorf("", "subscript out of bounds")
		}
		return pos[0], nil
	}
	dim := obj.dim()
	if len(dim) != len(idx) {
		return 0, errorf("", "incorrect number of subscripts")
	}
	per := make([][]int, len(dim))
	for k, s := range idx {
		if s == nil || s.Len() != 1 {
			return 0, errorf("", "subscript out of bounds")
		}
		pos, err := subscript(s, dim[k], nil, false)
		if err != nil {
			return 0, err
		}
		if len(pos) != 1 || pos[0] < 0 {
			return 0, errorf("", "subscript out of bounds")
		}
		per[k] = pos
	}
	return arrayOffsets(dim, per)[0], nil
}

func index2(obj *Value, idx []*Value) (*Value, error) {
	switch obj.kind {
	case scicom.KindNull:
		return null, nil
	case scicom.KindFunction, scicom.KindEnvironment, scicom.KindOther:
		return nil, notSubsettable(obj)
	}
	if obj.kind == scicom.KindList && len(idx) == 1 && idx[0] != nil && idx[0].kind == scicom.KindCharacter {
		v, _ := listGet(obj, idx[0].formatElem(0))
		return v, nil
	}
	off, err := singleOffset(obj, idx)
	if err != nil {
		return nil, err
	}
	return obj.element(off), nil
}

func listGet(obj *Value, name string) (*Value, bool) {
	for i, n := range obj.names() {
		if n == name {
			return obj.list[i], true
		}
	}
	return null, false
}

func dollar(obj *Value, name string) (*Value, error) {
	switch obj.kind {
	case scicom.KindNull:
		return null, nil
	case scicom.KindList:
		if v, ok := listGet(obj, name); ok {
			return v, nil
		}
		// unique partial match
		var hit *Value
		for i, n := range obj.names() {
			if len(n) > len(name) && n[:len(name)] == name {
				if hit != nil {
					return null, nil
				}
				hit = obj.list[i]
			}
		}
		if hit != nil {
			return hit, nil
		}
		return null, nil
	}
	return nil, errorf("", "$ operator is invalid for atomic vectors")
}

// extend returns a copy of v grown to n elements, padding with NA.
func extend(v *Value, n int) *Value {
	out := newVector(v.kind, n)
	for i := 0; i < v.Len(); i++ {
		setElem(out, i, v, i)
	}
	out.attrs = append([]attr(nil), v.attrs...)
	if names := v.names(); names != nil && n > len(names) {
		grown := append(append([]string(nil), names...), make([]string, n-len(names))...)
		out = out.withAttr("names", newString(grown...))
	}
	return out
}

func assignIndex1(cur *Value, idx []*Value, val *Value) (*Value, error) {
	switch cur.kind {
	case scicom.KindFunction, scicom.KindEnvironment, scicom.KindOther:
		return nil, notSubsettable(cur)
	}
	if val.Len() == 0 {
		return nil, errorf("", "replacement has length zero")
	}
	kind := higher(cur.kind, val.kind)
	if cur.kind == scicom.KindList {
		kind = scicom.KindList
	}
	if kind == scicom.KindFunction {
		return nil, errorf("", "incompatible types in subassignment")
	}
	out, err := coerce(cur, kind)
	if err != nil {
		return nil, err
	}
	out = out.clone()
	src, err := coerce(val, kind)
	if err != nil {
		return nil, err
	}
	var positions []int
	if len(idx) <= 1 {
		var s *Value
		if len(idx) == 1 {
			s = idx[0]
		}
		if s != nil && s.kind == scicom.KindCharacter {
			positions, out = namedPositions(out, s)
		} else {
			positions, err = subscript(s, out.Len(), nil, true)
			if err != nil {
				return nil, err
			}
		}
		top := out.Len()
		for _, p := range positions {
			if p < 0 {
				return nil, errorf("", "NAs are not allowed in subscripted assignments")
			}
			top = max(top, p+1)
		}
		if top > out.Len() {
			out = extend(out, top)
		}
	} else {
		dim := out.dim()
		if len(dim) != len(idx) {
			return nil, errorf("", "incorrect number of subscripts")
		}
		per := make([][]int, len(dim))
		for k, s := range idx {
			pos, err := subscript(s, dim[k], nil, false)
			if err != nil {
				return nil, err
			}
			for _, p := range pos {
				if p < 0 {
					return nil, errorf("", "subscript out of bounds")
				}
			}
			per[k] = pos
		}
		positions = arrayOffsets(dim, per)
	}
	for i, p := range positions {
		setElem(out, p, src, i%src.Len())
	}
	return out, nil
}

// namedPositions maps character subscripts to positions, appending any
// names not yet present.
func namedPositions(v *Value, s *Value) ([]int, *Value) {
	names := append([]string(nil), v.names()...)
	if len(names) < v.Len() {
		names = append(names, make([]string, v.Len()-len(names))...)
	}
	out := make([]int, s.Len())
	for i := range out {
		key := s.formatElem(i)
		out[i] = -1
		for k, n := range names {
			if n == key {
				out[i] = k
				break
			}
		}
		if out[i] < 0 {
			names = append(names, key)
			out[i] = len(names) - 1
		}
	}
	if len(names) > v.Len() {
		v = extend(v, len(names))
	}
	return out, v.withAttr("names", newString(names...))
}

func assignIndex2(cur *Value, idx []*Value, val *Value) (*Value, error) {
	if cur.kind != scicom.KindList {
		if isAtomic(val) && val.Len() == 1 {
			return assignIndex1(cur, idx, val)
		}
		if cur.kind != scicom.KindNull {
			return nil, errorf("", "more elements supplied than there are to replace")
		}
	}
	return listAssign(cur, idx, val)
}

// listAssign sets one list element, growing the list when needed.
func listAssign(cur *Value, idx []*Value, val *Value) (*Value, error) {
	out, err := coerce(cur, scicom.KindList)
	if err != nil {
		return nil, err
	}
	out = out.clone()
	if len(idx) != 1 || idx[0] == nil || idx[0].Len() != 1 {
		return nil, errorf("", "[[ ]] with missing subscript")
	}
	s := idx[0]
	var pos int
	if s.kind == scicom.KindCharacter {
		var positions []int
		positions, out = namedPositions(out, s)
		pos = positions[0]
	} else {
		k := s.integer(0)
		if k == naInt || k < 1 {
			return nil, errorf("", "[[ ]] subscript out of bounds")
		}
		pos = int(k) - 1
		if pos >= out.Len() {
			out = extend(out, pos+1)
		}
	}
	out.list[pos] = val
	return out, nil
}

func assignDollar(cur *Value, name string, val *Value) (*Value, error) {
	switch cur.kind {
	case scicom.KindNull, scicom.KindList:
	default:
		return nil, errorf("", "$ operator is invalid for atomic vectors")
	}
	return listAssign(cur, []*Value{newString(name)}, val)
}
