package bridge

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/layout"
	"github.com/mimimalizam/scicom/lifetime"
)

// Value wraps one engine value, or a host array not yet seen by the engine.
// It is published under a temporary name only when it has to appear in an
// expression.
type Value struct {
	b     *Bridge
	fv    scicom.Value
	array layout.Array
	scope Scope
	slot  lifetime.Slot
	mu    sync.RWMutex
}

var _ lifetime.Bindable = (*Value)(nil)

// BindingSlot implements lifetime.Bindable.
func (v *Value) BindingSlot() *lifetime.Slot { return &v.slot }

// Publish implements lifetime.Bindable. Host arrays are published as a view
// and frozen.
func (v *Value) Publish() (any, error) {
	v.mu.RLock()
	fv, array := v.fv, v.array
	v.mu.RUnlock()
	switch {
	case fv != nil:
		return fv, nil
	case array != nil:
		return layout.NewVector(array)
	}
	return nil, errors.NotInitialized(errors.PhaseMarshal, "value")
}

func (v *Value) setForeign(fv scicom.Value) {
	v.mu.Lock()
	v.fv = fv
	v.mu.Unlock()
}

// Foreign returns the engine value, or nil for a host array that has not
// been round-tripped through the engine.
func (v *Value) Foreign() scicom.Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fv
}

// Scope returns how v was derived.
func (v *Value) Scope() Scope { return v.scope }

// Kind returns the engine type of v. Host arrays are double.
func (v *Value) Kind() scicom.Kind {
	if fv := v.Foreign(); fv != nil {
		return fv.Kind()
	}
	if v.array != nil {
		return scicom.KindDouble
	}
	return scicom.KindNull
}

// TypeName returns the engine's name for the type of v.
func (v *Value) TypeName() string { return v.Kind().String() }

func (v *Value) IsNumeric() bool {
	k := v.Kind()
	return k == scicom.KindDouble || k == scicom.KindInteger
}
func (v *Value) IsInteger() bool   { return v.Kind() == scicom.KindInteger }
func (v *Value) IsLogical() bool   { return v.Kind() == scicom.KindLogical }
func (v *Value) IsCharacter() bool { return v.Kind() == scicom.KindCharacter }
func (v *Value) IsNull() bool      { return v.Kind() == scicom.KindNull }
func (v *Value) IsList() bool      { return v.Kind() == scicom.KindList }
func (v *Value) IsFunction() bool  { return v.Kind() == scicom.KindFunction }

// Len returns the number of elements.
func (v *Value) Len() int {
	if fv := v.Foreign(); fv != nil {
		return fv.Len()
	}
	if v.array != nil {
		return layout.Size(v.array.Shape())
	}
	return 0
}

// element returns element i in engine storage order.
func (v *Value) element(i int) (any, error) {
	fv := v.Foreign()
	if fv == nil {
		return nil, errors.NotInitialized(errors.PhaseEvaluate, "engine value")
	}
	if i < 0 || i >= fv.Len() {
		return nil, errors.OutOfBounds(errors.PhaseEvaluate, nil, i, fv.Len())
	}
	return fv.At(i), nil
}

func mismatch(goType string, got any) error {
	return errors.TypeMismatch(errors.PhaseEvaluate, goType, fmt.Sprintf("element is %T", got))
}

// Float64 returns element i as a float64. NA is NaN; IsNA tells them apart.
func (v *Value) Float64(i int) (float64, error) {
	e, err := v.element(i)
	if err != nil {
		return 0, err
	}
	switch e := e.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return e, nil
	case int32:
		return float64(e), nil
	case bool:
		if e {
			return 1, nil
		}
		return 0, nil
	}
	return 0, mismatch("float64", e)
}

// IsNA reports whether element i is missing. NaN is not NA.
func (v *Value) IsNA(i int) (bool, error) {
	e, err := v.element(i)
	if err != nil {
		return false, err
	}
	return e == nil, nil
}

// IsNaN reports whether element i is a double NaN that is not NA.
func (v *Value) IsNaN(i int) (bool, error) {
	e, err := v.element(i)
	if err != nil {
		return false, err
	}
	f, ok := e.(float64)
	return ok && math.IsNaN(f), nil
}

// IsFinite reports whether element i is a number other than NA, NaN and
// the infinities. Integers and logicals that are not NA are finite.
func (v *Value) IsFinite(i int) (bool, error) {
	e, err := v.element(i)
	if err != nil {
		return false, err
	}
	switch e := e.(type) {
	case float64:
		return !math.IsNaN(e) && !math.IsInf(e, 0), nil
	case int32, bool:
		return true, nil
	}
	return false, nil
}

// Float64s returns all elements as float64.
func (v *Value) Float64s() ([]float64, error) {
	out := make([]float64, v.Len())
	for i := range out {
		f, err := v.Float64(i)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Int returns element i as an int. NA and fractional doubles are errors.
func (v *Value) Int(i int) (int, error) {
	e, err := v.element(i)
	if err != nil {
		return 0, err
	}
	switch e := e.(type) {
	case int32:
		return int(e), nil
	case float64:
		if e == math.Trunc(e) && !math.IsInf(e, 0) {
			return int(e), nil
		}
	case bool:
		if e {
			return 1, nil
		}
		return 0, nil
	}
	return 0, mismatch("int", e)
}

// Text returns element i of a character vector.
func (v *Value) Text(i int) (string, error) {
	e, err := v.element(i)
	if err != nil {
		return "", err
	}
	if s, ok := e.(string); ok {
		return s, nil
	}
	return "", mismatch("string", e)
}

// Bool returns element i of a logical vector.
func (v *Value) Bool(i int) (bool, error) {
	e, err := v.element(i)
	if err != nil {
		return false, err
	}
	if b, ok := e.(bool); ok {
		return b, nil
	}
	return false, mismatch("bool", e)
}

// Attr returns the attribute proxy of v.
func (v *Value) Attr() *Attributes { return &Attributes{target: v} }

// Index reads one element through the engine's own indexing. idx is a
// 0-based host index; it is permuted and shifted to the engine convention.
func (v *Value) Index(ctx context.Context, idx ...int) (*Value, error) {
	if len(idx) == 0 {
		return nil, errors.MalformedCall("[", "index needs at least one subscript")
	}
	for _, k := range idx {
		if k < 0 {
			return nil, errors.MalformedCall("[", "negative subscript %d", k)
		}
	}
	fidx := layout.HostIndexToForeignIndex(idx)
	parts := make([]string, len(fidx))
	for i, k := range fidx {
		parts[i] = strconv.Itoa(k)
	}
	return v.b.do(ctx, func(ctx context.Context) (*Value, error) {
		name, err := v.b.life.Acquire(ctx, v)
		if err != nil {
			return nil, err
		}
		return v.b.eval(ctx, name+"["+strings.Join(parts, ", ")+"]")
	})
}

// Call invokes v, which must be a function, with args.
func (v *Value) Call(ctx context.Context, args ...Arg) (*Value, error) {
	if !v.IsFunction() {
		return nil, errors.MalformedCall("call", "value of type %s is not a function", v.TypeName())
	}
	if err := checkAll(args); err != nil {
		return nil, err
	}
	return v.b.do(ctx, func(ctx context.Context) (*Value, error) {
		name, err := v.b.life.Acquire(ctx, v)
		if err != nil {
			return nil, err
		}
		list, err := v.b.marshalArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		return v.b.eval(ctx, name+"("+list+")")
	})
}

// Format renders v with the engine's toString.
func (v *Value) Format(ctx context.Context) (string, error) {
	out, err := v.b.do(ctx, func(ctx context.Context) (*Value, error) {
		name, err := v.b.life.Acquire(ctx, v)
		if err != nil {
			return nil, err
		}
		return v.b.eval(ctx, "toString("+name+")")
	})
	if err != nil {
		return "", err
	}
	return out.Text(0)
}
