package bridge

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/layout"
)

// Arg is a marshalable call argument. The set of implementations is closed.
type Arg interface {
	arg()
}

type (
	// Number is a numeric literal.
	Number float64
	// Text is a string literal. It is escaped when marshaled.
	Text string
	// Boolean is TRUE or FALSE.
	Boolean bool
	// Symbol names an engine value. It is pulled and passed by binding.
	Symbol string
	// Range is the inclusive integer range From..To.
	Range struct{ From, To int }
	// Mapping is an ordered list of named arguments.
	Mapping []Pair
	// Array passes a host array by reference as a read-only view.
	Array struct{ A layout.Array }
	// Doubles, Integers, Strings and Logicals are host vectors, lowered to c(...).
	Doubles  []float64
	Integers []int
	Strings  []string
	Logicals []bool
	// Null is the engine's NULL.
	Null struct{}
)

// Pair is one key = value entry of a Mapping.
type Pair struct {
	Value Arg
	Key   string
}

// KV builds a Pair.
func KV(key string, v Arg) Pair { return Pair{Key: key, Value: v} }

func (Number) arg()   {}
func (Text) arg()     {}
func (Boolean) arg()  {}
func (Symbol) arg()   {}
func (Range) arg()    {}
func (Mapping) arg()  {}
func (Array) arg()    {}
func (Doubles) arg()  {}
func (Integers) arg() {}
func (Strings) arg()  {}
func (Logicals) arg() {}
func (Null) arg()     {}
func (*Value) arg()   {}

// Lift converts a dynamic Go value into an Arg. Maps become Mappings with
// keys in sorted order.
func Lift(v any) (Arg, error) {
	return lift(nil, v)
}

func lift(path []string, v any) (Arg, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case Arg:
		return v, nil
	case bool:
		return Boolean(v), nil
	case string:
		return Text(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Number(reflect.ValueOf(v).Convert(reflect.TypeOf(float64(0))).Float()), nil
	case []float64:
		return Doubles(v), nil
	case []int:
		return Integers(v), nil
	case []string:
		return Strings(v), nil
	case []bool:
		return Logicals(v), nil
	case layout.Array:
		return Array{A: v}, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Mapping, 0, len(keys))
		for _, k := range keys {
			a, err := lift(append(path, k), v[k])
			if err != nil {
				return nil, err
			}
			m = append(m, KV(k, a))
		}
		return m, nil
	case []any:
		m := make(Mapping, 0, len(v))
		for i, e := range v {
			a, err := lift(append(path, fmt.Sprint(i)), e)
			if err != nil {
				return nil, err
			}
			m = append(m, KV("", a))
		}
		return listOf(m), nil
	}
	return nil, errors.Unsupported(path, v)
}

// listOf marks a Mapping whose entries are positional list elements.
type listOf Mapping

func (listOf) arg() {}

// check validates args without contacting the engine.
func check(path []string, a Arg) error {
	switch a := a.(type) {
	case nil:
		return errors.Unsupported(path, nil)
	case Number, Text, Boolean, Null, Doubles, Strings, Logicals:
		return nil
	case Integers:
		for i, n := range a {
			if n <= math.MinInt32 || n > math.MaxInt32 {
				return errors.OutOfBounds(errors.PhaseMarshal, append(path, fmt.Sprint(i)), n, math.MaxInt32)
			}
		}
		return nil
	case Symbol:
		if a == "" {
			return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				Path(path...).Detail("empty symbol").Build()
		}
		return nil
	case Range:
		return nil
	case Mapping:
		for i, p := range a {
			key := p.Key
			if key == "" {
				return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
					Path(append(path, fmt.Sprint(i))...).Detail("mapping entry without key").Build()
			}
			if err := check(append(path, key), p.Value); err != nil {
				return err
			}
		}
		return nil
	case listOf:
		for i, p := range a {
			if err := check(append(path, fmt.Sprint(i)), p.Value); err != nil {
				return err
			}
		}
		return nil
	case Array:
		if a.A == nil {
			return errors.Unsupported(path, a)
		}
		if _, err := layout.ViewOf(a.A); err != nil {
			return err
		}
		return nil
	case *Value:
		if a == nil {
			return errors.Unsupported(path, a)
		}
		return nil
	}
	return errors.Unsupported(path, a)
}
