package wasmengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/layout"
)

// EvalRequest is the payload of scicom_eval.
type EvalRequest struct {
	Expr string `json:"expr" jsonschema:"required,description=expression text"`
}

// BindRequest is the payload of scicom_bind.
type BindRequest struct {
	Value *Wire  `json:"value" jsonschema:"required"`
	Name  string `json:"name" jsonschema:"required"`
}

// UnbindRequest is the payload of scicom_unbind.
type UnbindRequest struct {
	Name string `json:"name" jsonschema:"required"`
}

// Response is returned by every guest export.
type Response struct {
	Value *Wire  `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	OK    bool   `json:"ok"`
}

// Wire is a value crossing the guest memory boundary. Exactly one of the
// element slices is set, matching Kind. Values with no data form, such as
// functions, travel as a guest-side Ref.
type Wire struct {
	Doubles  []Num     `json:"doubles,omitempty"`
	Integers []*int32  `json:"integers,omitempty"`
	Logicals []*bool   `json:"logicals,omitempty"`
	Strings  []*string `json:"strings,omitempty"`
	Elements []*Wire   `json:"elements,omitempty"`
	Dim      []int     `json:"dim,omitempty"`
	Names    []string  `json:"names,omitempty"`
	Kind     string    `json:"kind" jsonschema:"enum=NULL,enum=logical,enum=integer,enum=double,enum=character,enum=list,enum=closure,enum=environment,enum=other"`
	Ref      string    `json:"ref,omitempty"`
	Length   int       `json:"length" jsonschema:"minimum=0"`
}

// Num is one double on the wire: a number, null for NA, or one of the
// strings "NaN", "Inf" and "-Inf".
type Num struct {
	V  float64
	NA bool
}

func (n Num) MarshalJSON() ([]byte, error) {
	switch {
	case n.NA:
		return []byte("null"), nil
	case math.IsNaN(n.V):
		return []byte(`"NaN"`), nil
	case math.IsInf(n.V, 1):
		return []byte(`"Inf"`), nil
	case math.IsInf(n.V, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, n.V, 'g', -1, 64), nil
}

func (n *Num) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "null":
		*n = Num{NA: true}
		return nil
	case `"NaN"`:
		*n = Num{V: math.NaN()}
		return nil
	case `"Inf"`:
		*n = Num{V: math.Inf(1)}
		return nil
	case `"-Inf"`:
		*n = Num{V: math.Inf(-1)}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid double %s", b)
	}
	*n = Num{V: f}
	return nil
}

// JSONSchema describes Num for schema reflection.
func (Num) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "null"},
			{Type: "string", Enum: []any{"NaN", "Inf", "-Inf"}},
		},
	}
}

var kindByName = func() map[string]scicom.Kind {
	m := make(map[string]scicom.Kind)
	for k := scicom.KindNull; k <= scicom.KindOther; k++ {
		m[k.String()] = k
	}
	return m
}()

// Value is an engine value decoded from the guest.
type Value struct {
	wire *Wire
	kind scicom.Kind
}

var _ scicom.Value = (*Value)(nil)

func decode(w *Wire) (*Value, error) {
	if w == nil {
		return &Value{wire: &Wire{Kind: "NULL"}, kind: scicom.KindNull}, nil
	}
	kind, ok := kindByName[w.Kind]
	if !ok {
		return nil, errors.New(errors.PhaseEvaluate, errors.KindInvalidData).
			Detail("unknown value kind %q", w.Kind).Build()
	}
	n := w.Length
	var got int
	switch kind {
	case scicom.KindDouble:
		got = len(w.Doubles)
	case scicom.KindInteger:
		got = len(w.Integers)
	case scicom.KindLogical:
		got = len(w.Logicals)
	case scicom.KindCharacter:
		got = len(w.Strings)
	case scicom.KindList:
		got = len(w.Elements)
		for _, e := range w.Elements {
			if _, err := decode(e); err != nil {
				return nil, err
			}
		}
	default:
		got = n
	}
	if got != n {
		return nil, errors.New(errors.PhaseEvaluate, errors.KindInvalidData).
			Detail("%s value declares length %d but carries %d elements", w.Kind, n, got).Build()
	}
	return &Value{wire: w, kind: kind}, nil
}

func (v *Value) Kind() scicom.Kind { return v.kind }
func (v *Value) Len() int          { return v.wire.Length }

// Dim returns the dim attribute carried with the value.
func (v *Value) Dim() []int { return v.wire.Dim }

// Names returns the names attribute carried with the value.
func (v *Value) Names() []string { return v.wire.Names }

func (v *Value) At(i int) any {
	w := v.wire
	switch v.kind {
	case scicom.KindDouble:
		if w.Doubles[i].NA {
			return nil
		}
		return w.Doubles[i].V
	case scicom.KindInteger:
		if p := w.Integers[i]; p != nil {
			return *p
		}
	case scicom.KindLogical:
		if p := w.Logicals[i]; p != nil {
			return *p
		}
	case scicom.KindCharacter:
		if p := w.Strings[i]; p != nil {
			return *p
		}
	case scicom.KindList:
		e, _ := decode(w.Elements[i])
		return scicom.Value(e)
	}
	return nil
}

// encode converts a value the bridge binds into its wire form. Host vectors
// are copied out in engine order.
func encode(v any) (*Wire, error) {
	switch v := v.(type) {
	case nil:
		return &Wire{Kind: "NULL"}, nil
	case *Value:
		return v.wire, nil
	case *layout.Vector:
		vals := v.Values()
		w := &Wire{Kind: scicom.KindDouble.String(), Length: len(vals), Dim: v.Dim()}
		w.Doubles = make([]Num, len(vals))
		for i, f := range vals {
			w.Doubles[i] = Num{V: f}
		}
		return w, nil
	case scicom.Value:
		return encodeForeign(v)
	}
	return nil, errors.TypeMismatch(errors.PhaseMarshal, fmt.Sprintf("%T", v), "cannot bind into a wasm engine")
}

func encodeForeign(v scicom.Value) (*Wire, error) {
	n := v.Len()
	w := &Wire{Kind: v.Kind().String(), Length: n}
	switch v.Kind() {
	case scicom.KindNull:
		w.Length = 0
	case scicom.KindDouble:
		w.Doubles = make([]Num, n)
		for i := range w.Doubles {
			if f, ok := v.At(i).(float64); ok {
				w.Doubles[i] = Num{V: f}
			} else {
				w.Doubles[i] = Num{NA: true}
			}
		}
	case scicom.KindInteger:
		w.Integers = make([]*int32, n)
		for i := range w.Integers {
			if x, ok := v.At(i).(int32); ok {
				w.Integers[i] = &x
			}
		}
	case scicom.KindLogical:
		w.Logicals = make([]*bool, n)
		for i := range w.Logicals {
			if x, ok := v.At(i).(bool); ok {
				w.Logicals[i] = &x
			}
		}
	case scicom.KindCharacter:
		w.Strings = make([]*string, n)
		for i := range w.Strings {
			if x, ok := v.At(i).(string); ok {
				w.Strings[i] = &x
			}
		}
	case scicom.KindList:
		w.Elements = make([]*Wire, n)
		for i := range w.Elements {
			e, ok := v.At(i).(scicom.Value)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseMarshal, fmt.Sprintf("%T", v.At(i)), "list element is not a value")
			}
			ew, err := encodeForeign(e)
			if err != nil {
				return nil, err
			}
			w.Elements[i] = ew
		}
	default:
		return nil, errors.TypeMismatch(errors.PhaseMarshal, v.Kind().String(), "value has no wire form")
	}
	return w, nil
}

// Schema returns the JSON schema of the guest wire protocol.
func Schema() ([]byte, error) {
	type protocol struct {
		Eval     EvalRequest   `json:"eval"`
		Bind     BindRequest   `json:"bind"`
		Unbind   UnbindRequest `json:"unbind"`
		Response Response      `json:"response"`
	}
	r := jsonschema.Reflector{ExpandedStruct: true}
	s := r.Reflect(&protocol{})
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return out, nil
}
