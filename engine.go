package scicom

import "context"

// Kind classifies a value held by the engine.
type Kind uint8

const (
	KindNull Kind = iota
	KindLogical
	KindInteger
	KindDouble
	KindCharacter
	KindList
	KindFunction
	KindEnvironment
	KindOther
)

var kindNames = [...]string{
	KindNull:        "NULL",
	KindLogical:     "logical",
	KindInteger:     "integer",
	KindDouble:      "double",
	KindCharacter:   "character",
	KindList:        "list",
	KindFunction:    "closure",
	KindEnvironment: "environment",
	KindOther:       "other",
}

// String returns the engine's own type name for k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "other"
}

// Value is an opaque handle to a value owned by the engine.
type Value interface {
	Kind() Kind
	Len() int
	// At returns element i in storage order. Elements are float64, int32,
	// bool or string; a missing element is nil and list elements are Values.
	At(i int) any
}

// Engine is the embedded interpreter consumed by the bridge.
// Implementations evaluate one expression at a time.
type Engine interface {
	// Eval evaluates expression text and returns its value.
	Eval(ctx context.Context, expr string) (Value, error)
	// Bind publishes v under name in the engine's global namespace. v is
	// either a Value produced by the same engine or a *layout.Vector.
	Bind(ctx context.Context, name string, v any) error
	// Unbind removes name from the global namespace.
	Unbind(ctx context.Context, name string) error
}

// Lister is implemented by engines that can enumerate their global namespace.
type Lister interface {
	Names(ctx context.Context) ([]string, error)
}
