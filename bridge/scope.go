package bridge

import (
	"context"
	"fmt"
	"strconv"
)

// ScopeKind records how a Value was derived.
type ScopeKind uint8

const (
	// ScopeTemporary is an expression result with no name in the engine.
	ScopeTemporary ScopeKind = iota
	// ScopeVariable is a value pulled from a named variable.
	ScopeVariable
	// ScopeAttribute is an attribute read from a parent value.
	ScopeAttribute
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeVariable:
		return "variable"
	case ScopeAttribute:
		return "attribute"
	default:
		return "temporary"
	}
}

// Scope is the derivation of a Value. Writes through a derived value are
// routed back to its origin.
type Scope struct {
	// Parent is the value an attribute was read from.
	Parent *Value
	// Name is the variable or attribute name.
	Name string
	Kind ScopeKind
}

// lvalue returns the expression that assigns into v. Temporaries are
// published first.
func (b *Bridge) lvalue(ctx context.Context, v *Value) (string, error) {
	switch v.scope.Kind {
	case ScopeVariable:
		return v.scope.Name, nil
	case ScopeAttribute:
		parent, err := b.lvalue(ctx, v.scope.Parent)
		if err != nil {
			return "", err
		}
		return attrExpr(parent, v.scope.Name), nil
	default:
		return b.life.Acquire(ctx, v)
	}
}

// refresh re-reads v and every parent it was derived from, so host handles
// observe a write made through an lvalue.
func (b *Bridge) refresh(ctx context.Context, v *Value) error {
	for w := v; w != nil; {
		expr, err := b.lvalue(ctx, w)
		if err != nil {
			return err
		}
		fv, err := b.evalRaw(ctx, expr)
		if err != nil {
			return err
		}
		w.setForeign(fv)
		if w.scope.Kind != ScopeAttribute {
			return nil
		}
		w = w.scope.Parent
	}
	return nil
}

func attrExpr(target, name string) string {
	return fmt.Sprintf("attr(%s, %s)", target, strconv.Quote(name))
}
