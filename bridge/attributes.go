package bridge

import (
	"context"
	"strings"

	"github.com/mimimalizam/scicom/errors"
)

// attrAliases maps host-side attribute names to engine names.
var attrAliases = map[string]string{
	"rclass": "class",
}

// Attributes reads and writes the engine attributes of a Value.
type Attributes struct {
	target *Value
}

func (a *Attributes) name(name string) string {
	if alias, ok := attrAliases[name]; ok {
		return alias
	}
	return strings.ReplaceAll(name, "__", a.target.b.sep)
}

// Get reads attribute name. The result remembers where it came from, so an
// attribute set on it is written back into the target.
func (a *Attributes) Get(ctx context.Context, name string, args ...Arg) (*Value, error) {
	if len(args) > 0 {
		return nil, errors.MalformedCall(name, "attribute read takes no arguments, got %d", len(args))
	}
	if name == "" {
		return nil, errors.MalformedCall(name, "empty attribute name")
	}
	attr := a.name(name)
	b := a.target.b
	return b.do(ctx, func(ctx context.Context) (*Value, error) {
		ref, err := b.life.Acquire(ctx, a.target)
		if err != nil {
			return nil, err
		}
		v, err := b.eval(ctx, attrExpr(ref, attr))
		if err != nil {
			return nil, err
		}
		v.scope = Scope{Kind: ScopeAttribute, Parent: a.target, Name: attr}
		return v, nil
	})
}

// Set writes attribute name and returns v. The write goes through the
// target's origin: a variable, or the attribute chain it was read from.
func (a *Attributes) Set(ctx context.Context, name string, v Arg) (Arg, error) {
	if name == "" {
		return nil, errors.MalformedCall(name, "empty attribute name")
	}
	if err := check([]string{name}, v); err != nil {
		return nil, err
	}
	attr := a.name(name)
	b := a.target.b
	_, err := b.do(ctx, func(ctx context.Context) (*Value, error) {
		lv, err := b.lvalue(ctx, a.target)
		if err != nil {
			return nil, err
		}
		lit, err := b.literal(ctx, v)
		if err != nil {
			return nil, err
		}
		if _, err := b.evalRaw(ctx, attrExpr(lv, attr)+" <- "+lit); err != nil {
			return nil, err
		}
		return nil, b.refresh(ctx, a.target)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Names lists the attribute names of the target.
func (a *Attributes) Names(ctx context.Context) ([]string, error) {
	b := a.target.b
	v, err := b.do(ctx, func(ctx context.Context) (*Value, error) {
		ref, err := b.life.Acquire(ctx, a.target)
		if err != nil {
			return nil, err
		}
		return b.eval(ctx, "names(attributes("+ref+"))")
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, v.Len())
	for i := range names {
		if names[i], err = v.Text(i); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Dispatch routes "name=" to Set and anything else to Get.
func (a *Attributes) Dispatch(ctx context.Context, name string, args ...Arg) (Arg, error) {
	if base, ok := strings.CutSuffix(name, "="); ok {
		if strings.HasSuffix(base, "=") {
			return nil, errors.MalformedCall(name, "more than one assignment marker")
		}
		if len(args) != 1 {
			return nil, errors.MalformedCall(name, "attribute assignment takes one value, got %d", len(args))
		}
		return a.Set(ctx, base, args[0])
	}
	v, err := a.Get(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return v, nil
}
