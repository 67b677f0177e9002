package bridge

import (
	"context"
	"strings"

	"github.com/mimimalizam/scicom/errors"
)

type operation func(ctx context.Context, b *Bridge, args []Arg) (Arg, error)

// operations are the names Dispatch never forwards to the engine.
var operations = map[string]operation{
	"eval":   opEval,
	"assign": opAssign,
	"pull":   opPull,
}

// Dispatch is the call-style surface. The fixed operations eval, assign and
// pull are handled directly. Any other name is translated:
//
//	Dispatch(ctx, "x=", Number(1))        // x <- 1
//	Dispatch(ctx, "x")                    // x
//	Dispatch(ctx, "mean", Symbol("x"))    // mean(sc_...)
func (b *Bridge) Dispatch(ctx context.Context, name string, args ...Arg) (Arg, error) {
	if op, ok := operations[name]; ok {
		return op(ctx, b, args)
	}
	if base, ok := strings.CutSuffix(name, "="); ok {
		if strings.HasSuffix(base, "=") {
			return nil, errors.MalformedCall(name, "more than one assignment marker")
		}
		if len(args) != 1 {
			return nil, errors.MalformedCall(name, "assignment takes one value, got %d", len(args))
		}
		return b.Assign(ctx, base, args[0])
	}
	var (
		v   *Value
		err error
	)
	if len(args) == 0 {
		v, err = b.Pull(ctx, name)
	} else {
		v, err = b.Invoke(ctx, name, args...)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// nameArg extracts a name passed as Text or Symbol.
func nameArg(op string, a Arg) (string, error) {
	switch a := a.(type) {
	case Text:
		return string(a), nil
	case Symbol:
		return string(a), nil
	}
	return "", errors.MalformedCall(op, "expected a name, got %T", a)
}

func opEval(ctx context.Context, b *Bridge, args []Arg) (Arg, error) {
	if len(args) != 1 {
		return nil, errors.MalformedCall("eval", "takes one expression, got %d", len(args))
	}
	text, ok := args[0].(Text)
	if !ok {
		return nil, errors.MalformedCall("eval", "expression must be Text, got %T", args[0])
	}
	v, err := b.Eval(ctx, string(text))
	if err != nil {
		return nil, err
	}
	return v, nil
}

func opAssign(ctx context.Context, b *Bridge, args []Arg) (Arg, error) {
	if len(args) != 2 {
		return nil, errors.MalformedCall("assign", "takes a name and a value, got %d arguments", len(args))
	}
	name, err := nameArg("assign", args[0])
	if err != nil {
		return nil, err
	}
	return b.Assign(ctx, name, args[1])
}

func opPull(ctx context.Context, b *Bridge, args []Arg) (Arg, error) {
	if len(args) != 1 {
		return nil, errors.MalformedCall("pull", "takes one name, got %d", len(args))
	}
	name, err := nameArg("pull", args[0])
	if err != nil {
		return nil, err
	}
	v, err := b.Pull(ctx, name)
	if err != nil {
		return nil, err
	}
	return v, nil
}
