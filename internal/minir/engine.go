package minir

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/layout"
)

// Engine is an in-process interpreter with a single global namespace.
// Calls are serialized.
type Engine struct {
	in     *interp
	logger *zap.Logger
	evals  int
	mu     sync.Mutex
}

var (
	_ scicom.Engine = (*Engine)(nil)
	_ scicom.Lister = (*Engine)(nil)
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger logs every evaluated expression at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine with an empty global namespace.
func New(opts ...Option) *Engine {
	e := &Engine{in: newInterp(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval parses and evaluates src, returning the value of the last statement.
func (e *Engine) Eval(ctx context.Context, src string) (scicom.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evals++
	e.logger.Debug("eval", zap.String("expr", src))

	prog, err := parse(src)
	if err != nil {
		return nil, &EvalError{Msg: err.Error()}
	}
	v, err := e.in.run(prog)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Bind stores v under name. v is a *Value from this engine, a
// *layout.Vector (kept as a read-only view) or any other scicom.Value,
// which is copied.
func (e *Engine) Bind(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := toValue(v)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.in.vars[name] = val
	return nil
}

// Unbind removes name. Removing a name that is not bound is an error.
func (e *Engine) Unbind(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.in.vars[name]; !ok {
		return errorf("rm", "object '%s' not found", name)
	}
	delete(e.in.vars, name)
	return nil
}

// Names lists the global namespace in sorted order.
func (e *Engine) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.in.names(), nil
}

// Evals reports how many times Eval has been called.
func (e *Engine) Evals() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evals
}

func toValue(v any) (*Value, error) {
	switch v := v.(type) {
	case *Value:
		if v == nil {
			return null, nil
		}
		return v, nil
	case *layout.Vector:
		return fromVector(v), nil
	case scicom.Value:
		return copyForeign(v)
	case nil:
		return null, nil
	}
	return nil, &EvalError{Msg: fmt.Sprintf("cannot bind value of type %T", v)}
}

// copyForeign rebuilds a value produced by another engine.
func copyForeign(v scicom.Value) (*Value, error) {
	n := v.Len()
	switch v.Kind() {
	case scicom.KindNull:
		return null, nil
	case scicom.KindList:
		elems := make([]*Value, n)
		for i := range elems {
			ev, ok := v.At(i).(scicom.Value)
			if !ok {
				return nil, &EvalError{Msg: fmt.Sprintf("list element %d is not a value", i+1)}
			}
			c, err := copyForeign(ev)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return newList(elems, nil), nil
	case scicom.KindDouble, scicom.KindInteger, scicom.KindLogical, scicom.KindCharacter:
		out := newVector(v.Kind(), n)
		for i := 0; i < n; i++ {
			switch x := v.At(i).(type) {
			case nil:
			case float64:
				out.dbl[i] = x
			case int32:
				out.ints[i] = x
			case bool:
				out.ints[i] = 0
				if x {
					out.ints[i] = 1
				}
			case string:
				out.str[i] = x
				out.strNA[i] = false
			default:
				return nil, &EvalError{Msg: fmt.Sprintf("unexpected element %T", x)}
			}
		}
		return out, nil
	}
	return nil, &EvalError{Msg: fmt.Sprintf("cannot bind value of kind %s", v.Kind())}
}
