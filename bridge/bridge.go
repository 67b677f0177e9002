package bridge

import (
	"context"
	"io"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/layout"
	"github.com/mimimalizam/scicom/lifetime"
)

// DefaultSeparator replaces "__" in call names.
const DefaultSeparator = "."

// Bridge translates host calls into expressions for one engine. Top-level
// calls are serialized; every temporary binding a call creates is released
// before it returns.
type Bridge struct {
	eng      scicom.Engine
	life     *lifetime.Manager
	logger   *zap.Logger
	sep      string
	lifeOpts []lifetime.Option
	mu       sync.Mutex
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used by the bridge and its lifetime manager.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
			b.lifeOpts = append(b.lifeOpts, lifetime.WithLogger(l))
		}
	}
}

// WithBindingPrefix sets the prefix of temporary binding names.
func WithBindingPrefix(prefix string) Option {
	return func(b *Bridge) { b.lifeOpts = append(b.lifeOpts, lifetime.WithPrefix(prefix)) }
}

// WithNameEntropy sets the number of random bytes in temporary names.
func WithNameEntropy(n int) Option {
	return func(b *Bridge) { b.lifeOpts = append(b.lifeOpts, lifetime.WithEntropy(n)) }
}

// WithRandom replaces the random source for temporary names.
func WithRandom(r io.Reader) Option {
	return func(b *Bridge) { b.lifeOpts = append(b.lifeOpts, lifetime.WithRandom(r)) }
}

// WithSeparator sets the text that replaces "__" in call names.
func WithSeparator(sep string) Option {
	return func(b *Bridge) { b.sep = sep }
}

// New creates a Bridge over eng.
func New(eng scicom.Engine, opts ...Option) *Bridge {
	b := &Bridge{
		eng:    eng,
		logger: Logger(),
		sep:    DefaultSeparator,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.life = lifetime.NewManager(eng, b.lifeOpts...)
	return b
}

// Engine returns the underlying engine.
func (b *Bridge) Engine() scicom.Engine { return b.eng }

// Pending returns the temporary names currently bound. It is empty between
// top-level calls.
func (b *Bridge) Pending() []string { return b.life.Pending() }

// Wrap returns a Value for a host array. The array is published by
// reference, and frozen, the first time the value is used in a call.
func (b *Bridge) Wrap(a layout.Array) *Value {
	return &Value{b: b, array: a}
}

// Eval evaluates raw expression text.
func (b *Bridge) Eval(ctx context.Context, expr string) (*Value, error) {
	return b.do(ctx, func(ctx context.Context) (*Value, error) {
		return b.eval(ctx, expr)
	})
}

// Pull reads a variable or expression by name.
func (b *Bridge) Pull(ctx context.Context, name string) (*Value, error) {
	if _, err := b.translate(name); err != nil {
		return nil, err
	}
	return b.do(ctx, func(ctx context.Context) (*Value, error) {
		return b.pull(ctx, name)
	})
}

// Assign evaluates name <- v and returns v.
func (b *Bridge) Assign(ctx context.Context, name string, v Arg) (Arg, error) {
	target, err := b.translate(name)
	if err != nil {
		return nil, err
	}
	if err := check([]string{name}, v); err != nil {
		return nil, err
	}
	_, err = b.do(ctx, func(ctx context.Context) (*Value, error) {
		lit, err := b.literal(ctx, v)
		if err != nil {
			return nil, err
		}
		_, err = b.evalRaw(ctx, target+" <- "+lit)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invoke calls the engine function name with args.
func (b *Bridge) Invoke(ctx context.Context, name string, args ...Arg) (*Value, error) {
	fn, err := b.translate(name)
	if err != nil {
		return nil, err
	}
	if err := checkAll(args); err != nil {
		return nil, err
	}
	return b.do(ctx, func(ctx context.Context) (*Value, error) {
		list, err := b.marshalArgs(ctx, args)
		if err != nil {
			return nil, err
		}
		return b.eval(ctx, fn+"("+list+")")
	})
}

// Remove releases a binding created by host code, such as a name given to
// a value with Assign. Temporary bindings are released automatically.
func (b *Bridge) Remove(ctx context.Context, name string) error {
	target, err := b.translate(name)
	if err != nil {
		return err
	}
	_, err = b.do(ctx, func(ctx context.Context) (*Value, error) {
		if err := b.eng.Unbind(ctx, target); err != nil {
			return nil, errors.Evaluation("rm("+quote(target)+")", err)
		}
		return nil, nil
	})
	return err
}

// do runs fn as one top-level call: serialized, with every temporary it
// binds drained on return. Drain failures are combined into the error.
func (b *Bridge) do(ctx context.Context, fn func(ctx context.Context) (*Value, error)) (*Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame := b.life.Begin()
	v, err := fn(ctx)
	if derr := frame.End(context.WithoutCancel(ctx)); derr != nil {
		err = multierr.Append(err, derr)
	}
	return v, err
}

// translate rewrites "__" separators in a call name.
func (b *Bridge) translate(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.MalformedCall(name, "empty name")
	}
	return strings.ReplaceAll(name, "__", b.sep), nil
}

func (b *Bridge) pull(ctx context.Context, name string) (*Value, error) {
	target, err := b.translate(name)
	if err != nil {
		return nil, err
	}
	v, err := b.eval(ctx, target)
	if err != nil {
		return nil, err
	}
	v.scope = Scope{Kind: ScopeVariable, Name: target}
	return v, nil
}

func (b *Bridge) eval(ctx context.Context, expr string) (*Value, error) {
	fv, err := b.evalRaw(ctx, expr)
	if err != nil {
		return nil, err
	}
	return &Value{b: b, fv: fv}, nil
}

func (b *Bridge) evalRaw(ctx context.Context, expr string) (scicom.Value, error) {
	b.logger.Debug("eval", zap.String("expr", expr))
	fv, err := b.eng.Eval(ctx, expr)
	if err != nil {
		return nil, errors.Evaluation(expr, err)
	}
	return fv, nil
}
