package bridge

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/internal/minir"
	"github.com/mimimalizam/scicom/layout"
)

// recorder is a minir engine that records evaluated expressions.
type recorder struct {
	*minir.Engine
	exprs      []string
	mu         sync.Mutex
	failUnbind bool
}

func newRecorder() *recorder {
	return &recorder{Engine: minir.New()}
}

func (r *recorder) Eval(ctx context.Context, expr string) (scicom.Value, error) {
	r.mu.Lock()
	r.exprs = append(r.exprs, expr)
	r.mu.Unlock()
	return r.Engine.Eval(ctx, expr)
}

func (r *recorder) Unbind(ctx context.Context, name string) error {
	if r.failUnbind {
		return fmt.Errorf("unbind refused")
	}
	return r.Engine.Unbind(ctx, name)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.exprs) == 0 {
		return ""
	}
	return r.exprs[len(r.exprs)-1]
}

func (r *recorder) names(t *testing.T) []string {
	t.Helper()
	names, err := r.Names(context.Background())
	require.NoError(t, err)
	return names
}

func setup(t *testing.T) (*Bridge, *recorder) {
	t.Helper()
	rec := newRecorder()
	return New(rec), rec
}

func floats(t *testing.T, v *Value) []float64 {
	t.Helper()
	out, err := v.Float64s()
	require.NoError(t, err)
	return out
}

func TestInvoke_MarshalScenario(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	v, err := b.Invoke(ctx, "c", Number(5), Text("hi"), Boolean(true), Mapping{KV("trim", Number(0.1))})
	require.NoError(t, err)
	assert.Equal(t, `c(5,"hi",TRUE,trim = 0.1)`, rec.last())
	assert.True(t, v.IsCharacter())
	assert.Equal(t, 4, v.Len())
}

func TestInvoke_TrimmedMean(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	x, err := b.Invoke(ctx, "c", Range{From: 0, To: 10}, Number(50))
	require.NoError(t, err)
	assert.Equal(t, "c((0:10),50)", rec.last())

	m, err := b.Invoke(ctx, "mean", x, Mapping{KV("trim", Number(0.1))})
	require.NoError(t, err)
	assert.Regexp(t, `^mean\(sc_[0-9a-f]{16},trim = 0\.1\)$`, rec.last())
	assert.Equal(t, []float64{5.5}, floats(t, m))

	m, err = b.Invoke(ctx, "mean", x)
	require.NoError(t, err)
	assert.Equal(t, []float64{8.75}, floats(t, m))

	assert.Empty(t, b.Pending())
	assert.Empty(t, rec.names(t))
}

func TestRange_CoversExactly(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	for _, r := range []Range{{0, 0}, {0, 10}, {-3, 2}, {7, 9}, {3, 1}} {
		t.Run(fmt.Sprintf("%d:%d", r.From, r.To), func(t *testing.T) {
			v, err := b.Invoke(ctx, "identity", r)
			require.NoError(t, err)
			require.True(t, v.IsInteger())

			var want []int
			for i := r.From; i <= r.To; i++ {
				want = append(want, i)
			}
			got := make([]int, v.Len())
			for i := range got {
				got[i], err = v.Int(i)
				require.NoError(t, err)
			}
			assert.Equal(t, len(want), len(got))
			for i := range want {
				assert.Equal(t, want[i], got[i])
			}
		})
	}
}

func TestAssignPull_RoundTrip(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	for _, x := range []float64{0, 3.25, -7, 1e10, 0.1, 1.0 / 3} {
		t.Run(fmt.Sprint(x), func(t *testing.T) {
			got, err := b.Assign(ctx, "n", Number(x))
			require.NoError(t, err)
			assert.Equal(t, Number(x), got)

			v, err := b.Pull(ctx, "n")
			require.NoError(t, err)
			f, err := v.Float64(0)
			require.NoError(t, err)
			assert.Equal(t, x, f)
			assert.Equal(t, Scope{Kind: ScopeVariable, Name: "n"}, v.Scope())
		})
	}
}

func TestAcquire_Idempotent(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	v, err := b.Eval(ctx, "c(1, 2)")
	require.NoError(t, err)

	frame := b.life.Begin()
	first, err := b.life.Acquire(ctx, v)
	require.NoError(t, err)
	second, err := b.life.Acquire(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{first}, rec.names(t))
	require.NoError(t, frame.End(ctx))

	assert.False(t, v.BindingSlot().Bound())
	assert.Empty(t, rec.names(t))
}

func TestCalls_NetZeroBindings(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	_, err := b.Eval(ctx, "keep <- c(1, 2, 3)")
	require.NoError(t, err)
	x, err := b.Eval(ctx, "c(4, 5)")
	require.NoError(t, err)
	before := rec.names(t)

	d, err := layout.NewDense([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	calls := []struct {
		name    string
		call    func() error
		wantErr bool
	}{
		{"values", func() error {
			_, err := b.Invoke(ctx, "c", x, x, Symbol("keep"), Array{A: d})
			return err
		}, false},
		{"engine failure", func() error {
			_, err := b.Invoke(ctx, "undefined_fn", x, Symbol("keep"))
			return err
		}, true},
		{"failure during marshaling", func() error {
			_, err := b.Invoke(ctx, "c", x, Symbol("missing"))
			return err
		}, true},
		{"attribute write", func() error {
			_, err := x.Attr().Set(ctx, "tag", x)
			return err
		}, false},
		{"index", func() error {
			_, err := x.Index(ctx, 1)
			return err
		}, false},
	}
	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, before, rec.names(t))
			assert.Empty(t, b.Pending())
		})
	}
}

func TestTranslationErrors_NeverReachEngine(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()
	d := layout.Arange(3)

	calls := map[string]func() error{
		"nil argument": func() error {
			_, err := b.Invoke(ctx, "mean", nil)
			return err
		},
		"nil in mapping": func() error {
			_, err := b.Invoke(ctx, "mean", Number(1), Mapping{KV("trim", nil)})
			return err
		},
		"empty key": func() error {
			_, err := b.Invoke(ctx, "mean", Mapping{KV("", Number(1))})
			return err
		},
		"empty name": func() error {
			_, err := b.Invoke(ctx, " ", Number(1))
			return err
		},
		"two markers": func() error {
			_, err := b.Dispatch(ctx, "x==", Number(1))
			return err
		},
		"assignment arity": func() error {
			_, err := b.Dispatch(ctx, "x=", Number(1), Number(2))
			return err
		},
		"attribute with arguments": func() error {
			_, err := b.Wrap(d).Attr().Get(ctx, "dim", Number(1))
			return err
		},
		"call non-function": func() error {
			_, err := b.Wrap(d).Call(ctx, Number(1))
			return err
		},
		"integer overflow": func() error {
			_, err := b.Invoke(ctx, "c", Integers{1 << 40})
			return err
		},
		"eval op without text": func() error {
			_, err := b.Dispatch(ctx, "eval", Number(1))
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, errors.IsTranslation(err), "%v", err)
			assert.Zero(t, rec.Evals())
			assert.Empty(t, rec.names(t))
		})
	}
	assert.False(t, d.Frozen())
}

func TestEvaluationError(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	_, err := b.Invoke(ctx, "mean", Number(1), Mapping{KV("bogus", Number(2))})
	require.Error(t, err)
	assert.True(t, errors.IsEvaluation(err))
	assert.False(t, errors.IsTranslation(err))

	var ee *errors.Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "mean(1,bogus = 2)", ee.Expr)

	var engineErr *minir.EvalError
	require.True(t, errors.As(err, &engineErr))
	assert.Contains(t, engineErr.Msg, "unused argument")

	_, err = b.Eval(ctx, "1 +")
	assert.True(t, errors.IsEvaluation(err))
}

func TestLiterals(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	_, err := b.Invoke(ctx, "list",
		Doubles{1, 2.5},
		Integers{3},
		Strings{`a"b`},
		Logicals{true, false},
		Null{},
		Doubles{},
		Mapping{
			KV("opts", Mapping{KV("k", Number(1))}),
			KV("my key", Text("v")),
		},
	)
	require.NoError(t, err)
	assert.Equal(t,
		"list(c(1, 2.5),c(3L),c(\"a\\\"b\"),c(TRUE, FALSE),NULL,numeric(0),opts = list(k = 1),`my key` = \"v\")",
		rec.last())
}

func TestText_Escaped(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	for _, s := range []string{`say "hi"`, `back\slash`, "tab\tnew\nline", `"); rm(list = ls()); ("`} {
		v, err := b.Invoke(ctx, "identity", Text(s))
		require.NoError(t, err)
		got, err := v.Text(0)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	for _, s := range []string{"a\bb", "bell\a", "ff\f", "vt\v", "nul\x00", "nel\u0085", "tag\U000E0001", "bad\xffutf8"} {
		_, err := b.Assign(ctx, "s", Text(s))
		require.NoError(t, err)
		v, err := b.Pull(ctx, "s")
		require.NoError(t, err)
		got, err := v.Text(0)
		require.NoError(t, err)
		assert.Equal(t, s, got, "%q", s)
	}
}

func TestArray_PublishedAsView(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	d, err := layout.Arange(60).Reshape(5, 3, 4)
	require.NoError(t, err)
	v := b.Wrap(d)
	assert.Equal(t, 60, v.Len())
	assert.True(t, v.IsNumeric())

	dim, err := b.Invoke(ctx, "dim", v)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, floats(t, dim))
	assert.True(t, d.Frozen())
	assert.ErrorIs(t, d.Set(1, 0, 0, 0), errors.Immutable(""))

	e, err := v.Index(ctx, 1, 2, 3)
	require.NoError(t, err)
	want, err := d.At(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{want}, floats(t, e))

	n, err := b.Invoke(ctx, "length", Array{A: d})
	require.NoError(t, err)
	count, err := n.Int(0)
	require.NoError(t, err)
	assert.Equal(t, 60, count)
}

func TestAttributes_TwoLevelWrite(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	_, err := b.Eval(ctx, `x <- c(1, 2, 3); attr(x, "a") <- "first"`)
	require.NoError(t, err)

	x, err := b.Pull(ctx, "x")
	require.NoError(t, err)
	a, err := x.Attr().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, ScopeAttribute, a.Scope().Kind)
	assert.Same(t, x, a.Scope().Parent)

	_, err = a.Attr().Set(ctx, "b", Number(2))
	require.NoError(t, err)

	got, err := b.Eval(ctx, `attr(attr(x, "a"), "b")`)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, floats(t, got))

	// host handles observe the write
	sub, err := a.Attr().Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, floats(t, sub))
	names, err := x.Attr().Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}

func TestAttributes_Temporary(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	v, err := b.Invoke(ctx, "c", Number(1), Number(2))
	require.NoError(t, err)

	_, err = v.Attr().Dispatch(ctx, "rclass=", Text("measure"))
	require.NoError(t, err)
	assert.Regexp(t, `^attr\(sc_[0-9a-f]{16}, "class"\) <- "measure"$`, rec.exprs[len(rec.exprs)-2])

	cls, err := v.Attr().Dispatch(ctx, "rclass")
	require.NoError(t, err)
	s, err := cls.(*Value).Text(0)
	require.NoError(t, err)
	assert.Equal(t, "measure", s)
	assert.Empty(t, rec.names(t))
}

func TestDispatch(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	got, err := b.Dispatch(ctx, "x=", Number(4))
	require.NoError(t, err)
	assert.Equal(t, Number(4), got)
	assert.Equal(t, "x <- 4", rec.last())

	got, err = b.Dispatch(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, floats(t, got.(*Value)))

	got, err = b.Dispatch(ctx, "is__numeric", Symbol("x"))
	require.NoError(t, err)
	ok, err := got.(*Value).Bool(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Regexp(t, `^is\.numeric\(sc_[0-9a-f]{16}\)$`, rec.last())

	got, err = b.Dispatch(ctx, "eval", Text("1 + 1"))
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, floats(t, got.(*Value)))

	_, err = b.Dispatch(ctx, "assign", Symbol("y"), Text("s"))
	require.NoError(t, err)
	got, err = b.Dispatch(ctx, "pull", Text("y"))
	require.NoError(t, err)
	s, err := got.(*Value).Text(0)
	require.NoError(t, err)
	assert.Equal(t, "s", s)

	// fixed operations are never pulls
	_, err = b.Dispatch(ctx, "eval")
	assert.True(t, errors.IsTranslation(err))
}

func TestSeparator(t *testing.T) {
	rec := newRecorder()
	b := New(rec, WithSeparator("."))
	ctx := context.Background()

	v, err := b.Invoke(ctx, "as__integer", Text("12"))
	require.NoError(t, err)
	assert.Equal(t, `as.integer("12")`, rec.last())
	n, err := v.Int(0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestValue_MissingAndFinite(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	check := func(expr string, na, nan, finite []bool) {
		t.Helper()
		v, err := b.Eval(ctx, expr)
		require.NoError(t, err)
		require.Equal(t, len(na), v.Len())
		for i := range na {
			gotNA, err := v.IsNA(i)
			require.NoError(t, err)
			gotNaN, err := v.IsNaN(i)
			require.NoError(t, err)
			gotFinite, err := v.IsFinite(i)
			require.NoError(t, err)
			assert.Equal(t, na[i], gotNA, "%s[%d] NA", expr, i)
			assert.Equal(t, nan[i], gotNaN, "%s[%d] NaN", expr, i)
			assert.Equal(t, finite[i], gotFinite, "%s[%d] finite", expr, i)
		}
	}

	check("c(1, NA, NaN, Inf)",
		[]bool{false, true, false, false},
		[]bool{false, false, true, false},
		[]bool{true, false, false, false})
	check("c(2L, NA)",
		[]bool{false, true},
		[]bool{false, false},
		[]bool{true, false})
	check(`c("a", NA)`,
		[]bool{false, true},
		[]bool{false, false},
		[]bool{false, false})

	v, err := b.Eval(ctx, "c(1, NA)")
	require.NoError(t, err)
	_, err = v.IsNA(2)
	assert.ErrorIs(t, err, errors.OutOfBounds(errors.PhaseEvaluate, nil, 0, 0))
}

func TestCallAndFormat(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()

	f, err := b.Pull(ctx, "mean")
	require.NoError(t, err)
	require.True(t, f.IsFunction())
	r, err := f.Call(ctx, Doubles{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, floats(t, r))

	v, err := b.Eval(ctx, "c(1.5, 2, NA)")
	require.NoError(t, err)
	s, err := v.Format(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.5, 2, NA", s)
	assert.Equal(t, "double", v.TypeName())

	_, err = v.Text(0)
	assert.Error(t, err)
	_, err = v.Float64(3)
	assert.Error(t, err)
}

func TestLeak_Reported(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	rec.failUnbind = true
	n, err := b.Invoke(ctx, "c", Doubles{1, 2}, Array{A: layout.Arange(2)})
	require.Error(t, err)
	assert.True(t, errors.IsLeak(err))
	assert.False(t, errors.IsEvaluation(err))
	assert.NotNil(t, n)
	assert.Empty(t, b.Pending())
}

func TestRemove(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()

	_, err := b.Assign(ctx, "keep", Number(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, rec.names(t))

	require.NoError(t, b.Remove(ctx, "keep"))
	assert.Empty(t, rec.names(t))
	assert.True(t, errors.IsEvaluation(b.Remove(ctx, "keep")))
}

func TestConcurrentCalls(t *testing.T) {
	b, rec := setup(t)
	ctx := context.Background()
	x, err := b.Eval(ctx, "c(1, 2, 3)")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := b.Invoke(ctx, "sum", x, Number(1))
			if assert.NoError(t, err) {
				f, err := v.Float64(0)
				assert.NoError(t, err)
				assert.Equal(t, 7.0, f)
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, rec.names(t))
}
