package minir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/layout"
)

func eval(t *testing.T, e *Engine, src string) *Value {
	t.Helper()
	v, err := e.Eval(context.Background(), src)
	require.NoError(t, err, src)
	return v.(*Value)
}

func elems(v *Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

func TestEval_Scalars(t *testing.T) {
	e := New()
	tests := []struct {
		src  string
		kind scicom.Kind
		want any
	}{
		{"1 + 2", scicom.KindDouble, 3.0},
		{"2L * 3L", scicom.KindInteger, int32(6)},
		{"7 / 2", scicom.KindDouble, 3.5},
		{"-2^2", scicom.KindDouble, -4.0},
		{`"a\tb"`, scicom.KindCharacter, "a\tb"},
		{"TRUE & NA", scicom.KindLogical, nil},
		{"FALSE && NA", scicom.KindLogical, false},
		{"3 >= 3", scicom.KindLogical, true},
		{`"b" > "a"`, scicom.KindLogical, true},
		{"!TRUE", scicom.KindLogical, false},
		{"length(NULL)", scicom.KindInteger, int32(0)},
		{"{ a <- 2; a * 10 }", scicom.KindDouble, 20.0},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			v := eval(t, e, tc.src)
			assert.Equal(t, tc.kind, v.Kind())
			require.Equal(t, 1, v.Len())
			assert.Equal(t, tc.want, v.At(0))
		})
	}
}

func TestLexString_Escapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"\a\b\f\v"`, "\a\b\f\v"},
		{`"\n\t\r\0"`, "\n\t\r\x00"},
		{`"\x41\u00e9"`, "A\u00e9"},
		{`"\U0001F600"`, "\U0001F600"},
		{`'\''`, "'"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, n, err := lexString(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.src), n)
		})
	}

	for _, src := range []string{`"\U110000"`, `"\uZZ"`, `"open`} {
		_, _, err := lexString(src)
		assert.Error(t, err, src)
	}
}

func TestEval_Sequences(t *testing.T) {
	e := New()
	assert.Equal(t, []any{int32(0), int32(1), int32(2), int32(3)}, elems(eval(t, e, "(0:3)")))
	assert.Equal(t, []any{int32(3), int32(2), int32(1)}, elems(eval(t, e, "3:1")))
	assert.Equal(t, []any{int32(-1), int32(0), int32(1)}, elems(eval(t, e, "-1:1")))
	assert.Equal(t, []any{0.0, 0.25, 0.5, 0.75, 1.0}, elems(eval(t, e, "seq(0, 1, by = 0.25)")))
	assert.Equal(t, []any{int32(1), int32(2), int32(3)}, elems(eval(t, e, "seq(3)")))
	assert.Equal(t, []any{1.0, 2.0, 1.0, 2.0}, elems(eval(t, e, "rep(c(1, 2), times = 2)")))
}

func TestEval_Mean(t *testing.T) {
	e := New()
	assert.Equal(t, 5.5, eval(t, e, "mean(c((0:10), 50), trim = 0.1)").At(0))
	assert.Equal(t, 8.75, eval(t, e, "mean(c(0:10, 50))").At(0))
	assert.Nil(t, eval(t, e, "mean(c(1, NA))").At(0))
	assert.Equal(t, 1.0, eval(t, e, "mean(c(1, NA), na.rm = TRUE)").At(0))
	assert.Equal(t, 3.0, eval(t, e, "mean(c(1, 3, 100), trim = 0.5)").At(0))
}

func TestEval_Combine(t *testing.T) {
	e := New()
	v := eval(t, e, `c(1L, TRUE, 2.5)`)
	assert.Equal(t, scicom.KindDouble, v.Kind())
	assert.Equal(t, []any{1.0, 1.0, 2.5}, elems(v))

	v = eval(t, e, `c(a = 1, b = 2)`)
	assert.Equal(t, []string{"a", "b"}, v.names())

	v = eval(t, e, `c(1, "x")`)
	assert.Equal(t, []any{"1", "x"}, elems(v))

	assert.Equal(t, scicom.KindNull, eval(t, e, "c()").Kind())
}

func TestEval_NestedAttributeAssignment(t *testing.T) {
	e := New()
	eval(t, e, `x <- c(1, 2, 3)`)
	eval(t, e, `attr(x, "a") <- "first"`)
	eval(t, e, `attr(attr(x, "a"), "b") <- 2`)

	assert.Equal(t, 2.0, eval(t, e, `attr(attr(x, "a"), "b")`).At(0))
	assert.Equal(t, "first", eval(t, e, `attr(x, "a")`).At(0))
	assert.Equal(t, int32(3), eval(t, e, `length(x)`).At(0))

	eval(t, e, `attr(x, "a") <- NULL`)
	assert.Equal(t, scicom.KindNull, eval(t, e, `attr(x, "a")`).Kind())
	assert.Equal(t, scicom.KindNull, eval(t, e, `attributes(x)`).Kind())
}

func TestEval_Dim(t *testing.T) {
	e := New()
	eval(t, e, `y <- 1:6`)
	eval(t, e, `dim(y) <- c(2, 3)`)
	assert.Equal(t, []any{int32(2), int32(3)}, elems(eval(t, e, "dim(y)")))
	assert.Equal(t, int32(6), eval(t, e, "y[2, 3]").At(0))
	assert.Equal(t, []any{int32(2), int32(4), int32(6)}, elems(eval(t, e, "y[2, ]")))
	assert.Equal(t, []string{"matrix", "array"}, eval(t, e, "class(y)").str)

	_, err := e.Eval(context.Background(), "dim(y) <- c(4, 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dims [product 8] do not match the length of object [6]")
}

func TestEval_Matrix(t *testing.T) {
	e := New()
	v := eval(t, e, "matrix(1:6, nrow = 2, byrow = TRUE)")
	assert.Equal(t, []int{2, 3}, v.dim())
	assert.Equal(t, []any{int32(1), int32(4), int32(2), int32(5), int32(3), int32(6)}, elems(v))
}

func TestEval_Indexing(t *testing.T) {
	e := New()
	eval(t, e, `x <- c(10, 20, 30)`)
	assert.Equal(t, []any{20.0, 30.0}, elems(eval(t, e, "x[-1]")))
	assert.Equal(t, []any{10.0, 30.0}, elems(eval(t, e, "x[c(TRUE, FALSE)]")))
	assert.Equal(t, []any{nil}, elems(eval(t, e, "x[5]")))
	assert.Equal(t, 20.0, eval(t, e, "x[[2]]").At(0))

	_, err := e.Eval(context.Background(), "x[[5]]")
	assert.ErrorContains(t, err, "subscript out of bounds")
	_, err = e.Eval(context.Background(), "x[c(-1, 2)]")
	assert.ErrorContains(t, err, "can't mix positive and negative subscripts")

	eval(t, e, `x[5] <- 50`)
	assert.Equal(t, []any{10.0, 20.0, 30.0, nil, 50.0}, elems(eval(t, e, "x")))
}

func TestEval_Lists(t *testing.T) {
	e := New()
	eval(t, e, `l <- list(a = 1, b = "z")`)
	assert.Equal(t, "z", eval(t, e, "l$b").At(0))
	assert.Equal(t, 1.0, eval(t, e, `l[["a"]]`).At(0))
	assert.Equal(t, scicom.KindNull, eval(t, e, "l$missing").Kind())

	eval(t, e, `l$c <- c(1, 2)`)
	eval(t, e, `l$c[2] <- 5`)
	assert.Equal(t, int32(3), eval(t, e, "length(l)").At(0))
	assert.Equal(t, []any{1.0, 5.0}, elems(eval(t, e, "l$c")))

	_, err := e.Eval(context.Background(), `x <- 1; x$a`)
	assert.ErrorContains(t, err, "$ operator is invalid for atomic vectors")
}

func TestEval_ToStringAndTypes(t *testing.T) {
	e := New()
	assert.Equal(t, "1.5, 2, NA", eval(t, e, "toString(c(1.5, 2, NA))").At(0))
	assert.Equal(t, "TRUE-FALSE", eval(t, e, `toString(c(TRUE, FALSE), sep = "-")`).At(0))
	assert.Equal(t, "double", eval(t, e, "typeof(1)").At(0))
	assert.Equal(t, "integer", eval(t, e, "typeof(1L)").At(0))
	assert.Equal(t, "numeric", eval(t, e, "class(1)").At(0))
	assert.Equal(t, true, eval(t, e, "is.function(mean)").At(0))
	assert.Equal(t, int32(3), eval(t, e, `as.integer("3")`).At(0))
	assert.Equal(t, "2.5", eval(t, e, `as.character(2.5)`).At(0))
}

func TestEval_CallThroughVariable(t *testing.T) {
	e := New()
	eval(t, e, `f <- mean`)
	assert.Equal(t, 2.5, eval(t, e, "f(c(2, 3))").At(0))
	assert.Equal(t, 2.0, eval(t, e, "identity(f)(c(1, 3))").At(0))
}

func TestEval_Errors(t *testing.T) {
	e := New()
	tests := []struct {
		src  string
		want string
	}{
		{"foo(1)", `could not find function "foo"`},
		{"undefined_var", "object 'undefined_var' not found"},
		{"1 +", "unexpected end of input"},
		{`"open`, "unterminated string"},
		{`mean(1, bogus = 2)`, "unused argument (bogus = 2)"},
		{`1 + "a"`, "non-numeric argument to binary operator"},
		{`attr(1, c("a", "b"))`, "exactly one attribute 'which' must be given"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			_, err := e.Eval(context.Background(), tc.src)
			require.Error(t, err)
			var ee *EvalError
			require.ErrorAs(t, err, &ee)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestEngine_BindView(t *testing.T) {
	e := New()
	ctx := context.Background()

	d, err := layout.Arange(12).Reshape(4, 3)
	require.NoError(t, err)
	vec, err := layout.NewVector(d)
	require.NoError(t, err)
	require.NoError(t, e.Bind(ctx, "m", vec))

	assert.Equal(t, []any{int32(4), int32(3)}, elems(eval(t, e, "dim(m)")))
	assert.Equal(t, 1.0, eval(t, e, "m[1, 2]").At(0))
	assert.Equal(t, 3.0, eval(t, e, "m[2, 1]").At(0))

	eval(t, e, "m[1] <- 100")
	assert.Equal(t, 100.0, eval(t, e, "m[1]").At(0))
	got, err := d.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "host storage must not be written")
}

func TestEngine_Namespace(t *testing.T) {
	e := New()
	ctx := context.Background()

	require.NoError(t, e.Bind(ctx, "tmp", newDouble(1)))
	eval(t, e, `keep <- 2`)
	names, err := e.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "tmp"}, names)

	require.NoError(t, e.Unbind(ctx, "tmp"))
	assert.Error(t, e.Unbind(ctx, "tmp"))

	eval(t, e, `rm("keep")`)
	names, err = e.Names(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, false, eval(t, e, `exists("keep")`).At(0))
}

func TestEngine_BindForeignValue(t *testing.T) {
	src, dst := New(), New()
	ctx := context.Background()

	v := eval(t, src, `c("a", NA)`)
	require.NoError(t, dst.Bind(ctx, "s", scicom.Value(foreign{v})))
	assert.Equal(t, []any{"a", nil}, elems(eval(t, dst, "s")))
}

// foreign hides the concrete type so Bind takes the copying path.
type foreign struct{ *Value }

func TestEngine_CanceledContext(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Eval(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.Evals())
}
