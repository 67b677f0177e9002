package main

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimimalizam/scicom/bridge"
	"github.com/mimimalizam/scicom/errors"
	"github.com/mimimalizam/scicom/internal/minir"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		tok  string
		want bridge.Arg
	}{
		{"1.5", bridge.Number(1.5)},
		{"-2", bridge.Number(-2)},
		{"Inf", bridge.Number(math.Inf(1))},
		{`"hi there"`, bridge.Text("hi there")},
		{`"a\"b"`, bridge.Text(`a"b`)},
		{"word", bridge.Text("word")},
		{"TRUE", bridge.Boolean(true)},
		{"FALSE", bridge.Boolean(false)},
		{"NULL", bridge.Null{}},
		{"0:10", bridge.Range{From: 0, To: 10}},
		{"-1:3", bridge.Range{From: -1, To: 3}},
		{"a:b", bridge.Text("a:b")},
		{"1,2.5,3", bridge.Doubles{1, 2.5, 3}},
		{"@x", bridge.Symbol("x")},
		{"trim=0.1", bridge.Mapping{bridge.KV("trim", bridge.Number(0.1))}},
		{"na.rm=TRUE", bridge.Mapping{bridge.KV("na.rm", bridge.Boolean(true))}},
		{`"k=v"`, bridge.Text("k=v")},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, err := parseArg(tt.tok)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArg_Errors(t *testing.T) {
	for _, tok := range []string{"", `"open`, "1,x", "k="} {
		t.Run(tok, func(t *testing.T) {
			_, err := parseArg(tok)
			require.Error(t, err)
			assert.True(t, errors.IsTranslation(err))
		})
	}
}

func TestSplitLine(t *testing.T) {
	got, err := splitLine(`mean  1,2,3 "a b" label="x \" y"  trim=0.1`)
	require.NoError(t, err)
	assert.Equal(t, []string{"mean", "1,2,3", `"a b"`, `label="x \" y"`, "trim=0.1"}, got)

	_, err = splitLine(`paste "open`)
	assert.Error(t, err)

	got, err = splitLine("   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCallAndPrint(t *testing.T) {
	ctx := context.Background()
	b := bridge.New(minir.New())

	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"mean", []string{"0:10"}, "[1] 5\n"},
		{"mean", []string{"1,2,3,4", "trim=0.25"}, "[1] 2.5\n"},
		{"c", []string{`"a"`, "TRUE", "NULL"}, "[1] \"a\" \"TRUE\"\n"},
		{"x=", []string{"1:3"}, ""},
		{"x", nil, "[1] 1 2 3\n"},
		{"sum", []string{"@x"}, "[1] 6\n"},
		{"list", []string{"1", `"b"`}, "[[1]]\n[1] 1\n\n[[2]]\n[1] \"b\"\n"},
		{"character", []string{"0"}, "character(0)\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		require.NoError(t, callAndPrint(ctx, &out, b, tt.name, tt.tokens), tt.name)
		assert.Equal(t, tt.want, out.String(), tt.name)
	}
	assert.Empty(t, b.Pending())

	var out bytes.Buffer
	err := callAndPrint(ctx, &out, b, "mean", []string{"bogus=1", "1"})
	require.Error(t, err)
	assert.True(t, errors.IsEvaluation(err))
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	b := bridge.New(minir.New())

	cases := map[string]string{
		"NULL":                 "NULL",
		"c(1.5, NA, Inf)":      "[1] 1.5 NA Inf",
		"c(TRUE, NA)":          "[1] TRUE NA",
		"5L":                   "[1] 5",
		"mean":                 "<function>",
		"list()":               "list()",
		"list(list(1))":        "[[1]]\n[[1]][[1]]\n[1] 1",
		"-1/0":                 "[1] -Inf",
		"c(a = 1)":             "[1] 1",
		"as.character(c(1,2))": `[1] "1" "2"`,
	}
	for expr, want := range cases {
		v, err := b.Eval(ctx, expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, render(v), expr)
	}
	assert.Equal(t, "", render(bridge.Number(1)))
}
