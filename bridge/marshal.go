package bridge

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom/errors"
)

var syntacticName = regexp.MustCompile(`^((([A-Za-z]|[.][._A-Za-z])[._A-Za-z0-9]*)|[.])$`)

var reserved = map[string]bool{
	"if": true, "else": true, "repeat": true, "while": true, "function": true,
	"for": true, "next": true, "break": true, "in": true,
	"TRUE": true, "FALSE": true, "NULL": true, "NA": true, "Inf": true, "NaN": true,
}

func checkAll(args []Arg) error {
	for i, a := range args {
		if err := check([]string{fmt.Sprint(i)}, a); err != nil {
			return err
		}
	}
	return nil
}

// marshalArgs renders args as a comma-joined argument list. Mappings at the
// top level contribute their pairs as named arguments.
func (b *Bridge) marshalArgs(ctx context.Context, args []Arg) (string, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		var (
			s   string
			err error
		)
		if m, ok := a.(Mapping); ok {
			s, err = b.pairs(ctx, m, ",")
		} else {
			s, err = b.literal(ctx, a)
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ","), nil
}

func (b *Bridge) pairs(ctx context.Context, m Mapping, sep string) (string, error) {
	parts := make([]string, len(m))
	for i, p := range m {
		lit, err := b.literal(ctx, p.Value)
		if err != nil {
			return "", err
		}
		parts[i] = argName(p.Key) + " = " + lit
	}
	return strings.Join(parts, sep), nil
}

// literal renders one argument as expression text, publishing bindings for
// values that have no literal form.
func (b *Bridge) literal(ctx context.Context, a Arg) (string, error) {
	switch a := a.(type) {
	case Number:
		return formatNumber(float64(a)), nil
	case Text:
		return quote(string(a)), nil
	case Boolean:
		return formatBool(bool(a)), nil
	case Null:
		return "NULL", nil
	case Symbol:
		v, err := b.pull(ctx, string(a))
		if err != nil {
			return "", err
		}
		return b.life.Acquire(ctx, v)
	case Range:
		if a.From > a.To {
			return "integer(0)", nil
		}
		return fmt.Sprintf("(%d:%d)", a.From, a.To), nil
	case Mapping:
		s, err := b.pairs(ctx, a, ", ")
		if err != nil {
			return "", err
		}
		return "list(" + s + ")", nil
	case listOf:
		parts := make([]string, len(a))
		for i, p := range a {
			lit, err := b.literal(ctx, p.Value)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "list(" + strings.Join(parts, ", ") + ")", nil
	case Array:
		return b.life.Acquire(ctx, b.Wrap(a.A))
	case *Value:
		return b.life.Acquire(ctx, a)
	case Doubles:
		return vector("numeric", len(a), func(i int) string { return formatNumber(a[i]) }), nil
	case Integers:
		return vector("integer", len(a), func(i int) string { return strconv.Itoa(a[i]) + "L" }), nil
	case Strings:
		return vector("character", len(a), func(i int) string { return quote(a[i]) }), nil
	case Logicals:
		return vector("logical", len(a), func(i int) string { return formatBool(a[i]) }), nil
	}
	return "", errors.Unsupported(nil, a)
}

func vector(empty string, n int, elem func(i int) string) string {
	if n == 0 {
		return empty + "(0)"
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = elem(i)
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// quote renders s as a double-quoted literal with quotes, backslashes and
// control characters escaped.
func quote(s string) string {
	return strconv.Quote(s)
}

// argName renders a mapping key, backquoting names that are not syntactic.
func argName(key string) string {
	if syntacticName.MatchString(key) && !reserved[key] {
		return key
	}
	return "`" + strings.ReplaceAll(key, "`", "\\`") + "`"
}
