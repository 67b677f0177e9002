package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom/bridge"
	"github.com/mimimalizam/scicom/errors"
)

// parseArgs converts command-line tokens into call arguments:
//
//	1.5  "text"  TRUE  FALSE  NULL  1:10  1,2,3  key=value  @variable
//
// A bare word that matches none of these is passed as text.
func parseArgs(tokens []string) ([]bridge.Arg, error) {
	args := make([]bridge.Arg, 0, len(tokens))
	for _, tok := range tokens {
		a, err := parseArg(tok)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

func parseArg(tok string) (bridge.Arg, error) {
	if key, val, ok := splitKeyValue(tok); ok {
		v, err := parseValue(val)
		if err != nil {
			return nil, err
		}
		return bridge.Mapping{bridge.KV(key, v)}, nil
	}
	return parseValue(tok)
}

func parseValue(tok string) (bridge.Arg, error) {
	switch {
	case tok == "":
		return nil, errors.InvalidInput(errors.PhaseTranslate, "empty argument")
	case strings.HasPrefix(tok, `"`):
		s, err := strconv.Unquote(tok)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseTranslate, errors.KindInvalidInput, err, "quoted argument "+tok)
		}
		return bridge.Lift(s)
	case strings.HasPrefix(tok, "@"):
		return bridge.Symbol(tok[1:]), nil
	}
	if r, ok := parseRange(tok); ok {
		return r, nil
	}
	if strings.Contains(tok, ",") {
		return parseVector(tok)
	}
	return bridge.Lift(scalar(tok))
}

// scalar returns the Go value a bare token stands for.
func scalar(tok string) any {
	switch tok {
	case "NULL":
		return nil
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f
	}
	return tok
}

func parseRange(tok string) (bridge.Range, bool) {
	from, to, ok := strings.Cut(tok, ":")
	if !ok {
		return bridge.Range{}, false
	}
	a, err1 := strconv.Atoi(from)
	b, err2 := strconv.Atoi(to)
	if err1 != nil || err2 != nil {
		return bridge.Range{}, false
	}
	return bridge.Range{From: a, To: b}, true
}

func parseVector(tok string) (bridge.Arg, error) {
	parts := strings.Split(tok, ",")
	xs := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.InvalidInput(errors.PhaseTranslate, fmt.Sprintf("element %d of %q is not a number", i+1, tok))
		}
		xs[i] = f
	}
	return bridge.Lift(xs)
}

// splitKeyValue splits key=value where key is not quoted or a symbol.
func splitKeyValue(tok string) (string, string, bool) {
	if strings.HasPrefix(tok, `"`) || strings.HasPrefix(tok, "@") {
		return "", "", false
	}
	key, val, ok := strings.Cut(tok, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, val, true
}

// splitLine splits an interactive command line on spaces, keeping double
// quoted text together with its quotes.
func splitLine(line string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quoted bool
		escape bool
		inTok  bool
	)
	for _, r := range line {
		switch {
		case escape:
			cur.WriteRune(r)
			escape = false
		case quoted && r == '\\':
			cur.WriteRune(r)
			escape = true
		case r == '"':
			cur.WriteRune(r)
			quoted = !quoted
			inTok = true
		case !quoted && (r == ' ' || r == '\t'):
			if inTok {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	if quoted {
		return nil, errors.InvalidInput(errors.PhaseTranslate, "unterminated quote")
	}
	if inTok {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
