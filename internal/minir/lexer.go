package minir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNum
	tokInt
	tokStr
	tokIdent
	tokOp
	tokSep // newline or ;
)

type token struct {
	text string
	kind tokKind
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokSep:
		return "end of line"
	case tokStr:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("'%s'", t.text)
	}
}

// operators longest first so that prefix matches lose. A closing ]] is
// lexed as two ] tokens.
var operators = []string{
	"[[", "<-", "<=", ">=", "==", "!=", "&&", "||",
	"+", "-", "*", "/", "^", ":", "<", ">", "!", "&", "|", "=",
	"(", ")", "[", "]", ",", "$", "{", "}",
}

func lex(src string) ([]token, error) {
	var (
		toks  []token
		depth []string // open brackets; newlines inside ( and [ are ignored
	)
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '\n' || c == ';':
			if len(depth) == 0 || depth[len(depth)-1] == "{" {
				toks = append(toks, token{kind: tokSep, text: string(c), pos: i})
			}
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r':
			i++
			continue
		case c == '"' || c == '\'':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("%w at offset %d", err, i)
			}
			toks = append(toks, token{kind: tokStr, text: s, pos: i})
			i += n
			continue
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := i
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && isDigit(src[k]) {
					j = k
					for j < len(src) && isDigit(src[j]) {
						j++
					}
				}
			}
			if j < len(src) && src[j] == 'L' {
				toks = append(toks, token{kind: tokInt, text: src[i:j], pos: i})
				i = j + 1
				continue
			}
			toks = append(toks, token{kind: tokNum, text: src[i:j], pos: i})
			i = j
			continue
		case c == '`':
			j := strings.IndexByte(src[i+1:], '`')
			if j < 0 {
				return nil, fmt.Errorf("unterminated backquote at offset %d", i)
			}
			toks = append(toks, token{kind: tokIdent, text: src[i+1 : i+1+j], pos: i})
			i += j + 2
			continue
		}
		r, size := utf8.DecodeRuneInString(src[i:])
		if r == '.' || r == '_' || unicode.IsLetter(r) {
			j := i + size
			for j < len(src) {
				r, n := utf8.DecodeRuneInString(src[j:])
				if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				j += n
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
			continue
		}
		op := ""
		for _, o := range operators {
			if strings.HasPrefix(src[i:], o) {
				op = o
				break
			}
		}
		if op == "" {
			return nil, fmt.Errorf("unexpected input %q at offset %d", r, i)
		}
		switch op {
		case "(", "[", "{":
			depth = append(depth, op)
		case "[[":
			depth = append(depth, "[", "[")
		case ")", "]", "}":
			if len(depth) > 0 {
				depth = depth[:len(depth)-1]
			}
		}
		toks = append(toks, token{kind: tokOp, text: op, pos: i})
		i += len(op)
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexString reads a quoted literal at the start of s and returns its value
// and the number of bytes consumed.
func lexString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case 'x':
				if i+2 >= len(s) {
					return "", 0, fmt.Errorf("bad \\x escape")
				}
				v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
				if err != nil {
					return "", 0, fmt.Errorf("bad \\x escape")
				}
				b.WriteByte(byte(v))
				i += 2
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case 'u', 'U':
				digits := 4
				if s[i] == 'U' {
					digits = 8
				}
				j := i + 1
				for j < len(s) && j <= i+digits && isHex(s[j]) {
					j++
				}
				r, err := strconv.ParseUint(s[i+1:j], 16, 32)
				if err != nil || r > utf8.MaxRune {
					return "", 0, fmt.Errorf("bad \\%c escape", s[i])
				}
				b.WriteRune(rune(r))
				i = j - 1
			default:
				b.WriteByte(s[i])
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
