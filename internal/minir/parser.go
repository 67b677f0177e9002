package minir

import (
	"fmt"
	"strconv"
)

type node interface{ node() }

type (
	numLit  struct{ v float64 }
	intLit  struct{ v int32 }
	strLit  struct{ v string }
	boolLit struct{ v bool }
	nullLit struct{}
	naLit   struct{}
	ident   struct{ name string }

	callNode struct {
		fn   node
		args []argNode
	}
	indexNode struct {
		obj    node
		args   []argNode
		double bool
	}
	dollarNode struct {
		obj  node
		name string
	}
	unaryNode struct {
		x  node
		op string
	}
	binaryNode struct {
		l, r node
		op   string
	}
	assignNode struct {
		lhs, rhs node
	}
	blockNode struct {
		stmts []node
	}
)

// argNode is one call or index argument. val is nil for an empty
// argument, as in x[, 1].
type argNode struct {
	val  node
	name string
}

func (numLit) node()     {}
func (intLit) node()     {}
func (strLit) node()     {}
func (boolLit) node()    {}
func (nullLit) node()    {}
func (naLit) node()      {}
func (ident) node()      {}
func (callNode) node()   {}
func (indexNode) node()  {}
func (dollarNode) node() {}
func (unaryNode) node()  {}
func (binaryNode) node() {}
func (assignNode) node() {}
func (blockNode) node()  {}

// binding powers
const (
	bpAssign  = 10
	bpOr      = 20
	bpAnd     = 30
	bpNot     = 35
	bpCompare = 50
	bpAdd     = 60
	bpMul     = 70
	bpRange   = 80
	bpUnary   = 85
	bpPow     = 90
	bpPostfix = 100
)

var infix = map[string]int{
	"<-": bpAssign, "=": bpAssign,
	"||": bpOr, "|": bpOr,
	"&&": bpAnd, "&": bpAnd,
	"==": bpCompare, "!=": bpCompare, "<": bpCompare, ">": bpCompare, "<=": bpCompare, ">=": bpCompare,
	"+": bpAdd, "-": bpAdd,
	"*": bpMul, "/": bpMul,
	":": bpRange,
	"^": bpPow,
	"(": bpPostfix, "[": bpPostfix, "[[": bpPostfix, "$": bpPostfix,
}

type parser struct {
	toks []token
	pos  int
}

// parse parses a whole program.
func parse(src string) (*blockNode, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	block := &blockNode{}
	for {
		p.skipSeps()
		if p.peek().kind == tokEOF {
			return block, nil
		}
		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		block.stmts = append(block.stmts, n)
		if t := p.peek(); t.kind != tokSep && t.kind != tokEOF {
			return nil, p.unexpected(t)
		}
	}
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipSeps() {
	for p.peek().kind == tokSep {
		p.pos++
	}
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) expect(text string) error {
	if !p.isOp(text) {
		return p.unexpected(p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) unexpected(t token) error {
	return fmt.Errorf("unexpected %s at offset %d", t, t.pos)
}

func (p *parser) expr(rbp int) (node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		lbp, ok := infix[t.text]
		if !ok || lbp <= rbp {
			return left, nil
		}
		p.next()
		switch t.text {
		case "(":
			args, err := p.args(")")
			if err != nil {
				return nil, err
			}
			left = &callNode{fn: left, args: args}
		case "[":
			args, err := p.args("]")
			if err != nil {
				return nil, err
			}
			left = &indexNode{obj: left, args: args}
		case "[[":
			args, err := p.args("]")
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			left = &indexNode{obj: left, args: args, double: true}
		case "$":
			nt := p.next()
			if nt.kind != tokIdent && nt.kind != tokStr {
				return nil, p.unexpected(nt)
			}
			left = &dollarNode{obj: left, name: nt.text}
		case "<-", "=":
			// right associative
			p.skipSeps()
			rhs, err := p.expr(lbp - 1)
			if err != nil {
				return nil, err
			}
			left = &assignNode{lhs: left, rhs: rhs}
		case "^":
			p.skipSeps()
			rhs, err := p.expr(lbp - 1)
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: t.text, l: left, r: rhs}
		default:
			p.skipSeps()
			rhs, err := p.expr(lbp)
			if err != nil {
				return nil, err
			}
			left = &binaryNode{op: t.text, l: left, r: rhs}
		}
	}
}

func (p *parser) prefix() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at offset %d", t.text, t.pos)
		}
		return &numLit{v: f}, nil
	case tokInt:
		n, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q at offset %d", t.text, t.pos)
		}
		return &intLit{v: int32(n)}, nil
	case tokStr:
		return &strLit{v: t.text}, nil
	case tokIdent:
		switch t.text {
		case "TRUE":
			return &boolLit{v: true}, nil
		case "FALSE":
			return &boolLit{v: false}, nil
		case "NULL":
			return &nullLit{}, nil
		case "NA":
			return &naLit{}, nil
		case "Inf":
			return &numLit{v: posInf}, nil
		case "NaN":
			return &numLit{v: nan}, nil
		}
		return &ident{name: t.text}, nil
	case tokOp:
		switch t.text {
		case "(":
			p.skipSeps()
			n, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			p.skipSeps()
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		case "{":
			block := &blockNode{}
			for {
				p.skipSeps()
				if p.isOp("}") {
					p.next()
					return block, nil
				}
				n, err := p.expr(0)
				if err != nil {
					return nil, err
				}
				block.stmts = append(block.stmts, n)
			}
		case "-", "+":
			x, err := p.expr(bpUnary)
			if err != nil {
				return nil, err
			}
			return &unaryNode{op: t.text, x: x}, nil
		case "!":
			x, err := p.expr(bpNot)
			if err != nil {
				return nil, err
			}
			return &unaryNode{op: "!", x: x}, nil
		}
	}
	return nil, p.unexpected(t)
}

// args parses a comma separated argument list up to and including close.
func (p *parser) args(close string) ([]argNode, error) {
	var args []argNode
	if p.isOp(close) {
		p.next()
		return nil, nil
	}
	for {
		var a argNode
		t := p.peek()
		if (t.kind == tokIdent || t.kind == tokStr) && p.pos+1 < len(p.toks) {
			if nt := p.toks[p.pos+1]; nt.kind == tokOp && nt.text == "=" {
				a.name = t.text
				p.pos += 2
			}
		}
		if !p.isOp(",") && !p.isOp(close) {
			n, err := p.expr(bpAssign)
			if err != nil {
				return nil, err
			}
			a.val = n
		}
		args = append(args, a)
		switch {
		case p.isOp(","):
			p.next()
		case p.isOp(close):
			p.next()
			return args, nil
		default:
			return nil, p.unexpected(p.peek())
		}
	}
}
