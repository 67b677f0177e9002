package minir

import (
	"fmt"
	"math"
	"sort"

	"github.com/mimimalizam/scicom"
)

var (
	posInf = math.Inf(1)
	nan    = math.NaN()
)

// EvalError is returned for any failure inside the engine: parse errors,
// unknown names, bad arguments.
type EvalError struct {
	Call string
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Call == "" {
		return "Error: " + e.Msg
	}
	return fmt.Sprintf("Error in %s : %s", e.Call, e.Msg)
}

func errorf(call, format string, args ...any) error {
	return &EvalError{Call: call, Msg: fmt.Sprintf(format, args...)}
}

type interp struct {
	vars     map[string]*Value
	builtins map[string]*builtin
}

func newInterp() *interp {
	return &interp{vars: make(map[string]*Value), builtins: builtins}
}

func (in *interp) names() []string {
	out := make([]string, 0, len(in.vars))
	for k := range in.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (in *interp) lookup(name string) (*Value, error) {
	if v, ok := in.vars[name]; ok {
		return v, nil
	}
	if b, ok := in.builtins[name]; ok {
		return newFunc(b), nil
	}
	return nil, errorf("", "object '%s' not found", name)
}

func (in *interp) lookupFunc(name string) (*builtin, error) {
	if v, ok := in.vars[name]; ok && v.kind == scicom.KindFunction {
		return v.fn, nil
	}
	if b, ok := in.builtins[name]; ok {
		return b, nil
	}
	return nil, errorf("", "could not find function \"%s\"", name)
}

func (in *interp) run(prog *blockNode) (*Value, error) {
	result := null
	for _, stmt := range prog.stmts {
		v, err := in.eval(stmt)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (in *interp) eval(n node) (*Value, error) {
	switch n := n.(type) {
	case *numLit:
		return newDouble(n.v), nil
	case *intLit:
		return newInt(n.v), nil
	case *strLit:
		return newString(n.v), nil
	case *boolLit:
		return newLogical(n.v), nil
	case *nullLit:
		return null, nil
	case *naLit:
		return newVector(scicom.KindLogical, 1), nil
	case *ident:
		return in.lookup(n.name)
	case *blockNode:
		return in.run(n)
	case *unaryNode:
		x, err := in.eval(n.x)
		if err != nil {
			return nil, err
		}
		return unary(n.op, x)
	case *binaryNode:
		return in.evalBinary(n)
	case *assignNode:
		v, err := in.eval(n.rhs)
		if err != nil {
			return nil, err
		}
		if err := in.assign(n.lhs, v); err != nil {
			return nil, err
		}
		return v, nil
	case *callNode:
		return in.evalCall(n)
	case *indexNode:
		obj, err := in.eval(n.obj)
		if err != nil {
			return nil, err
		}
		idx, err := in.evalIndexArgs(n.args)
		if err != nil {
			return nil, err
		}
		if n.double {
			return index2(obj, idx)
		}
		return index1(obj, idx)
	case *dollarNode:
		obj, err := in.eval(n.obj)
		if err != nil {
			return nil, err
		}
		return dollar(obj, n.name)
	}
	return nil, errorf("", "cannot evaluate %T", n)
}

func (in *interp) evalBinary(n *binaryNode) (*Value, error) {
	l, err := in.eval(n.l)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "&&", "||":
		lb, err := scalarLogical(n.op, l)
		if err != nil {
			return nil, err
		}
		if lb == 1 && n.op == "||" {
			return newLogical(true), nil
		}
		if lb == 0 && n.op == "&&" {
			return newLogical(false), nil
		}
		r, err := in.eval(n.r)
		if err != nil {
			return nil, err
		}
		rb, err := scalarLogical(n.op, r)
		if err != nil {
			return nil, err
		}
		return shortCircuit(n.op, lb, rb), nil
	}
	r, err := in.eval(n.r)
	if err != nil {
		return nil, err
	}
	return binary(n.op, l, r)
}

// args are evaluated call arguments.
type arg struct {
	val  *Value
	name string
}

func (in *interp) evalArgs(nodes []argNode) ([]arg, error) {
	out := make([]arg, 0, len(nodes))
	for _, a := range nodes {
		if a.val == nil {
			return nil, errorf("", "argument %d is empty", len(out)+1)
		}
		v, err := in.eval(a.val)
		if err != nil {
			return nil, err
		}
		out = append(out, arg{name: a.name, val: v})
	}
	return out, nil
}

// evalIndexArgs evaluates subscripts; an empty subscript is nil.
func (in *interp) evalIndexArgs(nodes []argNode) ([]*Value, error) {
	out := make([]*Value, len(nodes))
	for i, a := range nodes {
		if a.val == nil {
			continue
		}
		v, err := in.eval(a.val)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (in *interp) evalCall(n *callNode) (*Value, error) {
	var (
		b   *builtin
		err error
	)
	switch fn := n.fn.(type) {
	case *ident:
		b, err = in.lookupFunc(fn.name)
	case *strLit:
		b, err = in.lookupFunc(fn.v)
	default:
		var v *Value
		if v, err = in.eval(fn); err == nil {
			if v.kind != scicom.KindFunction {
				return nil, errorf("", "attempt to apply non-function")
			}
			b = v.fn
		}
	}
	if err != nil {
		return nil, err
	}
	if b.special != nil {
		v, err := b.special(in, n.args)
		return v, callError(b.name, err)
	}
	args, err := in.evalArgs(n.args)
	if err != nil {
		return nil, err
	}
	v, err := b.call(in, args)
	return v, callError(b.name, err)
}

// callError attributes an argument failure to the builtin that raised it.
func callError(name string, err error) error {
	if e, ok := err.(*EvalError); ok && e.Call == "" && name != "" {
		return &EvalError{Call: name + "()", Msg: e.Msg}
	}
	return err
}

// assign stores v through the target expression lhs, rewriting nested
// replacement forms from the inside out.
func (in *interp) assign(lhs node, v *Value) error {
	switch t := lhs.(type) {
	case *ident:
		in.vars[t.name] = v
		return nil
	case *strLit:
		in.vars[t.v] = v
		return nil
	case *callNode:
		fn, ok := t.fn.(*ident)
		if !ok || len(t.args) == 0 || t.args[0].val == nil {
			return errorf("", "invalid assignment target")
		}
		repl, ok := in.builtins[fn.name+"<-"]
		if !ok {
			return errorf("", "could not find function \"%s<-\"", fn.name)
		}
		cur, err := in.eval(t.args[0].val)
		if err != nil {
			return err
		}
		rest, err := in.evalArgs(t.args[1:])
		if err != nil {
			return err
		}
		args := append([]arg{{val: cur}}, rest...)
		args = append(args, arg{name: "value", val: v})
		next, err := repl.call(in, args)
		if err != nil {
			return callError(repl.name, err)
		}
		return in.assign(t.args[0].val, next)
	case *indexNode:
		cur, err := in.evalTarget(t.obj)
		if err != nil {
			return err
		}
		idx, err := in.evalIndexArgs(t.args)
		if err != nil {
			return err
		}
		var next *Value
		if t.double {
			next, err = assignIndex2(cur, idx, v)
		} else {
			next, err = assignIndex1(cur, idx, v)
		}
		if err != nil {
			return err
		}
		return in.assign(t.obj, next)
	case *dollarNode:
		cur, err := in.evalTarget(t.obj)
		if err != nil {
			return err
		}
		next, err := assignDollar(cur, t.name, v)
		if err != nil {
			return err
		}
		return in.assign(t.obj, next)
	}
	return errorf("", "invalid assignment target")
}

// evalTarget evaluates the object of an element assignment; a missing
// variable starts out as NULL.
func (in *interp) evalTarget(n node) (*Value, error) {
	if id, ok := n.(*ident); ok {
		if v, ok := in.vars[id.name]; ok {
			return v, nil
		}
		return null, nil
	}
	return in.eval(n)
}
