/*
PURPOSE:
  Compiles user-authored model expressions such as "a*x**b + c" into an
  evaluable tree.

REQUIREMENTS:
  User-specified:
  - Only x, the declared parameters and sin/cos/exp/log may appear.
  - Evaluation failures must come back as errors, never crash the process.

  Implementation-discovered:
  - Unknown identifiers are rejected while parsing, so a stored expression
    can never reach an undeclared name at run time.
  - Operator precedence follows the stored expression syntax: ** binds
    tighter than unary minus on its left and is right-associative.

ARCHITECTURE INTEGRATION:
  - Called by: internal/customfn
  - Depends on: nothing outside the standard library

ERROR HANDLING:
  - *CompileError for syntax and symbol-table violations.
  - *EvalError wrapping ErrUnbound / ErrNonFinite at evaluation time.

IMPLEMENTATION RULES:
  - Recursive descent, one function per precedence level.

USAGE:
  p, err := expr.Compile("a*x + b", []string{"a", "b"})
  y, err := p.Eval(2.0, 3.0, 1.0)

RELATED FILES:
  - internal/expr/ast.go
  - internal/expr/lexer.go
*/

package expr

import (
	"math"
	"strconv"
)

const reservedX = "x"

// Program is a compiled expression bound to an ordered parameter list.
type Program struct {
	src    string
	root   node
	params []string
	used   []string
}

// Compile parses src against the symbol table {x, params..., sin, cos, exp, log}.
func Compile(src string, params []string) (*Program, error) {
	slots := make(map[string]int, len(params))
	for i, name := range params {
		if err := checkParamName(src, name); err != nil {
			return nil, err
		}
		if _, dup := slots[name]; dup {
			return nil, &CompileError{Expr: src, Msg: "duplicate parameter " + strconv.Quote(name)}
		}
		slots[name] = i
	}

	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, toks: toks, slots: slots, used: map[string]bool{}}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected "+describe(t))
	}

	var used []string
	for _, name := range params {
		if p.used[name] {
			used = append(used, name)
		}
	}

	return &Program{
		src:    src,
		root:   root,
		params: append([]string(nil), params...),
		used:   used,
	}, nil
}

func checkParamName(src, name string) error {
	if name == "" {
		return &CompileError{Expr: src, Msg: "empty parameter name"}
	}
	toks, err := tokenize(name)
	if err != nil || len(toks) != 2 || toks[0].kind != tokIdent {
		return &CompileError{Expr: src, Msg: "invalid parameter name " + strconv.Quote(name)}
	}
	if name == reservedX {
		return &CompileError{Expr: src, Msg: "parameter may not be named x"}
	}
	if _, ok := builtins[name]; ok {
		return &CompileError{Expr: src, Msg: "parameter may not shadow function " + strconv.Quote(name)}
	}
	return nil
}

// Eval evaluates the program at a single x. args bind to the declared
// parameters in order; missing trailing args leave those parameters unbound
// and extra args are ignored.
func (p *Program) Eval(x float64, args ...float64) (float64, error) {
	v, err := p.root.eval(&env{x: x, args: args})
	if err != nil {
		return 0, &EvalError{Expr: p.src, X: x, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvalError{Expr: p.src, X: x, Err: ErrNonFinite}
	}
	return v, nil
}

// EvalSlice evaluates the program at every element of xs.
func (p *Program) EvalSlice(xs []float64, args ...float64) ([]float64, error) {
	out := make([]float64, len(xs))
	e := &env{args: args}
	for i, x := range xs {
		e.x = x
		v, err := p.root.eval(e)
		if err != nil {
			return nil, &EvalError{Expr: p.src, X: x, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &EvalError{Expr: p.src, X: x, Err: ErrNonFinite}
		}
		out[i] = v
	}
	return out, nil
}

// Source returns the expression text as compiled.
func (p *Program) Source() string { return p.src }

// Params returns the declared parameters in binding order.
func (p *Program) Params() []string { return append([]string(nil), p.params...) }

// Used returns the declared parameters the expression actually references.
func (p *Program) Used() []string { return append([]string(nil), p.used...) }

// String renders the fully parenthesised form of the parsed tree.
func (p *Program) String() string { return p.root.String() }

// ============================================================
// Parser
// ============================================================

type parser struct {
	src   string
	toks  []token
	i     int
	slots map[string]int
	used  map[string]bool
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, msg string) error {
	return &CompileError{Expr: p.src, Pos: t.pos, Msg: msg}
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

// sum := product (('+'|'-') product)*
func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, l: left, r: right}
	}
	return left, nil
}

// product := unary (('*'|'/') unary)*
func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, l: left, r: right}
	}
	return left, nil
}

// unary := ('+'|'-') unary | power
func (p *parser) parseUnary() (node, error) {
	if p.isOp("-") {
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return neg{arg: arg}, nil
	}
	if p.isOp("+") {
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

// power := atom ('**' unary)?
func (p *parser) parsePower() (node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binary{op: "**", l: base, r: exp}, nil
	}
	return base, nil
}

// atom := number | ident | ident '(' sum ')' | '(' sum ')'
func (p *parser) parseAtom() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return num{v: t.num}, nil
	case tokLParen:
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.resolve(t)
	default:
		return nil, p.errorf(t, "unexpected "+describe(t))
	}
}

func (p *parser) resolve(t token) (node, error) {
	if fn, ok := builtins[t.text]; ok {
		if p.peek().kind != tokLParen {
			return nil, p.errorf(t, "function "+t.text+" must be called")
		}
		p.next()
		arg, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek().kind == tokComma {
			return nil, p.errorf(p.peek(), "function "+t.text+" takes one argument")
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return call{name: t.text, fn: fn, arg: arg}, nil
	}

	var n node
	switch slot, ok := p.slots[t.text]; {
	case t.text == reservedX:
		n = xvar{}
	case ok:
		p.used[t.text] = true
		n = param{name: t.text, slot: slot}
	default:
		return nil, p.errorf(t, "unknown name "+strconv.Quote(t.text))
	}
	if p.peek().kind == tokLParen {
		return nil, p.errorf(p.peek(), strconv.Quote(t.text)+" is not a function")
	}
	return n, nil
}

func (p *parser) expect(kind tokenKind) error {
	t := p.next()
	if t.kind != kind {
		return p.errorf(t, "expected "+kind.String()+", found "+describe(t))
	}
	return nil
}

func describe(t token) string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return strconv.Quote(t.text)
}
