package expr

import (
	"fmt"
	"math"
	"strconv"
)

// builtins is the complete set of callable names. Nothing else resolves.
var builtins = map[string]func(float64) float64{
	"sin": math.Sin,
	"cos": math.Cos,
	"exp": math.Exp,
	"log": math.Log,
}

// env binds x and the supplied parameter values for one evaluation.
// Parameters at or beyond len(args) are unbound.
type env struct {
	x    float64
	args []float64
}

type node interface {
	eval(e *env) (float64, error)
	String() string
}

// ============================================================
// Leaves
// ============================================================

type num struct{ v float64 }

func (n num) eval(*env) (float64, error) { return n.v, nil }
func (n num) String() string             { return strconv.FormatFloat(n.v, 'g', -1, 64) }

type xvar struct{}

func (xvar) eval(e *env) (float64, error) { return e.x, nil }
func (xvar) String() string               { return "x" }

type param struct {
	name string
	slot int
}

func (p param) eval(e *env) (float64, error) {
	if p.slot >= len(e.args) {
		return 0, fmt.Errorf("%w: %s", ErrUnbound, p.name)
	}
	return e.args[p.slot], nil
}
func (p param) String() string { return p.name }

// ============================================================
// Operators
// ============================================================

type neg struct{ arg node }

func (n neg) eval(e *env) (float64, error) {
	v, err := n.arg.eval(e)
	if err != nil {
		return 0, err
	}
	return -v, nil
}
func (n neg) String() string { return "-(" + n.arg.String() + ")" }

type binary struct {
	op   string
	l, r node
}

func (b binary) eval(e *env) (float64, error) {
	l, err := b.l.eval(e)
	if err != nil {
		return 0, err
	}
	r, err := b.r.eval(e)
	if err != nil {
		return 0, err
	}
	switch b.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "**":
		return math.Pow(l, r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", b.op)
}

func (b binary) String() string {
	return "(" + b.l.String() + " " + b.op + " " + b.r.String() + ")"
}

type call struct {
	name string
	fn   func(float64) float64
	arg  node
}

func (c call) eval(e *env) (float64, error) {
	v, err := c.arg.eval(e)
	if err != nil {
		return 0, err
	}
	return c.fn(v), nil
}
func (c call) String() string { return c.name + "(" + c.arg.String() + ")" }
