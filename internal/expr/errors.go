package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrNonFinite indicates an evaluation that produced NaN or ±Inf, such as
	// a fractional power of a negative base, log of a non-positive value or a
	// division by zero.
	ErrNonFinite = errors.New("non-finite result")

	// ErrUnbound indicates a parameter referenced by the expression that the
	// caller supplied no value for.
	ErrUnbound = errors.New("parameter not bound")
)

// CompileError reports an expression that cannot be parsed or that refers to
// a name outside its symbol table.
type CompileError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s at offset %d", e.Expr, e.Msg, e.Pos)
}

// EvalError reports a compiled expression that failed for a specific input.
type EvalError struct {
	Expr string
	X    float64
	Err  error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %q at x=%g: %v", e.Expr, e.X, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
