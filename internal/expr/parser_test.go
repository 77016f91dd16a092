package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Evaluates(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		params []string
		x      float64
		args   []float64
		want   float64
	}{
		{"linear", "a*x + b", []string{"a", "b"}, 2, []float64{3, 1}, 7},
		{"power law", "a*x**b + c", []string{"a", "b", "c"}, 4, []float64{2, 0.5, 1}, 5},
		{"caret power", "a*x^2", []string{"a"}, 3, []float64{2}, 18},
		{"right assoc power", "2**3**2", nil, 0, nil, 512},
		{"unary minus below power", "-x**2", nil, 3, nil, -9},
		{"negative exponent", "x**-1", nil, 4, nil, 0.25},
		{"precedence", "1 + 2*3 - 4/2", nil, 0, nil, 5},
		{"parens", "(1 + 2)*3", nil, 0, nil, 9},
		{"functions", "exp(log(x)) + sin(0) + cos(0)", nil, 5, nil, 6},
		{"scientific", "1e-3*x + .5", nil, 1000, nil, 1.5},
		{"unary plus", "+x", nil, 2, nil, 2},
		{"underscore names", "k_1*x", []string{"k_1"}, 2, []float64{4}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.src, tt.params)
			require.NoError(t, err)

			got, err := p.Eval(tt.x, tt.args...)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCompile_RejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		params []string
	}{
		{"undeclared parameter", "a*x + b", []string{"a"}},
		{"builtin escape", "__import__(x)", nil},
		{"unlisted function", "sqrt(x)", nil},
		{"attribute access", "np.sin(x)", nil},
		{"function as value", "sin + x", nil},
		{"call of a parameter", "a(x)", []string{"a"}},
		{"call of x", "x(1)", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, tt.params)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.src, ce.Expr)
		})
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"a*",
		"(x + 1",
		"x + 1)",
		"sin(x, 1)",
		"x $ 2",
		"2 3",
		"sin x",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src, []string{"a"})
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompile_ValidatesParamNames(t *testing.T) {
	for _, params := range [][]string{
		{"x"},
		{"sin"},
		{"a", "a"},
		{""},
		{"1a"},
		{"a b"},
	} {
		_, err := Compile("x", params)
		var ce *CompileError
		assert.ErrorAs(t, err, &ce, "params %q", params)
	}
}

func TestProgram_ErrorPosition(t *testing.T) {
	_, err := Compile("a*x + zeta", []string{"a"})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 6, ce.Pos)
	assert.Contains(t, ce.Error(), "zeta")
}

func TestProgram_EvalFailuresAreTyped(t *testing.T) {
	p, err := Compile("a*x**b", []string{"a", "b"})
	require.NoError(t, err)

	_, err = p.Eval(-8, 1, 0.5)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.True(t, errors.Is(err, ErrNonFinite))
	assert.Equal(t, -8.0, ee.X)

	div, err := Compile("1/x", nil)
	require.NoError(t, err)
	_, err = div.Eval(0)
	assert.ErrorIs(t, err, ErrNonFinite)

	lg, err := Compile("log(x)", nil)
	require.NoError(t, err)
	_, err = lg.Eval(-1)
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestProgram_PartialBinding(t *testing.T) {
	p, err := Compile("a*x + b", []string{"a", "b"})
	require.NoError(t, err)

	// Extra arguments are ignored.
	got, err := p.Eval(2, 3, 1, 99)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)

	// Missing arguments leave parameters unbound.
	_, err = p.Eval(2, 3)
	assert.ErrorIs(t, err, ErrUnbound)

	// An unreferenced trailing parameter may be left out.
	q, err := Compile("a*x", []string{"a", "unused"})
	require.NoError(t, err)
	got, err = q.Eval(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)
	assert.Equal(t, []string{"a"}, q.Used())
}

func TestProgram_EvalSlice(t *testing.T) {
	p, err := Compile("a*exp(b*x) + c", []string{"a", "b", "c"})
	require.NoError(t, err)

	xs := []float64{0, 1, 2}
	ys, err := p.EvalSlice(xs, 2, 0.5, 1)
	require.NoError(t, err)
	require.Len(t, ys, 3)
	for i, x := range xs {
		assert.InDelta(t, 2*math.Exp(0.5*x)+1, ys[i], 1e-12)
	}

	_, err = p.EvalSlice([]float64{1, 1e6}, 1, 1, 0)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1e6, ee.X)
}

func TestProgram_String(t *testing.T) {
	p, err := Compile("a*x**b + c", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "((a * (x ** b)) + c)", p.String())
	assert.Equal(t, "a*x**b + c", p.Source())
	assert.Equal(t, []string{"a", "b", "c"}, p.Params())
}
