package functions

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/curve-fitter/internal/model"
)

func TestRegistry_BuiltinCatalog(t *testing.T) {
	reg := NewRegistry()

	want := []struct {
		name     string
		equation string
		count    int
	}{
		{"Linear", "y = a*x + b", 2},
		{"Quadratic", "y = a*x^2 + b*x + c", 3},
		{"Cubic", "y = a*x^3 + b*x^2 + c*x + d", 4},
		{"Power Law", "y = a*x^b + c", 3},
		{"Exponential", "y = a*exp(b*x) + c", 3},
		{"Double Power Law", "y = a*x^b + c*x^d", 4},
		{"Triple Power Law", "y = a*x^b + c*x^d + e*x^f", 6},
	}

	names := reg.Names()
	require.Len(t, names, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, names[i])

		info, ok := reg.Info(w.name)
		require.True(t, ok, w.name)
		assert.Equal(t, w.equation, info.Equation)
		assert.Equal(t, w.count, info.ParamCount)
	}
}

func TestRegistry_ArityConsistency(t *testing.T) {
	reg := NewRegistry()
	xs := []float64{0.1, 0.5, 1, 2.5, 10}

	for _, name := range reg.Names() {
		info, ok := reg.Info(name)
		require.True(t, ok)
		assert.Equal(t, len(info.Params), info.ParamCount, name)

		f, ok := reg.Callable(name)
		require.True(t, ok)

		params := make([]float64, info.ParamCount)
		for i := range params {
			params[i] = 0.5
		}
		ys, err := f(xs, params...)
		require.NoError(t, err, name)
		require.Len(t, ys, len(xs))
		for _, y := range ys {
			assert.False(t, math.IsNaN(y) || math.IsInf(y, 0), name)
		}

		_, err = f(xs, append(params, 1)...)
		assert.ErrorIs(t, err, model.ErrInvalidConfig, name)
	}
}

func TestRegistry_Evaluators(t *testing.T) {
	reg := NewRegistry()
	xs := []float64{1, 2, 4}

	tests := []struct {
		name   string
		params []float64
		want   []float64
	}{
		{"Linear", []float64{2.5, 1}, []float64{3.5, 6, 11}},
		{"Quadratic", []float64{1, 0, 1}, []float64{2, 5, 17}},
		{"Cubic", []float64{1, 0, 0, 1}, []float64{2, 9, 65}},
		{"Power Law", []float64{2, 0.5, 1}, []float64{3, 2*math.Sqrt2 + 1, 5}},
		{"Exponential", []float64{1, 0, 1}, []float64{2, 2, 2}},
		{"Double Power Law", []float64{1, 1, 1, 2}, []float64{2, 6, 20}},
		{"Triple Power Law", []float64{1, 0, 1, 1, 1, 2}, []float64{3, 7, 21}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := reg.Callable(tt.name)
			require.True(t, ok)
			got, err := f(xs, tt.params...)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestRegistry_UnknownName(t *testing.T) {
	reg := NewRegistry()

	f, ok := reg.Callable("Gaussian")
	assert.False(t, ok)
	assert.Nil(t, f)

	_, ok = reg.Info("Gaussian")
	assert.False(t, ok)
}

func TestRegistry_RegisterOrReplace(t *testing.T) {
	reg := NewRegistry()
	constant := func(v float64) model.Func {
		return func(xs []float64, _ ...float64) ([]float64, error) {
			out := make([]float64, len(xs))
			for i := range out {
				out[i] = v
			}
			return out, nil
		}
	}

	m := Model{
		Descriptor: model.Descriptor{Name: "Constant", Equation: "y = k", ParamNames: []string{"k"}},
		Eval:       constant(1),
	}
	require.NoError(t, reg.Register(m, false))
	assert.Equal(t, "Constant", reg.Names()[len(reg.Names())-1])

	err := reg.Register(m, false)
	assert.ErrorIs(t, err, model.ErrFunctionExists)

	m.Eval = constant(2)
	m.Equation = "y = 2"
	require.NoError(t, reg.Register(m, true))

	names := reg.Names()
	assert.Len(t, names, 8, "replacement must not duplicate the name")
	info, _ := reg.Info("Constant")
	assert.Equal(t, "y = 2", info.Equation)

	f, _ := reg.Callable("Constant")
	ys, err := f([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, ys)

	assert.ErrorIs(t, reg.Register(Model{Eval: constant(0)}, true), model.ErrInvalidConfig)
	assert.ErrorIs(t, reg.Register(Model{Descriptor: model.Descriptor{Name: "nil"}}, true), model.ErrInvalidConfig)
}

type stubSource struct {
	models map[string]Model
	order  []string
}

func (s stubSource) Names() []string { return s.order }

func (s stubSource) Describe(name string) (model.Descriptor, model.Func, bool) {
	m, ok := s.models[name]
	return m.Descriptor, m.Eval, ok
}

func TestCatalog_Lookup(t *testing.T) {
	reg := NewRegistry()
	custom := stubSource{
		order: []string{"Saturation", "Linear"},
		models: map[string]Model{
			"Saturation": {
				Descriptor: model.Descriptor{Name: "Saturation", Equation: "a*x/(b+x)", ParamNames: []string{"a", "b"}},
				Eval:       func(xs []float64, _ ...float64) ([]float64, error) { return xs, nil },
			},
			"Linear": {
				Descriptor: model.Descriptor{Name: "Linear", Equation: "shadowed", ParamNames: []string{"m"}},
				Eval:       func(xs []float64, _ ...float64) ([]float64, error) { return xs, nil },
			},
		},
	}
	cat := NewCatalog(reg, custom)

	d, f, err := cat.Lookup("Saturation")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 2, d.ParamCount())

	d, _, err = cat.Lookup("Linear")
	require.NoError(t, err)
	assert.Equal(t, "y = a*x + b", d.Equation, "built-ins take precedence")

	_, _, err = cat.Lookup("Nope")
	assert.ErrorIs(t, err, model.ErrUnknownFunction)

	info, ok := cat.Info("Saturation")
	require.True(t, ok)
	if diff := cmp.Diff(model.Info{Equation: "a*x/(b+x)", Params: []string{"a", "b"}, ParamCount: 2}, info); diff != "" {
		t.Errorf("Info mismatch (-want +got):\n%s", diff)
	}

	names := cat.Names()
	assert.Len(t, names, 8)
	assert.Equal(t, "Saturation", names[7])
}
