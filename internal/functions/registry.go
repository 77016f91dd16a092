/*
PURPOSE:
  Holds the catalog of built-in function models and exposes lookup by name.

REQUIREMENTS:
  User-specified:
  - Seven fixed models (Linear .. Triple Power Law), listed in a stable order.
  - Lookup of evaluator and info by name; unknown names report absence.
  - Registration replaces an existing entry only when allowed.

  Implementation-discovered:
  - Evaluators are pure and return a fresh slice so callers may keep results.
  - Non-finite output is not an error here; the objective wrapper in
    internal/engine decides what to do with it.

ARCHITECTURE INTEGRATION:
  - Created once by internal/cli and passed into a Catalog.
  - Implements functions.Source.

ERROR HANDLING:
  - Register returns model.ErrFunctionExists / model.ErrInvalidConfig.

IMPLEMENTATION RULES:
  - Names() preserves registration order.

USAGE:
  reg := functions.NewRegistry()
  f, ok := reg.Callable("Power Law")

RELATED FILES:
  - internal/functions/catalog.go
*/

package functions

import (
	"fmt"
	"math"

	"github.com/daryltucker/curve-fitter/internal/model"
)

// Model is a named evaluator with its descriptor. Values are immutable once
// registered.
type Model struct {
	model.Descriptor
	Eval model.Func
}

// Registry is the built-in model catalog.
type Registry struct {
	order  []string
	models map[string]Model
}

// NewRegistry returns a registry seeded with the built-in models.
func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]Model)}
	for _, m := range builtins() {
		// Built-ins are distinct by construction.
		_ = r.Register(m, false)
	}
	return r
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Callable returns the evaluator registered under name.
func (r *Registry) Callable(name string) (model.Func, bool) {
	m, ok := r.models[name]
	if !ok {
		return nil, false
	}
	return m.Eval, true
}

// Info returns the equation and parameter list registered under name.
func (r *Registry) Info(name string) (model.Info, bool) {
	m, ok := r.models[name]
	if !ok {
		return model.Info{}, false
	}
	return m.Descriptor.Info(), true
}

// Model returns the full entry registered under name.
func (r *Registry) Model(name string) (Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Describe returns the descriptor and evaluator registered under name.
func (r *Registry) Describe(name string) (model.Descriptor, model.Func, bool) {
	m, ok := r.models[name]
	if !ok {
		return model.Descriptor{}, nil, false
	}
	return m.Descriptor, m.Eval, true
}

// Register adds m. An existing entry with the same name is replaced in place
// when allowOverwrite is set and rejected with model.ErrFunctionExists
// otherwise.
func (r *Registry) Register(m Model, allowOverwrite bool) error {
	if m.Name == "" {
		return fmt.Errorf("%w: model has no name", model.ErrInvalidConfig)
	}
	if m.Eval == nil {
		return fmt.Errorf("%w: model %q has no evaluator", model.ErrInvalidConfig, m.Name)
	}
	if _, exists := r.models[m.Name]; exists {
		if !allowOverwrite {
			return fmt.Errorf("%w: %s", model.ErrFunctionExists, m.Name)
		}
	} else {
		r.order = append(r.order, m.Name)
	}
	m.ParamNames = append([]string(nil), m.ParamNames...)
	r.models[m.Name] = m
	return nil
}

// ============================================================
// Built-in models
// ============================================================

func builtins() []Model {
	return []Model{
		{
			Descriptor: model.Descriptor{Name: "Linear", Equation: "y = a*x + b", ParamNames: []string{"a", "b"}},
			Eval: elementwise(2, func(x float64, p []float64) float64 {
				return p[0]*x + p[1]
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Quadratic", Equation: "y = a*x^2 + b*x + c", ParamNames: []string{"a", "b", "c"}},
			Eval: elementwise(3, func(x float64, p []float64) float64 {
				return p[0]*x*x + p[1]*x + p[2]
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Cubic", Equation: "y = a*x^3 + b*x^2 + c*x + d", ParamNames: []string{"a", "b", "c", "d"}},
			Eval: elementwise(4, func(x float64, p []float64) float64 {
				return p[0]*x*x*x + p[1]*x*x + p[2]*x + p[3]
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Power Law", Equation: "y = a*x^b + c", ParamNames: []string{"a", "b", "c"}},
			Eval: elementwise(3, func(x float64, p []float64) float64 {
				return p[0]*math.Pow(x, p[1]) + p[2]
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Exponential", Equation: "y = a*exp(b*x) + c", ParamNames: []string{"a", "b", "c"}},
			Eval: elementwise(3, func(x float64, p []float64) float64 {
				return p[0]*math.Exp(p[1]*x) + p[2]
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Double Power Law", Equation: "y = a*x^b + c*x^d", ParamNames: []string{"a", "b", "c", "d"}},
			Eval: elementwise(4, func(x float64, p []float64) float64 {
				return p[0]*math.Pow(x, p[1]) + p[2]*math.Pow(x, p[3])
			}),
		},
		{
			Descriptor: model.Descriptor{Name: "Triple Power Law", Equation: "y = a*x^b + c*x^d + e*x^f", ParamNames: []string{"a", "b", "c", "d", "e", "f"}},
			Eval: elementwise(6, func(x float64, p []float64) float64 {
				return p[0]*math.Pow(x, p[1]) + p[2]*math.Pow(x, p[3]) + p[4]*math.Pow(x, p[5])
			}),
		},
	}
}

// elementwise lifts a scalar model of fixed arity to a model.Func.
// A call with the wrong number of parameters is a caller error.
func elementwise(arity int, f func(x float64, p []float64) float64) model.Func {
	return func(xs []float64, params ...float64) ([]float64, error) {
		if len(params) != arity {
			return nil, fmt.Errorf("%w: expected %d parameters, got %d", model.ErrInvalidConfig, arity, len(params))
		}
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = f(x, params)
		}
		return out, nil
	}
}
