/*
PURPOSE:
  Defines the core data structures shared across curve-fitter.
  These types describe function models, their parameters and fit outcomes.

REQUIREMENTS:
  User-specified:
  - Every model evaluates (x, params...) elementwise.
  - Fit outcomes carry fitted params plus optional solver diagnostics.

  Implementation-discovered:
  - Metadata (name, arity) travels next to the evaluator as a Descriptor,
    never recovered from the function value itself.
  - JSON tags match the persisted custom-function store and the JSON Lines output.

ARCHITECTURE INTEGRATION:
  - Used by: internal/functions, internal/customfn, internal/engine,
    internal/report, internal/output, internal/cli
  - Shared across boundaries.

ERROR HANDLING:
  - Sentinel errors live in errors.go.

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time and time.Duration for timing.

USAGE:
  desc := model.Descriptor{Name: "Linear", Equation: "y = a*x + b", ParamNames: []string{"a", "b"}}

SELF-HEALING INSTRUCTIONS:
  - If new diagnostics are needed, add field and update CSV/JSON writers.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new fields to capture.
*/

package model

import (
	"time"
)

// Func evaluates a model at every x for the given parameter values.
// The returned slice has the same length as x.
type Func func(x []float64, params ...float64) ([]float64, error)

// Descriptor names a model and declares its parameters in call order.
type Descriptor struct {
	Name       string   `json:"name"`
	Equation   string   `json:"equation"`
	ParamNames []string `json:"params"`
}

// ParamCount is the arity the evaluator expects.
func (d Descriptor) ParamCount() int {
	return len(d.ParamNames)
}

// Info returns the lookup record for the descriptor.
func (d Descriptor) Info() Info {
	return Info{
		Equation:   d.Equation,
		Params:     append([]string(nil), d.ParamNames...),
		ParamCount: len(d.ParamNames),
	}
}

// Info is the lookup record returned by catalogs.
type Info struct {
	Equation   string   `json:"equation"`
	Params     []string `json:"params"`
	ParamCount int      `json:"param_count"`
}

// Param declares one parameter of a custom function.
type Param struct {
	Name      string  `json:"name"`
	InitValue float64 `json:"init_value"`
	Desc      string  `json:"desc"`
}

// Diagnostics is the solver-specific part of a fit outcome.
// Zero counts mean the solver did not report them.
type Diagnostics struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message,omitempty"`
	Iterations  int     `json:"iterations,omitempty"`
	FuncEvals   int     `json:"func_evals,omitempty"`
	Cost        float64 `json:"cost"` // Sum of squared residuals at Params
	LocalMinima int     `json:"local_minima,omitempty"`
}

// FitResult represents the outcome of a single fitting run.
type FitResult struct {
	Algorithm   string        `json:"algorithm"`
	Function    string        `json:"function"`
	Params      []float64     `json:"params"`
	ParamNames  []string      `json:"param_names"`
	Diagnostics Diagnostics   `json:"diagnostics"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
}
