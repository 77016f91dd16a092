package engine

import (
	"fmt"
	"strings"

	"github.com/daryltucker/curve-fitter/internal/model"
)

// Algorithm names an optimizer by its display name.
type Algorithm string

const (
	DifferentialEvolution Algorithm = "Differential Evolution"
	BasinHopping          Algorithm = "Basin Hopping"
	SHGO                  Algorithm = "SHGO"
	DualAnnealing         Algorithm = "Dual Annealing"
	LeastSquares          Algorithm = "Least Squares"
)

var algorithmOrder = []Algorithm{DifferentialEvolution, BasinHopping, SHGO, DualAnnealing, LeastSquares}

var aliases = map[string]Algorithm{
	"differential_evolution": DifferentialEvolution,
	"de":                     DifferentialEvolution,
	"basin_hopping":          BasinHopping,
	"basinhopping":           BasinHopping,
	"bh":                     BasinHopping,
	"shgo":                   SHGO,
	"dual_annealing":         DualAnnealing,
	"da":                     DualAnnealing,
	"least_squares":          LeastSquares,
	"lsq":                    LeastSquares,
}

var descriptions = map[Algorithm]string{
	DifferentialEvolution: "Stochastic population-based global search. Good for non-differentiable, " +
		"non-linear and multi-modal objectives.",
	BasinHopping: "Random displacement followed by local minimisation at each step. " +
		"Good for objectives with many local minima.",
	SHGO: "Samples the bounded parameter space and minimises locally from every sample " +
		"that is lower than its neighbours. Suited to expensive objectives.",
	DualAnnealing: "Generalised simulated annealing combined with local search. " +
		"Finds global minima among many local ones.",
	LeastSquares: "Minimises the sum of squared residuals directly. The usual choice when the " +
		"model is simple and a good initial guess is available.",
}

// Algorithms returns every supported optimizer in presentation order.
func Algorithms() []Algorithm {
	return append([]Algorithm(nil), algorithmOrder...)
}

// ParseAlgorithm resolves a display name (any case) or alias.
func ParseAlgorithm(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, a := range algorithmOrder {
		if strings.ToLower(string(a)) == key {
			return a, nil
		}
	}
	if a, ok := aliases[key]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, name)
}

// Known reports whether a is a supported optimizer.
func (a Algorithm) Known() bool {
	_, ok := descriptions[a]
	return ok
}

// Description is a one-paragraph summary for listings.
func (a Algorithm) Description() string {
	if d, ok := descriptions[a]; ok {
		return d
	}
	return "No description available."
}

func (a Algorithm) String() string {
	return string(a)
}
