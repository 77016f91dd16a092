package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// Options tunes every optimizer. It is the algorithms section of the
// configuration file.
type Options = config.Algorithms

// Defaults applied per parameter when bounds or guesses are missing.
const (
	DefaultLower = 0.0
	DefaultUpper = 10.0
	DefaultGuess = 1.0
)

// DefaultOptions returns the documented optimizer defaults.
func DefaultOptions() Options {
	return config.DefaultAlgorithms()
}

// normalizeBounds returns exactly n bounds. An empty input means the default
// box; other length mismatches are padded with the default box or truncated,
// unless strict is set.
func normalizeBounds(bounds [][2]float64, n int, strict bool, what string) ([][2]float64, error) {
	out := make([][2]float64, n)
	if len(bounds) != 0 && len(bounds) != n {
		if strict {
			return nil, fmt.Errorf("%w: %s has %d bounds, model has %d parameters", model.ErrInvalidConfig, what, len(bounds), n)
		}
		output.Logger.Warn("Bounds length does not match parameter count, coercing",
			"option", what, "got", len(bounds), "want", n)
	}
	for i := range out {
		if i < len(bounds) {
			out[i] = bounds[i]
		} else {
			out[i] = [2]float64{DefaultLower, DefaultUpper}
		}
	}
	for i, b := range out {
		if !finite(b[0]) || !finite(b[1]) || b[0] > b[1] {
			return nil, fmt.Errorf("%w: %s bound %d is %v", model.ErrInvalidConfig, what, i, b)
		}
	}
	return out, nil
}

// normalizeGuess returns exactly n starting values, padding with
// DefaultGuess or truncating unless strict is set.
func normalizeGuess(x0 []float64, n int, strict bool, what string) ([]float64, error) {
	if len(x0) != 0 && len(x0) != n {
		if strict {
			return nil, fmt.Errorf("%w: %s has %d values, model has %d parameters", model.ErrInvalidConfig, what, len(x0), n)
		}
		output.Logger.Warn("Initial guess length does not match parameter count, coercing",
			"option", what, "got", len(x0), "want", n)
	}
	out := make([]float64, n)
	for i := range out {
		if i < len(x0) {
			out[i] = x0[i]
		} else {
			out[i] = DefaultGuess
		}
		if !finite(out[i]) {
			return nil, fmt.Errorf("%w: %s value %d is %v", model.ErrInvalidConfig, what, i, out[i])
		}
	}
	return out, nil
}

// normalizeLimits expands per-parameter least-squares limits. A single value
// applies to every parameter; an empty list means fill.
func normalizeLimits(limits []float64, n int, fill float64, strict bool, what string) ([]float64, error) {
	out := make([]float64, n)
	switch {
	case len(limits) == 0:
		for i := range out {
			out[i] = fill
		}
		return out, nil
	case len(limits) == 1:
		for i := range out {
			out[i] = limits[0]
		}
		return out, nil
	case len(limits) != n:
		if strict {
			return nil, fmt.Errorf("%w: %s has %d values, model has %d parameters", model.ErrInvalidConfig, what, len(limits), n)
		}
		output.Logger.Warn("Limit length does not match parameter count, coercing",
			"option", what, "got", len(limits), "want", n)
	}
	for i := range out {
		if i < len(limits) {
			out[i] = limits[i]
		} else {
			out[i] = fill
		}
	}
	return out, nil
}

// ParseBounds reads bounds written as "lo:hi,lo:hi" or "[lo,hi],[lo,hi]".
func ParseBounds(s string) ([][2]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var pairs []string
	if strings.ContainsAny(s, "[(") {
		r := strings.NewReplacer("[", "", "(", "", "]", ";", ")", ";")
		for _, p := range strings.Split(r.Replace(s), ";") {
			p = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), ","))
			if p != "" {
				pairs = append(pairs, p)
			}
		}
	} else {
		pairs = strings.Split(s, ",")
	}

	out := make([][2]float64, 0, len(pairs))
	for _, p := range pairs {
		lo, hi, ok := strings.Cut(p, ":")
		if !ok {
			lo, hi, ok = strings.Cut(p, ",")
		}
		if !ok {
			return nil, fmt.Errorf("%w: bound %q is not lo:hi", model.ErrInvalidConfig, p)
		}
		l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bound %q: %v", model.ErrInvalidConfig, p, err)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bound %q: %v", model.ErrInvalidConfig, p, err)
		}
		if l > h {
			return nil, fmt.Errorf("%w: bound %q has lower above upper", model.ErrInvalidConfig, p)
		}
		out = append(out, [2]float64{l, h})
	}
	return out, nil
}

// ParseFloats reads a comma-separated list of numbers.
func ParseFloats(s string) ([]float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]()")
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", model.ErrInvalidConfig, f)
		}
		out[i] = v
	}
	return out, nil
}

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

func isConfigError(err error) bool {
	return errors.Is(err, model.ErrInvalidConfig)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
