package functions

import (
	"fmt"

	"github.com/daryltucker/curve-fitter/internal/model"
)

// Source is a named collection of models: the built-in Registry or the
// custom-function manager.
type Source interface {
	Names() []string
	Describe(name string) (model.Descriptor, model.Func, bool)
}

// Catalog resolves model names across several sources. Earlier sources win
// when a name appears in more than one.
type Catalog struct {
	sources []Source
}

// NewCatalog returns a catalog searching sources in order.
func NewCatalog(sources ...Source) *Catalog {
	return &Catalog{sources: sources}
}

// Lookup returns the descriptor and evaluator for name, or
// model.ErrUnknownFunction when no source has it.
func (c *Catalog) Lookup(name string) (model.Descriptor, model.Func, error) {
	for _, s := range c.sources {
		if d, f, ok := s.Describe(name); ok {
			return d, f, nil
		}
	}
	return model.Descriptor{}, nil, fmt.Errorf("%w: %q", model.ErrUnknownFunction, name)
}

// Callable returns the evaluator for name.
func (c *Catalog) Callable(name string) (model.Func, bool) {
	_, f, err := c.Lookup(name)
	return f, err == nil
}

// Info returns the lookup record for name.
func (c *Catalog) Info(name string) (model.Info, bool) {
	d, _, err := c.Lookup(name)
	if err != nil {
		return model.Info{}, false
	}
	return d.Info(), true
}

// Names lists every resolvable name once, source by source.
func (c *Catalog) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range c.sources {
		for _, n := range s.Names() {
			if seen[n] {
				continue
			}
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
