package cli

import (
	"errors"
	"fmt"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/customfn"
	"github.com/daryltucker/curve-fitter/internal/dataset"
	"github.com/daryltucker/curve-fitter/internal/engine"
	"github.com/daryltucker/curve-fitter/internal/functions"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// session wires the catalogs and the dispatcher for one command.
type session struct {
	cfg        *config.Config
	registry   *functions.Registry
	custom     *customfn.Manager
	catalog    *functions.Catalog
	dispatcher *engine.Dispatcher

	// storeErr is set when the custom-function store could not be read.
	storeErr error
}

// openSession loads the custom-function store and builds a dispatcher whose
// defaults are the configured algorithm settings. Built-ins shadow custom
// functions of the same name. An unreadable store leaves the custom catalog
// empty; only writes to it are refused.
func openSession(cfg *config.Config) (*session, error) {
	registry := functions.NewRegistry()
	custom := customfn.New(cfg.StorePath)

	var storeErr error
	if err := custom.Load(); err != nil {
		var perr *customfn.PersistenceError
		if !errors.As(err, &perr) {
			return nil, err
		}
		output.Logger.Warn("Continuing without custom functions", "path", custom.Path(), "error", err)
		storeErr = err
	}
	catalog := functions.NewCatalog(registry, custom)

	return &session{
		cfg:        cfg,
		registry:   registry,
		custom:     custom,
		catalog:    catalog,
		dispatcher: engine.New(catalog, engine.WithDefaults(cfg.Algorithms)),
		storeErr:   storeErr,
	}, nil
}

// writableStore refuses changes that would overwrite a store that failed
// to load.
func (s *session) writableStore() error {
	if s.storeErr != nil {
		return fmt.Errorf("refusing to modify custom functions until %s is repaired: %w", s.custom.Path(), s.storeErr)
	}
	return nil
}

// datasets returns a dataset manager over the configured synthetic domain.
func (s *session) datasets() *dataset.Manager {
	opts := []dataset.Option{dataset.WithDomain(s.cfg.Synthetic.XMin, s.cfg.Synthetic.XMax)}
	if s.cfg.Synthetic.Seed != 0 {
		opts = append(opts, dataset.WithSeed(s.cfg.Synthetic.Seed))
	}
	return dataset.New(opts...)
}
