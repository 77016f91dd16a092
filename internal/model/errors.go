package model

import "errors"

// Domain errors shared by the catalogs, the dispatcher and the dataset manager.
var (
	// ErrUnknownFunction indicates a model name found in no catalog.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownAlgorithm indicates an optimizer name outside the supported set.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrFunctionExists indicates a registration that would replace an entry
	// while overwriting was not allowed.
	ErrFunctionExists = errors.New("function already registered")

	// ErrInvalidData indicates x/y samples of different or zero length, or
	// non-finite sample values.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidConfig indicates an option value the dispatcher cannot use.
	ErrInvalidConfig = errors.New("invalid configuration")
)
