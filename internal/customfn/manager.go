/*
PURPOSE:
  Persists and reconstructs user-defined expression models.
  The store is a single JSON document mapping name -> {expression, params}.

REQUIREMENTS:
  User-specified:
  - Load at startup, tolerate a missing file, skip malformed entries.
  - Persist on every add/remove; report failure instead of raising.
  - Reject expressions that do not compile or fail a trial evaluation.

  Implementation-discovered:
  - Evaluators are never serialized; they are rebuilt from expression+params.
  - Whole-file rewrite through a temp file + rename so a crash never leaves
    a half-written store.
  - A failed save rolls the in-memory catalog back so memory and disk agree.

ARCHITECTURE INTEGRATION:
  - Created once by internal/cli, passed to functions.NewCatalog.
  - Uses: internal/expr, internal/model, internal/output

ERROR HANDLING:
  - *PersistenceError for read/write/parse failures.
  - *expr.CompileError / *expr.EvalError from Add.

IMPLEMENTATION RULES:
  - Names() lists entries sorted on load, new entries appended.

USAGE:
  m := customfn.New("custom_functions/functions.json")
  _ = m.Load()
  err := m.Add("Saturation", "a*x/(b + x)", params)

SELF-HEALING INSTRUCTIONS:
  - If the JSON shape changes, keep storedFunction able to read existing stores.

RELATED FILES:
  - internal/expr/parser.go
  - internal/functions/catalog.go

MAINTENANCE:
  - Update storedFunction when the on-disk format gains fields.
*/

package customfn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/daryltucker/curve-fitter/internal/expr"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// CheckX is where Add evaluates a new expression once before accepting it.
const CheckX = 1.0

// PersistenceError reports a failure to read or write the store.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s custom functions %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// storedFunction is the on-disk shape of one entry.
type storedFunction struct {
	Expression string        `json:"expression"`
	Params     []model.Param `json:"params"`
}

// Function is a compiled custom model.
type Function struct {
	Name       string
	Expression string
	Params     []model.Param

	program *expr.Program
}

// Eval evaluates the function at every x. args bind to Params in order.
func (f *Function) Eval(x []float64, args ...float64) ([]float64, error) {
	return f.program.EvalSlice(x, args...)
}

// Descriptor returns the function's name, equation and parameter names.
func (f *Function) Descriptor() model.Descriptor {
	return model.Descriptor{
		Name:       f.Name,
		Equation:   f.Expression,
		ParamNames: paramNames(f.Params),
	}
}

// InitialValues returns the declared initial value of every parameter.
func (f *Function) InitialValues() []float64 {
	vals := make([]float64, len(f.Params))
	for i, p := range f.Params {
		vals[i] = p.InitValue
	}
	return vals
}

// Manager holds the custom catalog and its backing file.
type Manager struct {
	path  string
	order []string
	funcs map[string]*Function
}

// New returns an empty manager backed by path. Call Load to read the store.
func New(path string) *Manager {
	return &Manager{
		path:  path,
		funcs: make(map[string]*Function),
	}
}

// Path returns the backing file.
func (m *Manager) Path() string {
	return m.path
}

// Load replaces the in-memory catalog with the store's contents.
// A missing file yields an empty catalog and no error. An unreadable or
// malformed file yields an empty catalog and a *PersistenceError.
// Entries that fail to compile are logged and skipped.
func (m *Manager) Load() error {
	m.order = nil
	m.funcs = make(map[string]*Function)

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		output.Logger.Debug("No custom function store", "path", m.path)
		return nil
	}
	if err != nil {
		output.Logger.Error("Failed to read custom functions", "path", m.path, "error", err)
		return &PersistenceError{Op: "read", Path: m.path, Err: err}
	}

	var stored map[string]storedFunction
	if err := json.Unmarshal(data, &stored); err != nil {
		output.Logger.Error("Failed to parse custom functions", "path", m.path, "error", err)
		return &PersistenceError{Op: "parse", Path: m.path, Err: err}
	}

	names := make([]string, 0, len(stored))
	for name := range stored {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := stored[name]
		fn, err := build(name, entry.Expression, entry.Params)
		if err != nil {
			output.Logger.Warn("Skipping custom function", "name", name, "error", err)
			continue
		}
		m.funcs[name] = fn
		m.order = append(m.order, name)
	}

	output.Logger.Debug("Loaded custom functions", "path", m.path, "count", len(m.order))
	return nil
}

// Save writes the catalog to the store, replacing the previous file whole.
func (m *Manager) Save() error {
	stored := make(map[string]storedFunction, len(m.funcs))
	for name, fn := range m.funcs {
		stored[name] = storedFunction{Expression: fn.Expression, Params: fn.Params}
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: m.path, Err: err}
	}

	if err := writeFileAtomic(m.path, data); err != nil {
		output.Logger.Error("Failed to save custom functions", "path", m.path, "error", err)
		return &PersistenceError{Op: "write", Path: m.path, Err: err}
	}
	return nil
}

// Add compiles and test-evaluates expression, stores it under name (replacing any
// previous definition) and saves the catalog. Nothing changes on failure.
func (m *Manager) Add(name, expression string, params []model.Param) error {
	if name == "" {
		return fmt.Errorf("%w: custom function needs a name", model.ErrInvalidConfig)
	}

	fn, err := build(name, expression, params)
	if err != nil {
		return err
	}
	if _, err := fn.program.Eval(CheckX, fn.InitialValues()...); err != nil {
		return err
	}

	prev, existed := m.funcs[name]
	m.funcs[name] = fn
	if !existed {
		m.order = append(m.order, name)
	}

	if err := m.Save(); err != nil {
		if existed {
			m.funcs[name] = prev
		} else {
			delete(m.funcs, name)
			m.order = m.order[:len(m.order)-1]
		}
		return err
	}

	output.Logger.Info("Added custom function", "name", name, "expression", expression)
	return nil
}

// Remove deletes name and saves the catalog. It reports whether an entry
// was removed.
func (m *Manager) Remove(name string) (bool, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return false, nil
	}

	prevOrder := m.order
	idx := indexOf(m.order, name)
	delete(m.funcs, name)
	m.order = append(m.order[:idx:idx], m.order[idx+1:]...)

	if err := m.Save(); err != nil {
		m.funcs[name] = fn
		m.order = prevOrder
		return false, err
	}
	return true, nil
}

// Names returns the custom function names.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// Function returns the compiled entry for name.
func (m *Manager) Function(name string) (*Function, bool) {
	fn, ok := m.funcs[name]
	return fn, ok
}

// Callable returns the evaluator for name.
func (m *Manager) Callable(name string) (model.Func, bool) {
	fn, ok := m.funcs[name]
	if !ok {
		return nil, false
	}
	return fn.Eval, true
}

// Info returns the lookup record for name.
func (m *Manager) Info(name string) (model.Info, bool) {
	fn, ok := m.funcs[name]
	if !ok {
		return model.Info{}, false
	}
	return fn.Descriptor().Info(), true
}

// Describe implements functions.Source.
func (m *Manager) Describe(name string) (model.Descriptor, model.Func, bool) {
	fn, ok := m.funcs[name]
	if !ok {
		return model.Descriptor{}, nil, false
	}
	return fn.Descriptor(), fn.Eval, true
}

func build(name, expression string, params []model.Param) (*Function, error) {
	program, err := expr.Compile(expression, paramNames(params))
	if err != nil {
		return nil, err
	}
	return &Function{
		Name:       name,
		Expression: expression,
		Params:     append([]model.Param{}, params...),
		program:    program,
	}, nil
}

func paramNames(params []model.Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
