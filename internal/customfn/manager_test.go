package customfn

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/curve-fitter/internal/expr"
	"github.com/daryltucker/curve-fitter/internal/model"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "custom_functions", "functions.json")
}

func saturationParams() []model.Param {
	return []model.Param{
		{Name: "a", InitValue: 2, Desc: "plateau"},
		{Name: "b", InitValue: 0.5, Desc: "half-saturation constant"},
	}
}

func TestManager_RoundTrip(t *testing.T) {
	path := storePath(t)
	m := New(path)
	require.NoError(t, m.Load())

	require.NoError(t, m.Add("Saturation", "a*x/(b + x)", saturationParams()))
	require.NoError(t, m.Add("Damped", "a*exp(-b*x)*cos(c*x)", []model.Param{
		{Name: "a", InitValue: 1},
		{Name: "b", InitValue: 0.1},
		{Name: "c", InitValue: 2},
	}))

	xs := []float64{0.5, 1, 3}
	before := make(map[string][]float64)
	for _, name := range m.Names() {
		fn, ok := m.Function(name)
		require.True(t, ok)
		ys, err := fn.Eval(xs, fn.InitialValues()...)
		require.NoError(t, err)
		before[name] = ys
	}
	infoBefore, ok := m.Info("Saturation")
	require.True(t, ok)

	reloaded := New(path)
	require.NoError(t, reloaded.Load())

	assert.Equal(t, []string{"Damped", "Saturation"}, reloaded.Names())

	infoAfter, ok := reloaded.Info("Saturation")
	require.True(t, ok)
	if diff := cmp.Diff(infoBefore, infoAfter); diff != "" {
		t.Errorf("Info changed across reload (-before +after):\n%s", diff)
	}

	for name, want := range before {
		fn, ok := reloaded.Function(name)
		require.True(t, ok)
		if diff := cmp.Diff(m.funcs[name].Params, fn.Params); diff != "" {
			t.Errorf("%s params changed across reload (-before +after):\n%s", name, diff)
		}
		assert.Equal(t, m.funcs[name].Expression, fn.Expression)

		f, ok := reloaded.Callable(name)
		require.True(t, ok)
		got, err := f(xs, fn.InitialValues()...)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestManager_StoreFormat(t *testing.T) {
	path := storePath(t)
	m := New(path)
	require.NoError(t, m.Add("Saturation", "a*x/(b + x)", saturationParams()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "Saturation")
	assert.Equal(t, "a*x/(b + x)", doc["Saturation"]["expression"])

	params, ok := doc["Saturation"]["params"].([]any)
	require.True(t, ok)
	require.Len(t, params, 2)
	first := params[0].(map[string]any)
	assert.Equal(t, "a", first["name"])
	assert.Equal(t, 2.0, first["init_value"])
	assert.Equal(t, "plateau", first["desc"])
	assert.NotContains(t, doc["Saturation"], "function")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestManager_LoadMissingFile(t *testing.T) {
	m := New(storePath(t))
	require.NoError(t, m.Load())
	assert.Empty(t, m.Names())
}

func TestManager_LoadMalformedFile(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	m := New(path)
	err := m.Load()
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "parse", pe.Op)
	assert.Empty(t, m.Names())
}

func TestManager_LoadSkipsBadEntries(t *testing.T) {
	path := storePath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	doc := `{
  "Good": {"expression": "a*x", "params": [{"name": "a", "init_value": 1, "desc": ""}]},
  "Escapes": {"expression": "__import__('os')", "params": []},
  "Undeclared": {"expression": "a*x + b", "params": [{"name": "a", "init_value": 1, "desc": ""}]}
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m := New(path)
	require.NoError(t, m.Load())
	assert.Equal(t, []string{"Good"}, m.Names())
}

func TestManager_AddRejectsBadExpressions(t *testing.T) {
	path := storePath(t)
	m := New(path)

	var ce *expr.CompileError
	err := m.Add("Bad", "a*x + undefined", []model.Param{{Name: "a", InitValue: 1}})
	require.ErrorAs(t, err, &ce)

	// Compiles, but the check at x=1 hits log(0).
	var ee *expr.EvalError
	err = m.Add("Singular", "a*log(x - 1)", []model.Param{{Name: "a", InitValue: 1}})
	require.ErrorAs(t, err, &ee)

	err = m.Add("", "x", nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	assert.Empty(t, m.Names())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing may be persisted")
}

func TestManager_AddOverwrites(t *testing.T) {
	m := New(storePath(t))
	require.NoError(t, m.Add("Model", "a*x", []model.Param{{Name: "a", InitValue: 1}}))
	require.NoError(t, m.Add("Model", "a*x + b", []model.Param{{Name: "a", InitValue: 1}, {Name: "b", InitValue: 0}}))

	assert.Equal(t, []string{"Model"}, m.Names())
	info, ok := m.Info("Model")
	require.True(t, ok)
	assert.Equal(t, 2, info.ParamCount)
	assert.Equal(t, "a*x + b", info.Equation)
}

func TestManager_Remove(t *testing.T) {
	path := storePath(t)
	m := New(path)
	require.NoError(t, m.Add("One", "a*x", []model.Param{{Name: "a", InitValue: 1}}))
	require.NoError(t, m.Add("Two", "a*x**2", []model.Param{{Name: "a", InitValue: 1}}))

	removed, err := m.Remove("One")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = m.Remove("One")
	require.NoError(t, err)
	assert.False(t, removed)

	reloaded := New(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"Two"}, reloaded.Names())
}

func TestManager_SaveFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// The store's parent is a regular file, so every save fails.
	m := New(filepath.Join(blocker, "functions.json"))

	err := m.Add("Model", "a*x", []model.Param{{Name: "a", InitValue: 1}})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "write", pe.Op)
	assert.Empty(t, m.Names())
	_, ok := m.Callable("Model")
	assert.False(t, ok)
}

func TestFunction_PermissiveBinding(t *testing.T) {
	m := New(storePath(t))
	require.NoError(t, m.Add("Line", "a*x + b", []model.Param{{Name: "a", InitValue: 1}, {Name: "b", InitValue: 1}}))

	f, ok := m.Callable("Line")
	require.True(t, ok)

	_, err := f([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, expr.ErrUnbound)

	ys, err := f([]float64{1, 2}, 3, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 7}, ys)
}

func TestFunction_DomainErrorsAreTyped(t *testing.T) {
	m := New(storePath(t))
	require.NoError(t, m.Add("Root", "a*x**b", []model.Param{{Name: "a", InitValue: 1}, {Name: "b", InitValue: 0.5}}))

	f, _ := m.Callable("Root")
	_, err := f([]float64{4, -4}, 1, 0.5)

	var ee *expr.EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, -4.0, ee.X)
	assert.ErrorIs(t, err, expr.ErrNonFinite)
}
