package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// testRuntime resolves markers against fixed values. a Matrix entry stands
// for a multi-cell range.
type testRuntime struct {
	refs  []any
	texts []string
	async map[int]functions.Value
	calls []string
}

func (r *testRuntime) CurrentPosition() (int, int) { return 0, 0 }

func (r *testRuntime) ReferencePosition(ref string) (int, int, error) {
	z, err := zone.ToZone(ref)
	if err != nil {
		return 0, 0, err
	}
	return z.Left, z.Top, nil
}

func (r *testRuntime) Reference(index int) (functions.Value, error) {
	if m, ok := r.refs[index].(functions.Matrix); ok {
		return m[0][0], nil
	}
	return r.refs[index], nil
}

func (r *testRuntime) Range(index int) (functions.Matrix, error) {
	if m, ok := r.refs[index].(functions.Matrix); ok {
		return m, nil
	}
	return functions.Matrix{{r.refs[index]}}, nil
}

func (r *testRuntime) IsRange(index int) bool {
	m, ok := r.refs[index].(functions.Matrix)
	return ok && (len(m) > 1 || len(m[0]) > 1)
}

func (r *testRuntime) RefText(index int) string {
	return r.texts[index]
}

func (r *testRuntime) CallAsync(callID int, d *functions.Description, _ []any) (functions.Value, error) {
	r.calls = append(r.calls, d.Name)
	if v, ok := r.async[callID]; ok {
		return v, nil
	}
	return nil, functions.ErrNotReady
}

func compile(t *testing.T, c *Compiler, text string) *CompiledUnit {
	t.Helper()
	f, err := Normalize(text)
	require.NoError(t, err)
	unit, err := c.Compile(f)
	require.NoError(t, err)
	return unit
}

func run(t *testing.T, text string, rt *testRuntime) (functions.Value, error) {
	t.Helper()
	if rt == nil {
		rt = &testRuntime{}
	}
	return compile(t, NewCompiler(), text).Execute(rt)
}

func TestCompileLiterals(t *testing.T) {
	unit := compile(t, NewCompiler(), "=1+2")
	v, err := unit.Execute(&testRuntime{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, "_1 = ADD(1, 2)\nreturn _1", unit.Listing)
	assert.False(t, unit.Async)
	assert.False(t, unit.Volatile)

	unit = compile(t, NewCompiler(), `="a"`)
	assert.Equal(t, `return "a"`, unit.Listing)
}

func TestCompileCacheSharesUnits(t *testing.T) {
	c := NewCompiler()
	a := compile(t, c, "=A1+B2")
	b := compile(t, c, "=C3+Sheet2!D4")
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())

	other := compile(t, c, "=A1+1")
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestCompileReferences(t *testing.T) {
	rt := &testRuntime{refs: []any{"a", "b"}}
	v, err := run(t, "=A1&A2", rt)
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	square := functions.Matrix{{1.0, 2.0}, {3.0, 4.0}}
	v, err = run(t, "=SUM(A1:B2)", &testRuntime{refs: []any{square}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = run(t, "=SUM(A1)", &testRuntime{refs: []any{5.0}})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	v, err = run(t, "=A1:B2", &testRuntime{refs: []any{square}})
	require.NoError(t, err)
	assert.IsType(t, functions.Matrix{}, v)
}

func TestCompileRangeGivenToScalarArgument(t *testing.T) {
	square := functions.Matrix{{1.0, 2.0}, {3.0, 4.0}}
	_, err := run(t, "=ABS(A1:B2)", &testRuntime{refs: []any{square}})
	require.Error(t, err)
	assert.Equal(t, "Function ABS expects the parameter 1 to be a single value or a single cell reference, not a range.", err.Error())

	_, err = run(t, "=A1:B2+1", &testRuntime{refs: []any{square}})
	require.Error(t, err)
	assert.Equal(t, "Function ADD expects the parameter 1 to be a single value or a single cell reference, not a range.", err.Error())
}

func TestCompileDebugMarkedRangeGivenToScalarArgument(t *testing.T) {
	square := functions.Matrix{{1.0, 2.0}, {3.0, 4.0}}
	_, err := run(t, "=ABS(?A1:B2)", &testRuntime{refs: []any{square}})
	require.Error(t, err)
	assert.Equal(t, "Function ABS expects the parameter 1 to be a single value or a single cell reference, not a range.", err.Error())

	v, err := run(t, "=ABS(?A1)", &testRuntime{refs: []any{-3.0}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestCompileLazyArguments(t *testing.T) {
	v, err := run(t, "=IF(FALSE(), 1/0, 99)", nil)
	require.NoError(t, err)
	assert.Equal(t, 99.0, v)

	_, err = run(t, "=IF(TRUE(), 1/0, 99)", nil)
	require.Error(t, err)
	assert.Equal(t, functions.ErrorCodeDiv0, functions.AsEvaluationError(err).Code)

	v, err = run(t, "=IF(FALSE(), 1)", nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = run(t, `=IFERROR(1/0, "fallback")`, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestCompileDefaults(t *testing.T) {
	v, err := run(t, "=ROUND(1.26)", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = run(t, "=ROUND(1.26,)", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = run(t, "=ROUND(1.26, 1)", nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.3, v, 1e-9)
}

func TestCompileMetaArguments(t *testing.T) {
	v, err := run(t, "=ROW(B10)", &testRuntime{refs: []any{nil}, texts: []string{"B10"}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = run(t, "=COLUMN()", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	f, err := Normalize("=ROW(1)")
	require.NoError(t, err)
	_, err = NewCompiler().Compile(f)
	assert.ErrorIs(t, err, ErrInvalidFormula)
}

func TestCompileArity(t *testing.T) {
	tests := []struct {
		formula string
		message string
	}{
		{"=ABS()", "Invalid number of arguments for the ABS function. Expected 1 minimum, but got 0 instead."},
		{"=ABS(1, 2)", "Invalid number of arguments for the ABS function. Expected 1 maximum, but got 2 instead."},
		{"=1+SQRT()", "Invalid number of arguments for the SQRT function. Expected 1 minimum, but got 0 instead."},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			f, err := Normalize(tt.formula)
			require.NoError(t, err)
			_, err = NewCompiler().Compile(f)
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestCompileRepeatingGroups(t *testing.T) {
	r := functions.NewRegistry()
	r.MustAdd(functions.Description{
		Name: "PAIRS",
		Args: []functions.ArgDefinition{
			functions.Arg("first (number)"),
			functions.Arg("key (any, repeating)"),
			functions.Arg("value (any, repeating)"),
		},
		Compute: func(_ functions.Runtime, args ...any) (functions.Value, error) {
			return float64(len(args)), nil
		},
	})
	c := NewCompiler(WithRegistry(r))

	unit := compile(t, c, "=PAIRS(1, 2, 3, 4, 5)")
	v, err := unit.Execute(&testRuntime{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	f, err := Normalize("=PAIRS(1, 2, 3, 4)")
	require.NoError(t, err)
	_, err = c.Compile(f)
	require.Error(t, err)
	assert.Equal(t, "Invalid number of arguments for the PAIRS function. Expected all arguments after position 1 to be supplied by groups of 2 arguments.", err.Error())
}

func TestCompileUnknownNames(t *testing.T) {
	for _, formula := range []string{"=FOO(1)", "=foo+1"} {
		f, err := Normalize(formula)
		require.NoError(t, err)
		_, err = NewCompiler().Compile(f)
		var formulaErr *FormulaError
		require.ErrorAs(t, err, &formulaErr)
		assert.Equal(t, "#NAME?", formulaErr.Display())
	}
}

func TestCompileErrorsNameTheFailingFunction(t *testing.T) {
	_, err := run(t, `=ABS(SQRT("abc"))`, nil)
	require.Error(t, err)
	assert.Equal(t, "The function SQRT expects a number value, but 'abc' is a string, and cannot be coerced to a number.", err.Error())
	assert.True(t, functions.IsEvaluationError(err))
}

func TestCompileAsync(t *testing.T) {
	unit := compile(t, NewCompiler(), "=WAIT(10)+1")
	assert.True(t, unit.Async)
	assert.Contains(t, unit.Listing, "await WAIT(10)")

	rt := &testRuntime{async: map[int]functions.Value{}}
	_, err := unit.Execute(rt)
	assert.True(t, errors.Is(err, functions.ErrNotReady))

	rt.async[0] = 10.0
	v, err := unit.Execute(rt)
	require.NoError(t, err)
	assert.Equal(t, 11.0, v)
	assert.Equal(t, []string{"WAIT", "WAIT"}, rt.calls)

	v, err = run(t, "=IFERROR(WAIT(5), 0)", &testRuntime{})
	assert.ErrorIs(t, err, functions.ErrNotReady)
	assert.Nil(t, v)
}

func TestCompileVolatile(t *testing.T) {
	assert.True(t, compile(t, NewCompiler(), "=NOW()+1").Volatile)
	assert.False(t, compile(t, NewCompiler(), "=PI()+1").Volatile)
}

func TestCompileFormatSources(t *testing.T) {
	tests := []struct {
		formula string
		want    []FormatSource
	}{
		{"=A1+B1*2", []FormatSource{{Dep: 0}, {Dep: 1}}},
		{"=50%+A1", []FormatSource{{Format: "0%", Dep: -1}, {Dep: 0}}},
		{"=A1%", []FormatSource{{Format: "0%", Dep: -1}}},
		{"=NOW()", []FormatSource{{Format: "yyyy-mm-dd hh:mm:ss", Dep: -1}}},
		{"=SUM(A1:A3, B1)", []FormatSource{{Dep: 0}, {Dep: 1}}},
		{"=LEN(A1)", nil},
		{"=1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			assert.Equal(t, tt.want, compile(t, NewCompiler(), tt.formula).FormatSources)
		})
	}
	assert.True(t, FormatSource{Dep: 2}.IsDependency())
	assert.False(t, FormatSource{Format: "0%", Dep: -1}.IsDependency())
}
