package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(_ Runtime, _ ...any) (Value, error) { return nil, nil }

func TestParseArg(t *testing.T) {
	def, err := ParseArg("value2 (number, range<number>, optional, repeating) Additional values.")
	require.NoError(t, err)
	assert.Equal(t, "value2", def.Name)
	assert.Equal(t, "Additional values.", def.Description)
	assert.Equal(t, []ArgType{ArgNumber, ArgRangeNumber}, def.Types)
	assert.True(t, def.Optional)
	assert.True(t, def.Repeating)
	assert.False(t, def.Lazy)
	assert.True(t, def.AcceptsRange())

	def, err = ParseArg(`value_if_false (any, lazy, default="") The value.`)
	require.NoError(t, err)
	assert.True(t, def.Lazy)
	assert.True(t, def.HasDefault)
	assert.Equal(t, `""`, def.DefaultValue)

	def, err = ParseArg("ref (meta) A reference.")
	require.NoError(t, err)
	assert.True(t, def.IsMeta())

	_, err = ParseArg("broken")
	assert.ErrorIs(t, err, ErrInvalidDescription)
	_, err = ParseArg("x (numbre) typo")
	assert.ErrorIs(t, err, ErrInvalidDescription)
}

func TestRegistryDerivesArity(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(Description{
		Name: "pairs",
		Args: []ArgDefinition{
			Arg("first (number) first"),
			Arg("key (string, repeating) key"),
			Arg("value (any, repeating) value"),
		},
		Compute: noop,
	}))
	d, ok := r.Get("PAIRS")
	require.True(t, ok)
	assert.Equal(t, 3, d.MinArgs)
	assert.Equal(t, -1, d.MaxArgs)
	assert.Equal(t, 2, d.RepeatingGroup)

	focus := []int{0, 1, 2, 1, 2, 1, 2}
	for position, want := range focus {
		assert.Equal(t, want, d.ArgToFocus(position), "position %d", position)
	}

	require.NoError(t, r.Add(Description{
		Name:    "ROUNDISH",
		Args:    []ArgDefinition{Arg("value (number) v"), Arg("places (number, default=0) p")},
		Compute: noop,
	}))
	d, _ = r.Get("roundish")
	assert.Equal(t, 1, d.MinArgs)
	assert.Equal(t, 2, d.MaxArgs)
	assert.Equal(t, -1, d.ArgToFocus(2))
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		args []ArgDefinition
	}{
		{name: "meta mixed with another type", args: []ArgDefinition{Arg("ref (meta, number) r")}},
		{name: "non repeating after repeating", args: []ArgDefinition{Arg("a (number, repeating) a"), Arg("b (number, optional) b")}},
		{name: "mandatory after optional", args: []ArgDefinition{Arg("a (number, optional) a"), Arg("b (number) b")}},
		{name: "mandatory after default", args: []ArgDefinition{Arg("a (number, default=1) a"), Arg("b (number) b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Add(Description{Name: "F", Args: tt.args, Compute: noop})
			assert.ErrorIs(t, err, ErrInvalidDescription)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	for _, name := range []string{"SUM", "IF", "IFERROR", "WAIT", "ROW", "ADD", "CONCAT"} {
		assert.True(t, r.Has(name), name)
	}
	assert.True(t, r.IsAsync("wait"))
	assert.False(t, r.IsAsync("SUM"))

	sum, _ := r.Get("SUM")
	assert.Equal(t, 1, sum.MinArgs)
	assert.Equal(t, -1, sum.MaxArgs)
	assert.Equal(t, 1, sum.ArgToFocus(5))
}

func TestEvaluationErrorFunctionName(t *testing.T) {
	_, err := ToNumber("abc")
	require.Error(t, err)
	evalErr := AsEvaluationError(err)
	named := evalErr.WithFunctionName("SUM")
	assert.Contains(t, named.Message, "The function SUM expects a number value")
	assert.Contains(t, evalErr.Message, FunctionNamePlaceholder)
	assert.NotSame(t, evalErr, named)
	assert.Equal(t, "#VALUE!", named.Display())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, Compare("abc", "ABC"))
	assert.Negative(t, Compare(1.0, "a"))
	assert.Negative(t, Compare("z", true))
	assert.Equal(t, 0, Compare(nil, 0.0))
	assert.Equal(t, 0, Compare(nil, ""))
	assert.Positive(t, Compare(2.0, 1.0))
}
