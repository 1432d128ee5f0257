package functions

import (
	"math"
)

func (b *builtins) registerMath(r *Registry) {
	r.MustAdd(Description{
		Name:         "ABS",
		Description:  "Absolute value of a number.",
		Args:         []ArgDefinition{Arg("value (number) The number of which to return the absolute value.")},
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			n, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			return math.Abs(n), nil
		},
	})

	r.MustAdd(Description{
		Name:        "ROUND",
		Description: "Rounds a number according to standard rules.",
		Args: []ArgDefinition{
			Arg("value (number) The value to round to places number of places."),
			Arg("places (number, default=0) The number of decimal places to which to round."),
		},
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			n, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			places, err := numberArg(args, 1, 0)
			if err != nil {
				return nil, err
			}
			factor := math.Pow(10, math.Trunc(places))
			return math.Round(n*factor) / factor, nil
		},
	})

	r.MustAdd(Description{
		Name:         "FLOOR",
		Description:  "Rounds number down to nearest multiple of factor.",
		Args:         []ArgDefinition{Arg("value (number) The value to round down."), Arg("factor (number, default=1) The number to whose multiples value will be rounded.")},
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return roundToMultiple(args, math.Floor)
		},
	})

	r.MustAdd(Description{
		Name:         "CEILING",
		Description:  "Rounds number up to nearest multiple of factor.",
		Args:         []ArgDefinition{Arg("value (number) The value to round up."), Arg("factor (number, default=1) The number to whose multiples value will be rounded.")},
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return roundToMultiple(args, math.Ceil)
		},
	})

	r.MustAdd(Description{
		Name:        "SQRT",
		Description: "Positive square root of a positive number.",
		Args:        []ArgDefinition{Arg("value (number) The number for which to calculate the positive square root.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			n, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, Errorf(ErrorCodeNum, "Function %s parameter 1 value is negative. It should be positive or zero.", FunctionNamePlaceholder)
			}
			return math.Sqrt(n), nil
		},
	})

	r.MustAdd(Description{
		Name:        "POWER",
		Description: "A number raised to a power.",
		Args:        []ArgDefinition{Arg("base (number) The number to raise to the exponent power."), Arg("exponent (number) The exponent to raise base to.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			base, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			exp, err := numberArg(args, 1, 0)
			if err != nil {
				return nil, err
			}
			return Power(base, exp)
		},
	})

	r.MustAdd(Description{
		Name:        "MOD",
		Description: "Modulo (remainder) operator.",
		Args:        []ArgDefinition{Arg("dividend (number) The number to be divided to find the remainder."), Arg("divisor (number) The number to divide by.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			dividend, err := numberArg(args, 0, 0)
			if err != nil {
				return nil, err
			}
			divisor, err := numberArg(args, 1, 0)
			if err != nil {
				return nil, err
			}
			if divisor == 0 {
				return nil, Errorf(ErrorCodeDiv0, "The divisor must be different from 0.")
			}
			m := math.Mod(dividend, divisor)
			if m != 0 && (m < 0) != (divisor < 0) {
				m += divisor
			}
			return m, nil
		},
	})

	r.MustAdd(Description{
		Name:        "PI",
		Description: "The number pi.",
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			return math.Pi, nil
		},
	})

	r.MustAdd(Description{
		Name:        "RAND",
		Description: "A random number between 0 inclusive and 1 exclusive.",
		Volatile:    true,
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			return b.rng.Float64(), nil
		},
	})
}

func roundToMultiple(args []any, round func(float64) float64) (Value, error) {
	n, err := numberArg(args, 0, 0)
	if err != nil {
		return nil, err
	}
	factor, err := numberArg(args, 1, 1)
	if err != nil {
		return nil, err
	}
	if factor == 0 {
		return 0.0, nil
	}
	if n > 0 && factor < 0 {
		return nil, Errorf(ErrorCodeNum, "The function %s expects the parameter 'factor' to be positive when parameter 'value' is positive.", FunctionNamePlaceholder)
	}
	return round(n/factor) * factor, nil
}

// Power raises base to exp, reporting results that are not real numbers
func Power(base, exp float64) (Value, error) {
	if base == 0 && exp < 0 {
		return nil, NewError(ErrorCodeDiv0, "")
	}
	result := math.Pow(base, exp)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil, Errorf(ErrorCodeNum, "The result of %s is not a real number.", FunctionNamePlaceholder)
	}
	return result, nil
}
