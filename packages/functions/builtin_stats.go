package functions

import (
	"math"
	"sort"
)

func (b *builtins) registerStatistics(r *Registry) {
	valuesArgs := []ArgDefinition{
		Arg("value1 (number, range<number>) The first value or range to consider."),
		Arg("value2 (number, range<number>, optional, repeating) Additional values or ranges to consider."),
	}

	r.MustAdd(Description{
		Name:         "SUM",
		Description:  "Sum of a series of numbers and/or cells.",
		Args:         valuesArgs,
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			sum := 0.0
			err := visitNumbers(args, func(n float64) { sum += n })
			if err != nil {
				return nil, err
			}
			return sum, nil
		},
	})

	r.MustAdd(Description{
		Name:         "AVERAGE",
		Description:  "Numerical average value in a dataset, ignoring text.",
		Args:         valuesArgs,
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			sum, count := 0.0, 0
			err := visitNumbers(args, func(n float64) {
				sum += n
				count++
			})
			if err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, Errorf(ErrorCodeDiv0, "Evaluation of function AVERAGE caused a divide by zero error.")
			}
			return sum / float64(count), nil
		},
	})

	r.MustAdd(Description{
		Name:        "AVERAGEA",
		Description: "Numerical average value in a dataset, counting text as 0.",
		Args: []ArgDefinition{
			Arg("value1 (any, range) The first value or range to consider."),
			Arg("value2 (any, range, optional, repeating) Additional values or ranges to consider."),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			sum, count := 0.0, 0
			for _, arg := range args {
				matrix, isRange := arg.(Matrix)
				if !isRange {
					n, err := ToNumber(arg)
					if err != nil {
						return nil, err
					}
					sum += n
					count++
					continue
				}
				for _, row := range matrix {
					for _, v := range row {
						switch val := v.(type) {
						case nil:
						case *EvaluationError:
							return nil, val
						case float64:
							sum += val
							count++
						case bool:
							if val {
								sum++
							}
							count++
						default:
							count++
						}
					}
				}
			}
			if count == 0 {
				return nil, Errorf(ErrorCodeDiv0, "Evaluation of function AVERAGEA caused a divide by zero error.")
			}
			return sum / float64(count), nil
		},
	})

	r.MustAdd(Description{
		Name:        "COUNT",
		Description: "The number of numeric values in dataset.",
		Args: []ArgDefinition{
			Arg("value1 (any, range) The first value or range to consider when counting."),
			Arg("value2 (any, range, optional, repeating) Additional values or ranges to consider when counting."),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			count := 0
			for _, arg := range args {
				if matrix, isRange := arg.(Matrix); isRange {
					for _, row := range matrix {
						for _, v := range row {
							if _, ok := v.(float64); ok {
								count++
							}
						}
					}
					continue
				}
				if _, err := ToNumber(arg); err == nil && arg != nil {
					count++
				}
			}
			return float64(count), nil
		},
	})

	r.MustAdd(Description{
		Name:        "COUNTA",
		Description: "The number of values in a dataset.",
		Args: []ArgDefinition{
			Arg("value1 (any, range) The first value or range to consider when counting."),
			Arg("value2 (any, range, optional, repeating) Additional values or ranges to consider when counting."),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			count := 0
			_ = Flatten(args, func(v Value) error {
				if v != nil {
					count++
				}
				return nil
			})
			return float64(count), nil
		},
	})

	r.MustAdd(Description{
		Name:         "MAX",
		Description:  "Maximum value in a numeric dataset.",
		Args:         valuesArgs,
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			result, found := math.Inf(-1), false
			err := visitNumbers(args, func(n float64) {
				result = math.Max(result, n)
				found = true
			})
			if err != nil {
				return nil, err
			}
			if !found {
				return 0.0, nil
			}
			return result, nil
		},
	})

	r.MustAdd(Description{
		Name:         "MIN",
		Description:  "Minimum value in a numeric dataset.",
		Args:         valuesArgs,
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			result, found := math.Inf(1), false
			err := visitNumbers(args, func(n float64) {
				result = math.Min(result, n)
				found = true
			})
			if err != nil {
				return nil, err
			}
			if !found {
				return 0.0, nil
			}
			return result, nil
		},
	})

	r.MustAdd(Description{
		Name:         "MEDIAN",
		Description:  "Median value in a numeric dataset.",
		Args:         valuesArgs,
		ReturnFormat: FormatFromArgument,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			var numbers []float64
			err := visitNumbers(args, func(n float64) { numbers = append(numbers, n) })
			if err != nil {
				return nil, err
			}
			if len(numbers) == 0 {
				return nil, Errorf(ErrorCodeNum, "%s has no valid input data.", FunctionNamePlaceholder)
			}
			sort.Float64s(numbers)
			mid := len(numbers) / 2
			if len(numbers)%2 == 0 {
				return (numbers[mid-1] + numbers[mid]) / 2, nil
			}
			return numbers[mid], nil
		},
	})
}

// visitNumbers feeds every number of the arguments to visit. scalar
// arguments are coerced, range cells that are not numbers are skipped and
// error cells abort the visit.
func visitNumbers(args []any, visit func(n float64)) error {
	for _, arg := range args {
		matrix, isRange := arg.(Matrix)
		if !isRange {
			n, err := ToNumber(arg)
			if err != nil {
				return err
			}
			visit(n)
			continue
		}
		for _, row := range matrix {
			for _, v := range row {
				switch val := v.(type) {
				case float64:
					visit(val)
				case *EvaluationError:
					return val
				}
			}
		}
	}
	return nil
}
