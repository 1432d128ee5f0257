package functions

func (b *builtins) registerLogical(r *Registry) {
	r.MustAdd(Description{
		Name:        "IF",
		Description: "Returns value depending on logical expression.",
		Args: []ArgDefinition{
			Arg("logical_expression (boolean) An expression or reference to a cell containing an expression that represents some logical value, i.e. TRUE or FALSE."),
			Arg("value_if_true (any, lazy) The value the function returns if logical_expression is TRUE."),
			Arg("value_if_false (any, lazy, default=FALSE) The value the function returns if logical_expression is FALSE."),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			condition, err := ToBoolean(argOr(args, 0, false))
			if err != nil {
				return nil, err
			}
			branch := 2
			if condition {
				branch = 1
			}
			return force(argOr(args, branch, nil))
		},
	})

	r.MustAdd(Description{
		Name:        "IFERROR",
		Description: "Value if it is not an error, otherwise 2nd argument.",
		Args: []ArgDefinition{
			Arg("value (any, lazy) The value to return if value itself is not an error."),
			Arg(`value_if_error (any, lazy, default="") The value the function returns if value is an error.`),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			v, err := force(argOr(args, 0, nil))
			if err == nil {
				return v, nil
			}
			if !IsEvaluationError(err) {
				// not ready and other engine signals keep propagating
				return nil, err
			}
			return force(argOr(args, 1, ""))
		},
	})

	r.MustAdd(Description{
		Name:        "ISERROR",
		Description: "Whether a value is an error.",
		Args:        []ArgDefinition{Arg("value (any, lazy) The value to be verified as an error type.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			_, err := force(argOr(args, 0, nil))
			if err == nil {
				return false, nil
			}
			if !IsEvaluationError(err) {
				return nil, err
			}
			return true, nil
		},
	})

	logicalArgs := []ArgDefinition{
		Arg("logical_expression1 (boolean, range<boolean>) An expression or reference to a cell containing an expression that represents some logical value."),
		Arg("logical_expression2 (boolean, range<boolean>, optional, repeating) More expressions that represent logical values."),
	}

	r.MustAdd(Description{
		Name:        "AND",
		Description: "Logical `and` operator.",
		Args:        logicalArgs,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			result, found := true, false
			err := visitBooleans(args, func(v bool) {
				result = result && v
				found = true
			})
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, Errorf(ErrorCodeValue, "%s has no valid input data.", FunctionNamePlaceholder)
			}
			return result, nil
		},
	})

	r.MustAdd(Description{
		Name:        "OR",
		Description: "Logical `or` operator.",
		Args:        logicalArgs,
		Compute: func(_ Runtime, args ...any) (Value, error) {
			result, found := false, false
			err := visitBooleans(args, func(v bool) {
				result = result || v
				found = true
			})
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, Errorf(ErrorCodeValue, "%s has no valid input data.", FunctionNamePlaceholder)
			}
			return result, nil
		},
	})

	r.MustAdd(Description{
		Name:        "NOT",
		Description: "Returns opposite of provided logical value.",
		Args:        []ArgDefinition{Arg("logical_expression (boolean) An expression or reference to a cell holding an expression that represents some logical value.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			v, err := ToBoolean(argOr(args, 0, false))
			if err != nil {
				return nil, err
			}
			return !v, nil
		},
	})

	r.MustAdd(Description{
		Name:        "TRUE",
		Description: "Logical value `true`.",
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			return true, nil
		},
	})

	r.MustAdd(Description{
		Name:        "FALSE",
		Description: "Logical value `false`.",
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			return false, nil
		},
	})
}

// force evaluates a lazy argument. non-thunk values are returned as is.
func force(arg any) (Value, error) {
	if thunk, ok := arg.(Thunk); ok {
		return thunk()
	}
	return arg, nil
}

func visitBooleans(args []any, visit func(v bool)) error {
	for _, arg := range args {
		matrix, isRange := arg.(Matrix)
		if !isRange {
			v, err := ToBoolean(arg)
			if err != nil {
				return err
			}
			visit(v)
			continue
		}
		for _, row := range matrix {
			for _, v := range row {
				switch val := v.(type) {
				case bool:
					visit(val)
				case float64:
					visit(val != 0)
				case *EvaluationError:
					return val
				}
			}
		}
	}
	return nil
}
