package functions

func (b *builtins) registerInfo(r *Registry) {
	r.MustAdd(Description{
		Name:        "ROW",
		Description: "Row number of a specified cell.",
		Args:        []ArgDefinition{Arg("cell_reference (meta, optional) The cell whose row number will be returned.")},
		Compute: func(rt Runtime, args ...any) (Value, error) {
			_, row, err := metaPosition(rt, args)
			if err != nil {
				return nil, err
			}
			return float64(row + 1), nil
		},
	})

	r.MustAdd(Description{
		Name:        "COLUMN",
		Description: "Column number of a specified cell.",
		Args:        []ArgDefinition{Arg("cell_reference (meta, optional) The cell whose column number will be returned.")},
		Compute: func(rt Runtime, args ...any) (Value, error) {
			col, _, err := metaPosition(rt, args)
			if err != nil {
				return nil, err
			}
			return float64(col + 1), nil
		},
	})

	r.MustAdd(Description{
		Name:         "NOW",
		Description:  "Current date and time as a date value.",
		Volatile:     true,
		ReturnFormat: "yyyy-mm-dd hh:mm:ss",
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			return ToSerialDate(b.clock.Now()), nil
		},
	})

	r.MustAdd(Description{
		Name:         "TODAY",
		Description:  "Current date as a date value.",
		Volatile:     true,
		ReturnFormat: "yyyy-mm-dd",
		Compute: func(_ Runtime, _ ...any) (Value, error) {
			now := b.clock.Now()
			return float64(int64(ToSerialDate(now))), nil
		},
	})
}

// metaPosition resolves the optional meta argument, defaulting to the cell
// being evaluated
func metaPosition(rt Runtime, args []any) (col int, row int, err error) {
	ref, ok := argOr(args, 0, nil).(string)
	if !ok || ref == "" {
		col, row = rt.CurrentPosition()
		return col, row, nil
	}
	return rt.ReferencePosition(ref)
}
