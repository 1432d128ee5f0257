package functions

import (
	"strings"
	"unicode/utf8"
)

func (b *builtins) registerText(r *Registry) {
	r.MustAdd(Description{
		Name:        "CONCATENATE",
		Description: "Appends strings to one another.",
		Args: []ArgDefinition{
			Arg("string1 (string, range<string>) The initial string."),
			Arg("string2 (string, range<string>, optional, repeating) More strings to append in sequence."),
		},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			var sb strings.Builder
			err := Flatten(args, func(v Value) error {
				if e, ok := v.(*EvaluationError); ok {
					return e
				}
				sb.WriteString(ToString(v))
				return nil
			})
			if err != nil {
				return nil, err
			}
			return sb.String(), nil
		},
	})

	r.MustAdd(Description{
		Name:        "LEN",
		Description: "Length of a string.",
		Args:        []ArgDefinition{Arg("text (string) The string whose length will be returned.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return float64(utf8.RuneCountInString(ToString(argOr(args, 0, "")))), nil
		},
	})

	r.MustAdd(Description{
		Name:        "UPPER",
		Description: "Converts a specified string to uppercase.",
		Args:        []ArgDefinition{Arg("text (string) The string to convert to uppercase.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return strings.ToUpper(ToString(argOr(args, 0, ""))), nil
		},
	})

	r.MustAdd(Description{
		Name:        "LOWER",
		Description: "Converts a specified string to lowercase.",
		Args:        []ArgDefinition{Arg("text (string) The string to convert to lowercase.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return strings.ToLower(ToString(argOr(args, 0, ""))), nil
		},
	})

	r.MustAdd(Description{
		Name:        "TRIM",
		Description: "Removes space characters.",
		Args:        []ArgDefinition{Arg("text (string) The text or reference to a cell containing text to be trimmed.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return strings.Join(strings.Fields(ToString(argOr(args, 0, ""))), " "), nil
		},
	})
}
