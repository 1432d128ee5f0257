package functions

// operator functions back the infix and prefix operators of the formula
// language. they are regular catalog entries so that arity checks, error
// messages and format inference work the same way as for named functions.

const (
	OpAdd          = "ADD"
	OpMinus        = "MINUS"
	OpMultiply     = "MULTIPLY"
	OpDivide       = "DIVIDE"
	OpPower        = "POWER"
	OpConcat       = "CONCAT"
	OpEqual        = "EQ"
	OpNotEqual     = "NE"
	OpGreater      = "GT"
	OpGreaterEqual = "GTE"
	OpLess         = "LT"
	OpLessEqual    = "LTE"
	OpUnaryMinus   = "UMINUS"
	OpUnaryPlus    = "UPLUS"
	OpPercent      = "UNARY.PERCENT"
)

// BinaryOperators maps operator symbols to the function implementing them
var BinaryOperators = map[string]string{
	"+":  OpAdd,
	"-":  OpMinus,
	"*":  OpMultiply,
	"/":  OpDivide,
	"^":  OpPower,
	"&":  OpConcat,
	"=":  OpEqual,
	"<>": OpNotEqual,
	">":  OpGreater,
	">=": OpGreaterEqual,
	"<":  OpLess,
	"<=": OpLessEqual,
}

// UnaryOperators maps prefix and postfix operator symbols to their function
var UnaryOperators = map[string]string{
	"-": OpUnaryMinus,
	"+": OpUnaryPlus,
	"%": OpPercent,
}

func (b *builtins) registerOperators(r *Registry) {
	twoNumbers := []ArgDefinition{
		Arg("value1 (number) The first operand."),
		Arg("value2 (number) The second operand."),
	}
	arithmetic := func(name, description string, op func(a, b float64) (Value, error)) {
		r.MustAdd(Description{
			Name:         name,
			Description:  description,
			Args:         twoNumbers,
			ReturnFormat: FormatFromArgument,
			Compute: func(_ Runtime, args ...any) (Value, error) {
				a, err := numberArg(args, 0, 0)
				if err != nil {
					return nil, err
				}
				b, err := numberArg(args, 1, 0)
				if err != nil {
					return nil, err
				}
				return op(a, b)
			},
		})
	}
	arithmetic(OpAdd, "Sum of two numbers.", func(a, b float64) (Value, error) { return a + b, nil })
	arithmetic(OpMinus, "Difference of two numbers.", func(a, b float64) (Value, error) { return a - b, nil })
	arithmetic(OpMultiply, "Product of two numbers.", func(a, b float64) (Value, error) { return a * b, nil })
	arithmetic(OpDivide, "One number divided by another.", func(a, b float64) (Value, error) {
		if b == 0 {
			return nil, Errorf(ErrorCodeDiv0, "The divisor must be different from zero.")
		}
		return a / b, nil
	})

	r.MustAdd(Description{
		Name:        OpConcat,
		Description: "Concatenation of two values.",
		Args:        []ArgDefinition{Arg("value1 (string) The value to which value2 will be appended."), Arg("value2 (string) The value to append to value1.")},
		Compute: func(_ Runtime, args ...any) (Value, error) {
			return ToString(argOr(args, 0, "")) + ToString(argOr(args, 1, "")), nil
		},
	})

	comparison := func(name, description string, accept func(cmp int) bool) {
		r.MustAdd(Description{
			Name:        name,
			Description: description,
			Args:        []ArgDefinition{Arg("value1 (any) The first value."), Arg("value2 (any) The value to test against value1.")},
			Compute: func(_ Runtime, args ...any) (Value, error) {
				return accept(Compare(argOr(args, 0, nil), argOr(args, 1, nil))), nil
			},
		})
	}
	comparison(OpEqual, "Equal.", func(c int) bool { return c == 0 })
	comparison(OpNotEqual, "Not equal.", func(c int) bool { return c != 0 })
	comparison(OpGreater, "Strictly greater than.", func(c int) bool { return c > 0 })
	comparison(OpGreaterEqual, "Greater than or equal to.", func(c int) bool { return c >= 0 })
	comparison(OpLess, "Less than.", func(c int) bool { return c < 0 })
	comparison(OpLessEqual, "Less than or equal to.", func(c int) bool { return c <= 0 })

	unary := func(name, description, format string, op func(n float64) float64) {
		r.MustAdd(Description{
			Name:         name,
			Description:  description,
			Args:         []ArgDefinition{Arg("value (number) The operand.")},
			ReturnFormat: format,
			Compute: func(_ Runtime, args ...any) (Value, error) {
				n, err := numberArg(args, 0, 0)
				if err != nil {
					return nil, err
				}
				return op(n), nil
			},
		})
	}
	unary(OpUnaryMinus, "A number with the sign reversed.", FormatFromArgument, func(n float64) float64 { return -n })
	unary(OpUnaryPlus, "A specified number, unchanged.", FormatFromArgument, func(n float64) float64 { return n })
	unary(OpPercent, "Value interpreted as a percentage.", "0%", func(n float64) float64 { return n / 100 })
}
