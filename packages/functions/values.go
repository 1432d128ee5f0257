package functions

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value represents basic spreadsheet value types.
// types:
//   - float64: numeric values
//   - string: text values
//   - bool: boolean values (TRUE/FALSE)
//   - nil: empty cells
type Value any

// Matrix is a row-major 2-D block of values read from a range
type Matrix [][]Value

// Thunk defers the evaluation of a lazy argument
type Thunk func() (Value, error)

// ErrorCode represents standard spreadsheet error codes
type ErrorCode uint8

const (
	ErrorCodeNull     ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0     ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue    ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef      ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName     ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum      ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA       ErrorCode = 7 // #N/A - value not available
	ErrorCodeOther    ErrorCode = 8 // #ERROR - all other errors, including invalid formulas
	ErrorCodeCircular ErrorCode = 9 // #CYCLE - circular reference
)

// ErrorMapper maps error codes to their displayed form
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:     "#NULL!",
	ErrorCodeDiv0:     "#DIV/0!",
	ErrorCodeValue:    "#VALUE!",
	ErrorCodeRef:      "#REF!",
	ErrorCodeName:     "#NAME?",
	ErrorCodeNum:      "#NUM!",
	ErrorCodeNA:       "#N/A",
	ErrorCodeOther:    "#ERROR",
	ErrorCodeCircular: "#CYCLE",
}

// FunctionNamePlaceholder is substituted with the name of the function that
// actually failed when an error crosses a call boundary
const FunctionNamePlaceholder = "[[FUNCTION_NAME]]"

// ErrNotReady signals that a value is still being computed by an async
// function. it is not a failure: the evaluator turns it into a waiting state.
var ErrNotReady = errors.New("value not ready")

// EvaluationError is a run-time formula error displayed in a cell
type EvaluationError struct {
	Code    ErrorCode
	Message string
}

func (e *EvaluationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.Code]
}

// Display returns the short error code shown in a cell
func (e *EvaluationError) Display() string {
	return ErrorMapper[e.Code]
}

// WithFunctionName returns a fresh error with the function name placeholder
// replaced. errors without the placeholder are returned unchanged.
func (e *EvaluationError) WithFunctionName(name string) *EvaluationError {
	if !strings.Contains(e.Message, FunctionNamePlaceholder) {
		return e
	}
	return &EvaluationError{Code: e.Code, Message: strings.ReplaceAll(e.Message, FunctionNamePlaceholder, name)}
}

// NewError creates an evaluation error, defaulting the message to the
// displayed code
func NewError(code ErrorCode, message string) *EvaluationError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &EvaluationError{Code: code, Message: message}
}

// Errorf creates an evaluation error with a formatted message
func Errorf(code ErrorCode, format string, args ...any) *EvaluationError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// AsEvaluationError converts any error to an evaluation error, keeping the
// code of errors that already are one
func AsEvaluationError(err error) *EvaluationError {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	return NewError(ErrorCodeOther, err.Error())
}

// IsEvaluationError reports whether err is a formula error, as opposed to an
// engine signal such as ErrNotReady
func IsEvaluationError(err error) bool {
	var evalErr *EvaluationError
	return errors.As(err, &evalErr)
}

// ToNumber converts a value to a number, following spreadsheet coercion
// rules. empty cells are 0, booleans are 0/1 and numeric strings are parsed.
func ToNumber(value Value) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, nil
	case string:
		if v == "" {
			return 0, nil
		}
		if n, ok := ParseNumber(v); ok {
			return n, nil
		}
		return 0, Errorf(ErrorCodeValue, "The function %s expects a number value, but '%s' is a string, and cannot be coerced to a number.", FunctionNamePlaceholder, v)
	default:
		return 0, NewError(ErrorCodeValue, "")
	}
}

// ParseNumber parses a number literal, tolerating a trailing percent sign
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	divisor := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		divisor = 100
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n / divisor, true
}

// ToString converts a value to its text form
func ToString(value Value) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return FormatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}

// FormatNumber renders a number without unnecessary decimals
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ToBoolean converts a value to a boolean
func ToBoolean(value Value) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case nil:
		return false, nil
	case string:
		switch strings.ToUpper(v) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		return false, Errorf(ErrorCodeValue, "The function %s expects a boolean value, but '%s' is a text, and cannot be coerced to a boolean.", FunctionNamePlaceholder, v)
	default:
		return false, NewError(ErrorCodeValue, "")
	}
}

// Compare orders two values the way comparison operators do: numbers before
// strings before booleans, strings case-insensitively
func Compare(a, b Value) int {
	rank := func(v Value) int {
		switch v.(type) {
		case nil, float64:
			return 0
		case string:
			return 1
		case bool:
			return 2
		}
		return 3
	}
	if a == nil {
		switch b.(type) {
		case string:
			a = ""
		case bool:
			a = false
		}
	}
	if b == nil {
		switch a.(type) {
		case string:
			b = ""
		case bool:
			b = false
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case nil, float64:
		an, _ := ToNumber(a)
		bn, _ := ToNumber(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case string:
		return strings.Compare(strings.ToUpper(av), strings.ToUpper(b.(string)))
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	return 0
}

// Flatten visits every value of scalar and matrix arguments in order
func Flatten(args []any, visit func(v Value) error) error {
	for _, arg := range args {
		switch a := arg.(type) {
		case Matrix:
			for _, row := range a {
				for _, v := range row {
					if err := visit(v); err != nil {
						return err
					}
				}
			}
		default:
			if err := visit(a); err != nil {
				return err
			}
		}
	}
	return nil
}
