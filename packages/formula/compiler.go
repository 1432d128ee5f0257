package formula

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// Runtime is what a compiled unit needs from the evaluation engine. reference
// markers are resolved positionally against the dependencies of the cell
// being evaluated.
type Runtime interface {
	functions.Runtime
	// Reference returns the value of the single cell behind marker index
	Reference(index int) (functions.Value, error)
	// Range returns every value behind marker index, row-major
	Range(index int) (functions.Matrix, error)
	// IsRange reports whether marker index covers more than one cell
	IsRange(index int) bool
	// RefText returns the reference text behind marker index
	RefText(index int) string
	// CallAsync returns the settled result of an async call, or
	// functions.ErrNotReady while it is in flight
	CallAsync(callID int, d *functions.Description, args []any) (functions.Value, error)
}

// FormatSource is one entry of the format stack of a compiled unit: either a
// literal format or the index of a dependency whose format is inherited
type FormatSource struct {
	Format string
	Dep    int
}

// IsDependency reports whether the format comes from a dependency
func (f FormatSource) IsDependency() bool {
	return f.Format == "" && f.Dep >= 0
}

// CompiledUnit is the executable form shared by every formula with the same
// normalized text
type CompiledUnit struct {
	Text          string
	Execute       func(rt Runtime) (functions.Value, error)
	FormatSources []FormatSource
	Async         bool
	Volatile      bool
	// Listing shows the numbered temporaries the unit evaluates
	Listing string
}

type operand func(rt Runtime) (any, error)

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithRegistry compiles against a specific function catalog
func WithRegistry(r *functions.Registry) CompilerOption {
	return func(c *Compiler) {
		c.functions = r
	}
}

// WithLogger sets the logger used by debug (?) expressions
func WithLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		c.logger = l
	}
}

// Compiler turns normalized formulas into compiled units, memoized by
// normalized text
type Compiler struct {
	mu        sync.Mutex
	functions *functions.Registry
	logger    *slog.Logger
	cache     map[string]*CompiledUnit
}

// NewCompiler creates a compiler with an empty cache
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		functions: functions.Default(),
		logger:    slog.Default(),
		cache:     make(map[string]*CompiledUnit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Functions returns the catalog the compiler resolves calls against
func (c *Compiler) Functions() *functions.Registry {
	return c.functions
}

// Len returns the number of cached units
func (c *Compiler) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Reset drops every cached unit
func (c *Compiler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*CompiledUnit)
}

// Compile returns the unit for a normalized formula. compile errors are not
// cached.
func (c *Compiler) Compile(f NormalizedFormula) (*CompiledUnit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unit, ok := c.cache[f.Text]; ok {
		return unit, nil
	}
	ast, err := ParseWith(f.Text, c.functions)
	if err != nil {
		return nil, err
	}
	cp := &compilation{compiler: c}
	root, label, err := cp.compile(ast)
	if err != nil {
		return nil, err
	}
	cp.emit("return %s", label)
	unit := &CompiledUnit{
		Text:          f.Text,
		FormatSources: cp.formatSources(ast),
		Async:         cp.async,
		Volatile:      cp.volatile,
		Listing:       strings.Join(cp.listing, "\n"),
		Execute: func(rt Runtime) (functions.Value, error) {
			return root(rt)
		},
	}
	c.cache[f.Text] = unit
	return unit, nil
}

// compilation holds the state of compiling one formula
type compilation struct {
	compiler   *Compiler
	listing    []string
	temps      int
	asyncCalls int
	async      bool
	volatile   bool
}

func (cp *compilation) emit(format string, args ...any) {
	cp.listing = append(cp.listing, fmt.Sprintf(format, args...))
}

func (cp *compilation) temp() string {
	cp.temps++
	return fmt.Sprintf("_%d", cp.temps)
}

func constant(v any) operand {
	return func(Runtime) (any, error) { return v, nil }
}

// compile returns the operand of a node and the label it is known by in the
// listing. literals are their own label and get no temporary.
func (cp *compilation) compile(ast AST) (operand, string, error) {
	op, label, err := cp.compileNode(ast)
	if err != nil {
		return nil, "", err
	}
	return cp.debug(ast, op), label, nil
}

// debug logs the value of an operand marked with "?" each time it runs
func (cp *compilation) debug(ast AST, op operand) operand {
	if !ast.debugging() {
		return op
	}
	logger, expression := cp.compiler.logger, ast.String()
	return func(rt Runtime) (any, error) {
		v, err := op(rt)
		col, row := rt.CurrentPosition()
		logger.Debug("formula debugger", "col", col, "row", row, "expression", expression, "value", v, "error", err)
		return v, err
	}
}

func (cp *compilation) compileNode(ast AST) (operand, string, error) {
	switch n := ast.(type) {
	case *NumberNode:
		return constant(n.Value), n.String(), nil
	case *StringNode:
		return constant(n.Value), n.String(), nil
	case *BooleanNode:
		return constant(n.Value), n.String(), nil
	case *EmptyNode:
		return constant(nil), "null", nil
	case *ReferenceNode:
		if n.Index < 0 {
			return nil, "", invalidf("Invalid formula: reference %s was not normalized", n.Text)
		}
		index := n.Index
		label := cp.temp()
		cp.emit("%s = ref(%d)", label, index)
		return func(rt Runtime) (any, error) {
			if rt.IsRange(index) {
				return rt.Range(index)
			}
			return rt.Reference(index)
		}, label, nil
	case *UnaryNode:
		return cp.compileCall(&CallNode{node: n.node, Name: functions.UnaryOperators[n.Op], Args: []AST{n.Operand}})
	case *BinaryNode:
		return cp.compileCall(&CallNode{node: n.node, Name: functions.BinaryOperators[n.Op], Args: []AST{n.Left, n.Right}})
	case *CallNode:
		return cp.compileCall(n)
	case *UnknownNode:
		return nil, "", &FormulaError{Code: functions.ErrorCodeName, Message: fmt.Sprintf("Invalid formula: unknown name %s", n.Name)}
	}
	return nil, "", invalidf("Invalid formula")
}

func (cp *compilation) compileCall(call *CallNode) (operand, string, error) {
	d, ok := cp.compiler.functions.Get(call.Name)
	if !ok {
		return nil, "", &FormulaError{Code: functions.ErrorCodeName, Message: fmt.Sprintf("Invalid formula: unknown function %s", call.Name)}
	}
	if err := checkArity(d, len(call.Args)); err != nil {
		return nil, "", err
	}
	if d.Volatile {
		cp.volatile = true
	}

	args := make([]operand, 0, len(call.Args))
	labels := make([]string, 0, len(call.Args))
	for i, arg := range call.Args {
		def := d.Args[d.ArgToFocus(i)]
		op, label, err := cp.compileArg(d, def, i, arg)
		if err != nil {
			return nil, "", err
		}
		args = append(args, op)
		labels = append(labels, label)
	}
	// trailing declared arguments only need filling up to the last default
	lastDefault := -1
	for slot := len(call.Args); slot < len(d.Args); slot++ {
		if d.Args[slot].HasDefault {
			lastDefault = slot
		}
	}
	for slot := len(call.Args); slot <= lastDefault; slot++ {
		def := d.Args[slot]
		var v any
		if def.HasDefault {
			v = defaultValue(def.DefaultValue)
		}
		op := constant(v)
		if def.Lazy && !d.IsAsync() {
			op = constant(functions.Thunk(func() (functions.Value, error) { return v, nil }))
		}
		args = append(args, op)
		labels = append(labels, fmt.Sprint(v))
	}

	label := cp.temp()
	name := d.Name
	if d.IsAsync() {
		cp.async = true
		callID := cp.asyncCalls
		cp.asyncCalls++
		cp.emit("%s = await %s(%s)", label, name, strings.Join(labels, ", "))
		return func(rt Runtime) (any, error) {
			values, err := evaluateArgs(rt, args)
			if err != nil {
				return nil, err
			}
			v, err := rt.CallAsync(callID, d, values)
			if err != nil {
				return nil, withFunctionName(err, name)
			}
			return v, nil
		}, label, nil
	}
	cp.emit("%s = %s(%s)", label, name, strings.Join(labels, ", "))
	return func(rt Runtime) (any, error) {
		values, err := evaluateArgs(rt, args)
		if err != nil {
			return nil, err
		}
		v, err := d.Compute(rt, values...)
		if err != nil {
			return nil, withFunctionName(err, name)
		}
		return v, nil
	}, label, nil
}

// compileArg picks the passing strategy of one argument from its declared
// kind
func (cp *compilation) compileArg(d *functions.Description, def functions.ArgDefinition, position int, arg AST) (operand, string, error) {
	if def.IsMeta() {
		switch a := arg.(type) {
		case *ReferenceNode:
			index := a.Index
			return func(rt Runtime) (any, error) { return rt.RefText(index), nil }, fmt.Sprintf("refText(%d)", index), nil
		case *EmptyNode:
			return constant(nil), "null", nil
		}
		return nil, "", invalidf("Argument %s of function %s must be a reference to a cell or range.", def.Name, d.Name)
	}

	var op operand
	var label string
	if _, ok := arg.(*EmptyNode); ok && def.HasDefault {
		v := defaultValue(def.DefaultValue)
		op, label = constant(v), fmt.Sprint(v)
	} else if ref, ok := arg.(*ReferenceNode); ok {
		if ref.Index < 0 {
			return nil, "", invalidf("Invalid formula: reference %s was not normalized", ref.Text)
		}
		index := ref.Index
		label = cp.temp()
		if def.AcceptsRange() {
			cp.emit("%s = range(%d)", label, index)
			op = func(rt Runtime) (any, error) { return rt.Range(index) }
		} else {
			cp.emit("%s = ref(%d)", label, index)
			name := d.Name
			op = func(rt Runtime) (any, error) {
				if rt.IsRange(index) {
					return nil, functions.Errorf(functions.ErrorCodeValue,
						"Function %s expects the parameter %d to be a single value or a single cell reference, not a range.",
						functions.FunctionNamePlaceholder, position+1).WithFunctionName(name)
				}
				return rt.Reference(index)
			}
		}
		op = cp.debug(ref, op)
	} else {
		var err error
		op, label, err = cp.compile(arg)
		if err != nil {
			return nil, "", err
		}
	}

	if def.Lazy && !d.IsAsync() {
		eager := op
		op = func(rt Runtime) (any, error) {
			return functions.Thunk(func() (functions.Value, error) {
				return eager(rt)
			}), nil
		}
		label = "() => " + label
	}
	return op, label, nil
}

func evaluateArgs(rt Runtime, args []operand) ([]any, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := arg(rt)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func withFunctionName(err error, name string) error {
	var evalErr *functions.EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr.WithFunctionName(name)
	}
	return err
}

// checkArity validates the number of arguments of a call against the
// derived metadata of the function
func checkArity(d *functions.Description, n int) error {
	if n < d.MinArgs {
		return invalidf("Invalid number of arguments for the %s function. Expected %d minimum, but got %d instead.", d.Name, d.MinArgs, n)
	}
	if d.MaxArgs >= 0 && n > d.MaxArgs {
		return invalidf("Invalid number of arguments for the %s function. Expected %d maximum, but got %d instead.", d.Name, d.MaxArgs, n)
	}
	if d.RepeatingGroup > 1 && n > len(d.Args) {
		firstRepeating := len(d.Args) - d.RepeatingGroup
		if (n-firstRepeating)%d.RepeatingGroup != 0 {
			return invalidf("Invalid number of arguments for the %s function. Expected all arguments after position %d to be supplied by groups of %d arguments.",
				d.Name, firstRepeating, d.RepeatingGroup)
		}
	}
	return nil
}

// defaultValue converts a declared default to a value: a number, a boolean
// or a quoted string
func defaultValue(raw string) functions.Value {
	switch strings.ToUpper(raw) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if n, ok := functions.ParseNumber(raw); ok {
		return n
	}
	return strings.Trim(raw, `"'`)
}

// formatSources derives the ordered format stack of an expression
func (cp *compilation) formatSources(ast AST) []FormatSource {
	switch n := ast.(type) {
	case *NumberNode:
		if n.Percent {
			return []FormatSource{{Format: "0%", Dep: -1}}
		}
	case *ReferenceNode:
		return []FormatSource{{Dep: n.Index}}
	case *UnaryNode:
		return cp.callFormat(functions.UnaryOperators[n.Op], []AST{n.Operand})
	case *BinaryNode:
		return cp.callFormat(functions.BinaryOperators[n.Op], []AST{n.Left, n.Right})
	case *CallNode:
		return cp.callFormat(n.Name, n.Args)
	}
	return nil
}

func (cp *compilation) callFormat(name string, args []AST) []FormatSource {
	d, ok := cp.compiler.functions.Get(name)
	if !ok {
		return nil
	}
	switch d.ReturnFormat {
	case "":
		return nil
	case functions.FormatFromArgument:
		var sources []FormatSource
		for _, arg := range args {
			sources = append(sources, cp.formatSources(arg)...)
		}
		return sources
	default:
		return []FormatSource{{Format: d.ReturnFormat, Dep: -1}}
	}
}
