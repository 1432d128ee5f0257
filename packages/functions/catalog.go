package functions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ArgType is one accepted kind of argument
type ArgType string

const (
	ArgAny         ArgType = "ANY"
	ArgBoolean     ArgType = "BOOLEAN"
	ArgNumber      ArgType = "NUMBER"
	ArgString      ArgType = "STRING"
	ArgDate        ArgType = "DATE"
	ArgRange       ArgType = "RANGE"
	ArgRangeAny    ArgType = "RANGE<ANY>"
	ArgRangeBool   ArgType = "RANGE<BOOLEAN>"
	ArgRangeNumber ArgType = "RANGE<NUMBER>"
	ArgRangeString ArgType = "RANGE<STRING>"
	ArgMeta        ArgType = "META"
)

var knownArgTypes = map[ArgType]struct{}{
	ArgAny: {}, ArgBoolean: {}, ArgNumber: {}, ArgString: {}, ArgDate: {},
	ArgRange: {}, ArgRangeAny: {}, ArgRangeBool: {}, ArgRangeNumber: {},
	ArgRangeString: {}, ArgMeta: {},
}

// ArgDefinition describes one declared argument of a function
type ArgDefinition struct {
	Name         string
	Description  string
	Types        []ArgType
	Optional     bool
	Repeating    bool
	Lazy         bool
	DefaultValue string
	HasDefault   bool
}

// AcceptsRange reports whether the argument receives a full matrix when the
// call site supplies a reference
func (a ArgDefinition) AcceptsRange() bool {
	for _, t := range a.Types {
		if strings.HasPrefix(string(t), string(ArgRange)) {
			return true
		}
	}
	return false
}

// IsMeta reports whether the argument receives the reference text instead of
// a value
func (a ArgDefinition) IsMeta() bool {
	return len(a.Types) == 1 && a.Types[0] == ArgMeta
}

var argRegexp = regexp.MustCompile(`^\s*([^\s(]+)\s*\(([^)]*)\)\s*(.*)$`)

// ParseArg parses the compact argument grammar
//
//	name (type, ..., optional, repeating, lazy, default=x) description
func ParseArg(spec string) (ArgDefinition, error) {
	m := argRegexp.FindStringSubmatch(spec)
	if m == nil {
		return ArgDefinition{}, fmt.Errorf("%w: cannot parse argument %q", ErrInvalidDescription, spec)
	}
	def := ArgDefinition{Name: m[1], Description: strings.TrimSpace(m[3])}
	for _, part := range strings.Split(m[2], ",") {
		part = strings.TrimSpace(part)
		upper := strings.ToUpper(part)
		switch {
		case part == "":
			continue
		case upper == "OPTIONAL":
			def.Optional = true
		case upper == "REPEATING":
			def.Repeating = true
		case upper == "LAZY":
			def.Lazy = true
		case strings.HasPrefix(upper, "DEFAULT="):
			def.HasDefault = true
			def.DefaultValue = strings.TrimSpace(part[len("default="):])
		default:
			t := ArgType(upper)
			if _, ok := knownArgTypes[t]; !ok {
				return ArgDefinition{}, fmt.Errorf("%w: unknown type %q in argument %q", ErrInvalidDescription, part, def.Name)
			}
			def.Types = append(def.Types, t)
		}
	}
	if len(def.Types) == 0 {
		def.Types = []ArgType{ArgAny}
	}
	return def, nil
}

// Arg is ParseArg for statically declared catalogs. it panics on a malformed
// declaration.
func Arg(spec string) ArgDefinition {
	def, err := ParseArg(spec)
	if err != nil {
		panic(err)
	}
	return def
}

// Runtime gives a function access to the evaluation context it runs in
type Runtime interface {
	// CurrentPosition returns the 0-indexed column and row of the cell whose
	// formula is being evaluated
	CurrentPosition() (col int, row int)
	// ReferencePosition resolves a reference text to its top-left position
	ReferencePosition(ref string) (col int, row int, err error)
}

// ComputeFunc is a synchronous function body. arguments are Value, Matrix,
// Thunk or string (meta) depending on the declared argument kind.
type ComputeFunc func(rt Runtime, args ...any) (Value, error)

// AsyncComputeFunc is an asynchronous function body. it runs outside the
// evaluation thread and must not touch the runtime.
type AsyncComputeFunc func(ctx context.Context, args ...any) (Value, error)

// Description declares a function of the catalog
type Description struct {
	Name         string
	Description  string
	Args         []ArgDefinition
	Compute      ComputeFunc
	ComputeAsync AsyncComputeFunc
	// ReturnFormat is either a literal number format or FormatFromArgument
	ReturnFormat string
	Volatile     bool

	// derived at registration

	MinArgs        int
	MaxArgs        int // -1 when unbounded
	RepeatingGroup int
}

// FormatFromArgument makes a function inherit the format of its arguments
const FormatFromArgument = "inferFromArgument"

// IsAsync reports whether the function suspends evaluation
func (d *Description) IsAsync() bool {
	return d.ComputeAsync != nil
}

// ArgToFocus maps a call-site argument index to the declared argument slot,
// wrapping inside the repeating group. returns -1 when the index is out of
// bounds.
func (d *Description) ArgToFocus(position int) int {
	if position < 0 {
		return -1
	}
	if position < len(d.Args) {
		return position
	}
	if d.RepeatingGroup == 0 {
		return -1
	}
	firstRepeating := len(d.Args) - d.RepeatingGroup
	return firstRepeating + (position-firstRepeating)%d.RepeatingGroup
}

// ErrInvalidDescription is returned when a function declaration breaks the
// catalog rules
var ErrInvalidDescription = errors.New("invalid function description")

// Registry is the function catalog
type Registry struct {
	functions map[string]*Description
}

// NewRegistry creates an empty catalog
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]*Description)}
}

// Add validates a description, derives its arity metadata and registers it
// under its upper-cased name
func (r *Registry) Add(d Description) error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDescription)
	}
	if (d.Compute == nil) == (d.ComputeAsync == nil) {
		return fmt.Errorf("%w: %s must declare exactly one of Compute and ComputeAsync", ErrInvalidDescription, d.Name)
	}
	if err := validateArgs(d.Name, d.Args); err != nil {
		return err
	}

	d.Name = strings.ToUpper(d.Name)
	d.MinArgs, d.MaxArgs, d.RepeatingGroup = 0, 0, 0
	for _, arg := range d.Args {
		if !arg.Optional && !arg.HasDefault {
			d.MinArgs++
		}
		if arg.Repeating {
			d.RepeatingGroup++
		}
	}
	d.MaxArgs = len(d.Args)
	if d.RepeatingGroup > 0 {
		d.MaxArgs = -1
	}
	r.functions[d.Name] = &d
	return nil
}

// MustAdd is Add for statically declared catalogs
func (r *Registry) MustAdd(d Description) {
	if err := r.Add(d); err != nil {
		panic(err)
	}
}

// validateArgs enforces the declaration rules: meta arguments take no other
// type, repeating arguments come last, mandatory arguments come first
func validateArgs(name string, args []ArgDefinition) error {
	seenRepeating, seenOptional := false, false
	for _, arg := range args {
		isMeta := false
		for _, t := range arg.Types {
			if t == ArgMeta {
				isMeta = true
			}
		}
		if isMeta && len(arg.Types) > 1 {
			return fmt.Errorf("%w: %s: argument %q cannot mix META with other types", ErrInvalidDescription, name, arg.Name)
		}
		if seenRepeating && !arg.Repeating {
			return fmt.Errorf("%w: %s: argument %q cannot follow a repeating argument", ErrInvalidDescription, name, arg.Name)
		}
		mandatory := !arg.Optional && !arg.Repeating && !arg.HasDefault
		if seenOptional && mandatory {
			return fmt.Errorf("%w: %s: mandatory argument %q cannot follow an optional argument", ErrInvalidDescription, name, arg.Name)
		}
		if arg.Repeating {
			seenRepeating = true
		}
		if arg.Optional || arg.Repeating || arg.HasDefault {
			seenOptional = true
		}
	}
	return nil
}

// Get looks a function up, case-insensitively
func (r *Registry) Get(name string) (*Description, bool) {
	d, ok := r.functions[strings.ToUpper(name)]
	return d, ok
}

// Has reports whether a function exists, case-insensitively
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// IsAsync reports whether the named function is asynchronous
func (r *Registry) IsAsync(name string) bool {
	d, ok := r.Get(name)
	return ok && d.IsAsync()
}

// Names lists every registered function, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
