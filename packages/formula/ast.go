package formula

import (
	"fmt"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// NodePosition is the token span of a node
type NodePosition struct {
	Start int
	End   int
}

// AST is a parsed formula expression. nodes can be rendered back to formula
// text, which is how tests and debug output inspect them.
type AST interface {
	GetPosition() NodePosition
	String() string
	debugging() bool
	setDebug()
}

type node struct {
	Position NodePosition
	Debug    bool
}

func (n *node) GetPosition() NodePosition { return n.Position }
func (n *node) debugging() bool           { return n.Debug }
func (n *node) setDebug()                 { n.Debug = true }

// NumberNode represents a numeric literal. Percent is set for literals
// written with a trailing %, whose value is already divided by 100.
type NumberNode struct {
	node
	Value   float64
	Percent bool
}

func (n *NumberNode) String() string {
	if n.Percent {
		return functions.FormatNumber(n.Value*100) + "%"
	}
	return functions.FormatNumber(n.Value)
}

// StringNode represents a string literal
type StringNode struct {
	node
	Value string
}

func (n *StringNode) String() string {
	return `"` + strings.ReplaceAll(n.Value, `"`, `\"`) + `"`
}

// BooleanNode represents a boolean literal
type BooleanNode struct {
	node
	Value bool
}

func (n *BooleanNode) String() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// ReferenceNode is a cell or range reference. normalized formulas address
// references by Index into their dependency list, raw formulas keep Text.
type ReferenceNode struct {
	node
	Index int
	Text  string
}

func (n *ReferenceNode) String() string {
	if n.Index >= 0 {
		return fmt.Sprintf("|%d|", n.Index)
	}
	return n.Text
}

// UnaryNode is a prefix (+, -) or postfix (%) operation
type UnaryNode struct {
	node
	Op      string
	Operand AST
}

func (n *UnaryNode) String() string {
	if n.Op == "%" {
		return n.Operand.String() + "%"
	}
	return n.Op + n.Operand.String()
}

// BinaryNode is an infix operation
type BinaryNode struct {
	node
	Op    string
	Left  AST
	Right AST
}

func (n *BinaryNode) String() string {
	return fmt.Sprintf("(%s%s%s)", n.Left.String(), n.Op, n.Right.String())
}

// CallNode is a function call. Async is decided at parse time from the
// function catalog.
type CallNode struct {
	node
	Name  string
	Args  []AST
	Async bool
}

func (n *CallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

// EmptyNode is an argument left empty between two commas
type EmptyNode struct {
	node
}

func (n *EmptyNode) String() string {
	return ""
}

// UnknownNode is a symbol that is neither a reference, a boolean nor a
// function call
type UnknownNode struct {
	node
	Name string
}

func (n *UnknownNode) String() string {
	return n.Name
}

// Walk visits ast depth first, parents before children
func Walk(ast AST, visit func(AST)) {
	if ast == nil {
		return
	}
	visit(ast)
	switch n := ast.(type) {
	case *UnaryNode:
		Walk(n.Operand, visit)
	case *BinaryNode:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *CallNode:
		for _, arg := range n.Args {
			Walk(arg, visit)
		}
	}
}
