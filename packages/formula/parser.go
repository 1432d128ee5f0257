package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// ErrInvalidFormula is the root of every compile-time formula error
var ErrInvalidFormula = errors.New("invalid formula")

// FormulaError is a compile-time error with a human readable message. it is
// stored on the cell and never retried.
type FormulaError struct {
	Code    functions.ErrorCode
	Message string
}

func (e *FormulaError) Error() string {
	return e.Message
}

// Display returns the short error code shown in the cell
func (e *FormulaError) Display() string {
	if e.Code == 0 {
		return functions.ErrorMapper[functions.ErrorCodeOther]
	}
	return functions.ErrorMapper[e.Code]
}

func (e *FormulaError) Unwrap() error {
	return ErrInvalidFormula
}

func invalidf(format string, args ...any) *FormulaError {
	return &FormulaError{Code: functions.ErrorCodeOther, Message: fmt.Sprintf(format, args...)}
}

// binding powers of infix operators. a bare ":" is not an infix operator:
// range composition is folded into references by parsePrefix.
var bindingPowers = map[string]int{
	"=":  10,
	"<>": 10,
	">":  10,
	">=": 10,
	"<":  10,
	"<=": 10,
	"&":  13,
	"+":  15,
	"-":  15,
	"*":  20,
	"/":  20,
	"^":  30,
	"%":  40,
	":":  50,
}

// unaryBindingPower lets ^ apply to a negated operand, as in spreadsheets
// where -2^2 is 4
const unaryBindingPower = 30

// debugBindingPower only lets the debugger marker capture one operand
const debugBindingPower = 1000

var referenceRegexp = regexp.MustCompile(`^(('[^']+'|[^\s'!]+)!)?\$?[A-Za-z]{1,3}\$?[0-9]+$`)

// IsReference reports whether a symbol is a cell reference, optionally sheet
// qualified
func IsReference(symbol string) bool {
	return referenceRegexp.MatchString(symbol)
}

// Parser parses tokens into an AST
type Parser struct {
	tokens    []Token
	pos       int
	functions *functions.Registry
}

// NewParser creates a parser over tokens, dropping whitespace. a nil catalog
// uses the default one.
func NewParser(tokens []Token, registry *functions.Registry) *Parser {
	if registry == nil {
		registry = functions.Default()
	}
	filtered := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type != TokenSpace {
			filtered = append(filtered, tok)
		}
	}
	return &Parser{tokens: filtered, functions: registry}
}

// Parse parses formula text with the default catalog. one leading "=" is
// stripped.
func Parse(text string) (AST, error) {
	return ParseWith(text, nil)
}

// ParseWith parses formula text against a given catalog
func ParseWith(text string, registry *functions.Registry) (AST, error) {
	text = strings.TrimPrefix(text, "=")
	tokens, err := NewTokenizer(text, registry).Tokenize()
	if err != nil {
		return nil, &FormulaError{Code: functions.ErrorCodeOther, Message: err.Error()}
	}
	return NewParser(tokens, registry).Parse()
}

// ParseTokens parses an already tokenized formula with the default catalog
func ParseTokens(tokens []Token) (AST, error) {
	return NewParser(tokens, nil).Parse()
}

// Parse parses the whole token stream into one expression
func (p *Parser) Parse() (AST, error) {
	if len(p.tokens) == 0 {
		return nil, invalidf("Invalid formula")
	}
	ast, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type == TokenRightParen {
			return nil, invalidf("Invalid formula: unmatched closing parenthesis")
		}
		return nil, invalidf("Invalid formula: unexpected token %q", tok.Value)
	}
	return ast, nil
}

func (p *Parser) peek(offset int) (Token, bool) {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[i], true
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// parseExpression is the precedence climbing loop: it keeps folding infix
// operators binding tighter than bp into the left operand
func (p *Parser) parseExpression(bp int) (AST, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek(0)
		if !ok || tok.Type != TokenOperator {
			return left, nil
		}
		opBP := bindingPowers[tok.Value]
		if opBP <= bp {
			return left, nil
		}
		p.advance()
		switch tok.Value {
		case ":":
			return nil, invalidf("Invalid formula: range operator outside of a reference")
		case "%":
			left = &UnaryNode{
				node:    node{Position: NodePosition{Start: left.GetPosition().Start, End: tok.End}},
				Op:      "%",
				Operand: left,
			}
			continue
		}
		right, err := p.parseExpression(opBP)
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{
			node:  node{Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End}},
			Op:    tok.Value,
			Left:  left,
			Right: right,
		}
	}
}

func (p *Parser) parsePrefix() (AST, error) {
	tok, ok := p.peek(0)
	if !ok {
		return nil, invalidf("Invalid formula: unexpected end of formula")
	}
	p.advance()
	position := NodePosition{Start: tok.Start, End: tok.End}

	switch tok.Type {
	case TokenDebugger:
		next, err := p.parseExpression(debugBindingPower)
		if err != nil {
			return nil, err
		}
		next.setDebug()
		return next, nil

	case TokenNumber:
		value, ok := functions.ParseNumber(tok.Value)
		if !ok {
			return nil, invalidf("Invalid number: %s", tok.Value)
		}
		return &NumberNode{
			node:    node{Position: position},
			Value:   value,
			Percent: strings.HasSuffix(tok.Value, "%"),
		}, nil

	case TokenString:
		return &StringNode{node: node{Position: position}, Value: unquote(tok.Value)}, nil

	case TokenReference:
		index, err := strconv.Atoi(strings.Trim(tok.Value, "|"))
		if err != nil {
			return nil, invalidf("Invalid reference marker: %s", tok.Value)
		}
		return &ReferenceNode{node: node{Position: position}, Index: index}, nil

	case TokenFunction, TokenSymbol:
		if next, ok := p.peek(0); ok && next.Type == TokenLeftParen {
			return p.parseCall(tok)
		}
		return p.parseSymbol(tok)

	case TokenLeftParen:
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek(0)
		if !ok || closing.Type != TokenRightParen {
			return nil, invalidf("Invalid formula: missing closing parenthesis")
		}
		p.advance()
		return expr, nil

	case TokenOperator:
		if tok.Value == "-" || tok.Value == "+" {
			operand, err := p.parseExpression(unaryBindingPower)
			if err != nil {
				return nil, err
			}
			return &UnaryNode{
				node:    node{Position: NodePosition{Start: tok.Start, End: operand.GetPosition().End}},
				Op:      tok.Value,
				Operand: operand,
			}, nil
		}
		if tok.Value == ":" {
			return nil, invalidf("Invalid formula: range operator outside of a reference")
		}
	}
	return nil, invalidf("Invalid formula: unexpected token %q", tok.Value)
}

// parseCall parses the argument list of a call. an argument left empty
// between commas is kept as an EmptyNode.
func (p *Parser) parseCall(nameTok Token) (AST, error) {
	p.advance() // "("
	call := &CallNode{
		node:  node{Position: NodePosition{Start: nameTok.Start}},
		Name:  strings.ToUpper(nameTok.Value),
		Async: p.functions.IsAsync(nameTok.Value),
	}
	tok, ok := p.peek(0)
	if ok && tok.Type == TokenRightParen {
		p.advance()
		call.Position.End = tok.End
		return call, nil
	}
	for {
		tok, ok = p.peek(0)
		if !ok {
			return nil, invalidf("Invalid formula: missing closing parenthesis")
		}
		if tok.Type == TokenComma || tok.Type == TokenRightParen {
			call.Args = append(call.Args, &EmptyNode{node: node{Position: NodePosition{Start: tok.Start, End: tok.Start}}})
		} else {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		tok, ok = p.peek(0)
		if !ok {
			return nil, invalidf("Invalid formula: missing closing parenthesis")
		}
		p.advance()
		switch tok.Type {
		case TokenComma:
			continue
		case TokenRightParen:
			call.Position.End = tok.End
			return call, nil
		default:
			return nil, invalidf("Invalid formula: unexpected token %q in arguments of %s", tok.Value, call.Name)
		}
	}
}

// parseSymbol resolves a symbol that is not followed by a call. references
// absorb a following ":" and cell symbol into a single range reference.
func (p *Parser) parseSymbol(tok Token) (AST, error) {
	position := NodePosition{Start: tok.Start, End: tok.End}
	if IsReference(tok.Value) {
		text := tok.Value
		colon, hasColon := p.peek(0)
		end, hasEnd := p.peek(1)
		if hasColon && hasEnd && colon.Type == TokenOperator && colon.Value == ":" &&
			end.Type == TokenSymbol && IsReference(end.Value) && !strings.Contains(end.Value, "!") {
			p.pos += 2
			text += ":" + end.Value
			position.End = end.End
		}
		return &ReferenceNode{node: node{Position: position}, Index: -1, Text: text}, nil
	}
	switch strings.ToUpper(tok.Value) {
	case "TRUE":
		return &BooleanNode{node: node{Position: position}, Value: true}, nil
	case "FALSE":
		return &BooleanNode{node: node{Position: position}, Value: false}, nil
	}
	return &UnknownNode{node: node{Position: position}, Name: tok.Value}, nil
}

// unquote strips the surrounding double quotes of a string token and
// resolves backslash escapes
func unquote(raw string) string {
	runes := []rune(raw)
	if len(runes) > 0 && runes[0] == charQuote {
		runes = runes[1:]
	}
	var sb strings.Builder
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == charBackslash && i+1 < len(runes):
			i++
		case runes[i] == charQuote:
			return sb.String()
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}
