package formula

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// TokenType represents the different kinds of formula tokens
type TokenType string

const (
	TokenSpace      TokenType = "SPACE"
	TokenNumber     TokenType = "NUMBER"
	TokenString     TokenType = "STRING"
	TokenOperator   TokenType = "OPERATOR"
	TokenLeftParen  TokenType = "LEFT_PAREN"
	TokenRightParen TokenType = "RIGHT_PAREN"
	TokenComma      TokenType = "COMMA"
	TokenSymbol     TokenType = "SYMBOL"
	TokenFunction   TokenType = "FUNCTION"
	TokenDebugger   TokenType = "DEBUGGER"
	TokenReference  TokenType = "REFERENCE"
	TokenUnknown    TokenType = "UNKNOWN"
)

// MaxTokens guards the tokenizer against pathological input
const MaxTokens = 100

// ErrTooManyTokens is returned when a formula has more than MaxTokens parts
var ErrTooManyTokens = errors.New("this formula has over 100 parts. It can't be processed properly, consider splitting it into multiple cells")

// Token represents a lexical token with its rune offsets in the input
type Token struct {
	Type   TokenType
	Value  string
	Start  int
	End    int
	Length int
}

// character classification constants. slightly easier to read.
const (
	charQuote      = '"'
	charApostrophe = '\''
	charBackslash  = '\\'
	charPercent    = '%'
	charLParen     = '('
	charRParen     = ')'
	charComma      = ','
	charPeriod     = '.'
	charUnderscore = '_'
	charExclaim    = '!'
	charDollar     = '$'
	charQuestion   = '?'
	charPipe       = '|'
)

// operators sorted longest first so that matching is greedy
var operators = func() []string {
	ops := []string{"+", "-", "*", "/", ":", "=", "<>", ">=", ">", "<=", "<", "^", "&", "%"}
	sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })
	return ops
}()

// formulaNumber matches a number at the start of the remaining input. it
// stops at the first non numeric run instead of requiring the whole
// remainder to match.
var formulaNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?(\s*%)?`)

var normalizedReference = regexp.MustCompile(`^\|\d+\|`)

// Tokenizer splits formula text into tokens
type Tokenizer struct {
	input       string
	runes       []rune // UTF-8 aware representation
	offsets     []int  // byte offset of each rune, plus len(input)
	pos         int
	symbolStart int
	functions   *functions.Registry
}

// NewTokenizer creates a tokenizer classifying symbols against the given
// function catalog. a nil catalog uses the default one.
func NewTokenizer(input string, registry *functions.Registry) *Tokenizer {
	if registry == nil {
		registry = functions.Default()
	}
	t := &Tokenizer{input: input, functions: registry}
	// invalid bytes decode to U+FFFD of width 1; offsets keep the raw bytes
	for i, r := range input {
		t.runes = append(t.runes, r)
		t.offsets = append(t.offsets, i)
	}
	t.offsets = append(t.offsets, len(input))
	return t
}

// Tokenize tokenizes text with the default function catalog
func Tokenize(text string) ([]Token, error) {
	return NewTokenizer(text, nil).Tokenize()
}

// Tokenize consumes the whole input. every input rune ends up in exactly one
// token, so concatenating the token values gives back the input.
func (t *Tokenizer) Tokenize() ([]Token, error) {
	var tokens []Token
	for t.pos < len(t.runes) {
		if len(tokens) >= MaxTokens {
			return nil, ErrTooManyTokens
		}
		start := t.pos
		tokenType := t.next()
		value := t.text(start, t.pos)
		tokens = append(tokens, Token{
			Type:   tokenType,
			Value:  value,
			Start:  start,
			End:    t.pos,
			Length: t.pos - start,
		})
	}
	return tokens, nil
}

// text returns the input between two rune positions, byte for byte
func (t *Tokenizer) text(from, to int) string {
	return t.input[t.offsets[from]:t.offsets[to]]
}

// next consumes one token and returns its type. it always advances.
func (t *Tokenizer) next() TokenType {
	ch := t.runes[t.pos]
	rest := t.input[t.offsets[t.pos]:]

	switch {
	case unicode.IsSpace(ch):
		for t.pos < len(t.runes) && unicode.IsSpace(t.runes[t.pos]) {
			t.pos++
		}
		return TokenSpace
	case ch == charLParen:
		t.pos++
		return TokenLeftParen
	case ch == charRParen:
		t.pos++
		return TokenRightParen
	case ch == charComma:
		t.pos++
		return TokenComma
	}

	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			t.pos += len([]rune(op))
			return TokenOperator
		}
	}

	switch {
	case ch == charQuote:
		t.consumeString()
		return TokenString
	case ch == charQuestion:
		t.pos++
		return TokenDebugger
	case ch == charPipe:
		if m := normalizedReference.FindString(rest); m != "" {
			t.pos += len([]rune(m))
			return TokenReference
		}
	}

	if m := formulaNumber.FindString(rest); m != "" {
		t.pos += len([]rune(m))
		return TokenNumber
	}

	if t.consumeSymbol() {
		if t.functions.Has(t.text(t.symbolStart, t.pos)) {
			return TokenFunction
		}
		return TokenSymbol
	}

	// one rune fallback guarantees termination
	t.pos++
	return TokenUnknown
}

// consumeString reads a double-quoted string. a backslash escapes the next
// rune. an unterminated string runs to the end of the input.
func (t *Tokenizer) consumeString() {
	t.pos++ // opening quote
	for t.pos < len(t.runes) {
		ch := t.runes[t.pos]
		t.pos++
		if ch == charBackslash && t.pos < len(t.runes) {
			t.pos++
			continue
		}
		if ch == charQuote {
			return
		}
	}
}

func isSymbolChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) ||
		ch == charUnderscore || ch == charPeriod || ch == charExclaim || ch == charDollar
}

// consumeSymbol reads an identifier-like run. a single-quoted prefix allows
// embedded spaces, as in 'My sheet'!A1.
func (t *Tokenizer) consumeSymbol() bool {
	start := t.pos
	t.symbolStart = start
	if t.runes[t.pos] == charApostrophe {
		end := t.pos + 1
		for end < len(t.runes) && t.runes[end] != charApostrophe {
			end++
		}
		if end >= len(t.runes) {
			return false
		}
		t.pos = end + 1
		for t.pos < len(t.runes) && isSymbolChar(t.runes[t.pos]) {
			t.pos++
		}
		return true
	}
	for t.pos < len(t.runes) && isSymbolChar(t.runes[t.pos]) {
		t.pos++
	}
	return t.pos > start
}
