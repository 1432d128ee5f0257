package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeKinds(t *testing.T) {
	tokens, err := Tokenize(`=SUM(A1, "x")`)
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenOperator, TokenFunction, TokenLeftParen, TokenSymbol,
		TokenComma, TokenSpace, TokenString, TokenRightParen,
	}, tokenTypes(tokens))

	tests := []struct {
		input string
		types []TokenType
		value []string
	}{
		{"12abc", []TokenType{TokenNumber, TokenSymbol}, []string{"12", "abc"}},
		{"3.5%", []TokenType{TokenNumber}, []string{"3.5%"}},
		{"1e5+.5", []TokenType{TokenNumber, TokenOperator, TokenNumber}, []string{"1e5", "+", ".5"}},
		{"A1>=B1", []TokenType{TokenSymbol, TokenOperator, TokenSymbol}, []string{"A1", ">=", "B1"}},
		{"?A1", []TokenType{TokenDebugger, TokenSymbol}, []string{"?", "A1"}},
		{"|3|", []TokenType{TokenReference}, []string{"|3|"}},
		{"sum", []TokenType{TokenFunction}, []string{"sum"}},
		{"'My sheet'!A1", []TokenType{TokenSymbol}, []string{"'My sheet'!A1"}},
		{`"a\"b"`, []TokenType{TokenString}, []string{`"a\"b"`}},
		{"#", []TokenType{TokenUnknown}, []string{"#"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.types, tokenTypes(tokens))
			values := make([]string, len(tokens))
			for i, tok := range tokens {
				values[i] = tok.Value
			}
			assert.Equal(t, tt.value, values)
		})
	}
}

func TestTokenizeIsLossless(t *testing.T) {
	inputs := []string{
		"=SUM(A1:B2, 3.5%)",
		`="unterminated`,
		"'My sheet'!A1 + 2",
		"=@#~",
		"=|0| + |1|",
		"=héllo(ä, 世界)",
		"'unclosed",
		"   ",
		"=\xff\xfeA1",
		"=\"a\xc3\"&B\x80",
	}
	for _, input := range inputs {
		tokens, err := Tokenize(input)
		require.NoError(t, err, input)
		var sb strings.Builder
		for _, tok := range tokens {
			sb.WriteString(tok.Value)
			assert.Equal(t, tok.End-tok.Start, tok.Length)
		}
		assert.Equal(t, input, sb.String())
	}
}

func TestTokenizeGuardsAgainstLongFormulas(t *testing.T) {
	_, err := Tokenize(strings.Repeat("1+", 49) + "1")
	require.NoError(t, err)

	_, err = Tokenize(strings.Repeat("1+", 60))
	assert.ErrorIs(t, err, ErrTooManyTokens)
}
