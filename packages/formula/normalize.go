package formula

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// NormalizedFormula is the persisted shape of a formula: its text with every
// reference replaced by a positional |n| marker, and the references
// themselves in marker order
type NormalizedFormula struct {
	Text         string   `json:"text"`
	Dependencies []string `json:"dependencies"`
}

// Normalize blanks the references of a formula with the default catalog
func Normalize(text string) (NormalizedFormula, error) {
	return NormalizeWith(text, nil)
}

// NormalizeWith blanks the references of a formula. ranges written as
// A1:B2 become a single dependency. whitespace is kept as typed.
func NormalizeWith(text string, registry *functions.Registry) (NormalizedFormula, error) {
	tokens, err := NewTokenizer(text, registry).Tokenize()
	if err != nil {
		return NormalizedFormula{}, &FormulaError{Code: functions.ErrorCodeOther, Message: err.Error()}
	}
	var sb strings.Builder
	result := NormalizedFormula{Dependencies: []string{}}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type != TokenSymbol || !IsReference(tok.Value) || nextSignificant(tokens, i+1, TokenLeftParen) >= 0 {
			sb.WriteString(tok.Value)
			continue
		}
		ref := tok.Value
		if colon := nextSignificant(tokens, i+1, TokenOperator); colon >= 0 && tokens[colon].Value == ":" {
			if end := nextSignificant(tokens, colon+1, TokenSymbol); end >= 0 &&
				IsReference(tokens[end].Value) && !strings.Contains(tokens[end].Value, "!") {
				ref += ":" + tokens[end].Value
				i = end
			}
		}
		fmt.Fprintf(&sb, "|%d|", len(result.Dependencies))
		result.Dependencies = append(result.Dependencies, ref)
	}
	result.Text = sb.String()
	return result, nil
}

// nextSignificant returns the index of the first non space token at or after
// from when it has the wanted type, -1 otherwise
func nextSignificant(tokens []Token, from int, want TokenType) int {
	for i := from; i < len(tokens); i++ {
		if tokens[i].Type == TokenSpace {
			continue
		}
		if tokens[i].Type == want {
			return i
		}
		return -1
	}
	return -1
}

var markerRegexp = regexp.MustCompile(`\|(\d+)\|`)

// Denormalize rebuilds formula text from normalized text and the current
// text of its dependencies. markers inside string literals are left alone.
func Denormalize(text string, dependencies []string) string {
	tokens, err := NewTokenizer(text, nil).Tokenize()
	if err != nil {
		return markerRegexp.ReplaceAllStringFunc(text, func(marker string) string {
			return dependencyText(marker, dependencies)
		})
	}
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Type == TokenReference {
			sb.WriteString(dependencyText(tok.Value, dependencies))
			continue
		}
		sb.WriteString(tok.Value)
	}
	return sb.String()
}

func dependencyText(marker string, dependencies []string) string {
	index, err := strconv.Atoi(strings.Trim(marker, "|"))
	if err != nil || index < 0 || index >= len(dependencies) {
		return functions.ErrorMapper[functions.ErrorCodeRef]
	}
	return dependencies[index]
}
