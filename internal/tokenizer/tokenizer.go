// Package tokenizer counts the tokens of resolved text.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// Estimator approximates token counts from character counts, for model
// families without a bundled vocabulary.
type Estimator struct {
	// CharsPerToken is used when no model family matches. Defaults to 4.
	CharsPerToken float64
}

// Approximate characters per token by model family prefix.
var familyRatios = []struct {
	prefix string
	ratio  float64
}{
	{"gpt-", 4},
	{"o1", 4},
	{"claude", 3.5},
	{"gemini", 4},
	{"llama", 3.8},
	{"mistral", 3.7},
}

// Count returns the estimated number of tokens of text for modelHint.
func (e Estimator) Count(text, modelHint string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}

	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = 4
	}
	hint := strings.ToLower(modelHint)
	for _, f := range familyRatios {
		if strings.HasPrefix(hint, f.prefix) {
			ratio = f.ratio
			break
		}
	}

	n := int(float64(runes)/ratio + 0.999)
	if n < 1 {
		n = 1
	}
	return n
}
