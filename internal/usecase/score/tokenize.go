package score

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns a summary into the token sequence compared by the scorer.
type Tokenizer func(s string) []string

// Tokenize is the default tokenizer. It applies NFC so that precomposed and
// decomposed Devanagari compare equal, lower-cases, splits on whitespace and
// trims punctuation (including the danda) from both ends of each token. A
// token made only of punctuation is kept as is.
func Tokenize(s string) []string {
	s = strings.ToLower(norm.NFC.String(s))
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if t := strings.TrimFunc(f, unicode.IsPunct); t != "" {
			f = t
		}
		tokens = append(tokens, f)
	}
	return tokens
}
