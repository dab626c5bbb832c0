// Package text provides the text utilities shared by the summarization
// pipeline: normalization of scraped or pasted articles and counting helpers.
package text

import (
	"strings"
	"unicode/utf8"
)

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Devanagari combining marks count as separate runes.
//
//	CountRunes("नेपाल")  // returns 5
//	CountRunes("")       // returns 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}

// Words splits text on Unicode whitespace. It is the word definition used by
// the chunker and by word counts reported in logs.
func Words(text string) []string {
	return strings.Fields(text)
}

// CountWords returns len(Words(text)) without allocating the slice.
func CountWords(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if isSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
