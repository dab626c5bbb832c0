package text

import (
	"regexp"
	"strings"
	"unicode"
)

// noiseChars matches the characters stripped from article text: ASCII
// alphanumerics and a fixed set of markup symbols. Devanagari and the danda
// (।) are untouched.
var noiseChars = regexp.MustCompile(`[a-zA-Z0-9!#@_$%^&*]`)

// Normalize removes noise characters, trims every line, drops empty lines
// and joins the rest with a single space. The result never contains a line
// break and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = noiseChars.ReplaceAllString(s, "")

	lines := strings.FieldsFunc(s, isLineBreak)
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

// isLineBreak reports the line boundaries recognised when splitting text into lines.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
