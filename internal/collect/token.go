package collect

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and removes combining diacritical marks,
// so "Café" tokenizes the same as "Cafe".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// tokenPunct is the punctuation class replaced by spaces before
// splitting.
const tokenPunct = "_,.?!-()"

// Tokenize normalizes text into lower-case search tokens: diacritics
// stripped, the fixed punctuation class broken on, runs of whitespace
// split. Pure; returns nil for empty or whitespace-only input.
func Tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if stripped, _, err := transform.String(stripMarks, text); err == nil {
		text = stripped
	}

	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(tokenPunct, r) {
			return ' '
		}
		return r
	}, text)

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = strings.ToLower(f)
	}
	return tokens
}
