package ebook

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// minTokenRunes is the shortest token kept; "là", "và", "có" and the like are
// dropped.
const minTokenRunes = 3

// Tokenize splits text into the lower-cased tokens used both for indexing
// paragraphs and for parsing queries.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if isTokenRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, fold(text))

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// isTokenRune reports word runes plus the Latin-1 to Latin Extended
// Additional block (À..ỹ) that carries the Vietnamese alphabet.
func isTokenRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r):
		return true
	case unicode.Is(unicode.Pc, r):
		return true
	case r >= 'À' && r <= 'ỹ':
		return true
	}
	return false
}

// fold lower-cases in NFC so precomposed and combining-mark spellings of the
// same Vietnamese word compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
