package quiz

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes an answer string so correct answers and distractors
// are stylistically indistinguishable: keep the first meaning, sentence case.
func Normalize(meaning string) string {
	return SentenceCase(FirstMeaning(meaning))
}

// FirstMeaning keeps only the first meaning when several are separated by semicolons.
func FirstMeaning(meaning string) string {
	if i := strings.IndexByte(meaning, ';'); i >= 0 {
		meaning = meaning[:i]
	}
	return strings.TrimSpace(meaning)
}

// SentenceCase upper-cases the first letter and lower-cases the rest.
func SentenceCase(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
