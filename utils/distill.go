package utils

import (
	"errors"
	"strings"
)

// Distillation reduces an intention to the letter sequence that seeds the
// sigil generators: uppercase, A-Z only, vowels dropped, duplicates removed
// keeping first occurrence. An all-vowel intention falls back to its unique
// letters so short phrases like "I AM EASE" still forge a glyph.

var ErrNoLetters = errors.New("intention contains no letters")

func isVowel(r rune) bool {
	switch r {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

// Distill returns the distilled letters for an intention.
func Distill(intention string) (string, error) {
	upper := strings.ToUpper(intention)

	var letters, consonants []rune
	seenLetter := map[rune]bool{}
	seenConsonant := map[rune]bool{}
	for _, r := range upper {
		if r < 'A' || r > 'Z' {
			continue
		}
		if !seenLetter[r] {
			seenLetter[r] = true
			letters = append(letters, r)
		}
		if !isVowel(r) && !seenConsonant[r] {
			seenConsonant[r] = true
			consonants = append(consonants, r)
		}
	}

	if len(consonants) > 0 {
		return string(consonants), nil
	}
	if len(letters) > 0 {
		return string(letters), nil
	}
	return "", ErrNoLetters
}
