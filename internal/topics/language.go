// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"unicode"
	"unicode/utf8"
)

// MinEnglishLength is the rune count a review must exceed before language
// detection is attempted; shorter texts are treated as non-English.
const MinEnglishLength = 20

// minStopWordRatio is the share of word tokens that must be English stop
// words for a text to count as English.
const minStopWordRatio = 0.1

// minASCIILetterRatio rejects texts written mostly in non-Latin scripts.
const minASCIILetterRatio = 0.9

// IsEnglish reports whether text looks like English prose. The check is
// deterministic: mostly ASCII letters and a minimum share of English stop
// words among its tokens.
func IsEnglish(text string) bool {
	if utf8.RuneCountInString(text) <= MinEnglishLength {
		return false
	}

	var letters, ascii int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if r < unicode.MaxASCII {
				ascii++
			}
		}
	}
	if letters == 0 || float64(ascii)/float64(letters) < minASCIILetterRatio {
		return false
	}

	words := wordTokens(text)
	if len(words) == 0 {
		return false
	}
	hits := 0
	for _, w := range words {
		if englishStopWords[w] {
			hits++
		}
	}
	return hits > 0 && float64(hits)/float64(len(words)) >= minStopWordRatio
}
