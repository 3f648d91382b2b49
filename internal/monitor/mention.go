package monitor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// mentionContextRadius is the number of characters of surrounding text
// captured on each side of a detected mention.
const mentionContextRadius = 100

// Mention is a detected brand occurrence with its surrounding context.
type Mention struct {
	Found   bool
	Index   int
	Context string
}

// DetectMention finds the first case-insensitive occurrence of brand in
// text and returns it with up to mentionContextRadius characters of
// context on each side. Blank inputs never match. Index is a byte
// offset into the original text.
func DetectMention(text, brand string) Mention {
	brand = strings.TrimSpace(brand)
	if text == "" || brand == "" {
		return Mention{}
	}

	lowered := strings.ToLower(text)
	idx := strings.Index(lowered, strings.ToLower(brand))
	if idx < 0 {
		return Mention{}
	}

	// Lowercasing maps rune for rune but can change byte lengths
	// (e.g. U+0130 shrinks to 'i'), so remap the match offset back to
	// the original text when the lengths diverge.
	if len(lowered) != len(text) {
		loweredOff := 0
		for origOff, r := range text {
			if loweredOff >= idx {
				idx = origOff
				break
			}
			loweredOff += utf8.RuneLen(unicode.ToLower(r))
		}
	}

	start := idx - mentionContextRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(brand) + mentionContextRadius
	if end > len(text) {
		end = len(text)
	}

	return Mention{
		Found:   true,
		Index:   idx,
		Context: text[start:end],
	}
}
