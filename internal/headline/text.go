package headline

import (
	"strings"
	"unicode/utf8"
)

const (
	maxWords   = 10
	minRunes   = 6
	ellipsis   = "..."
	quoteChars = `"'`
)

// Clean turns a raw model reply into a single-line headline of at most
// ten words. ok is false when nothing usable is left.
func Clean(raw string) (headline string, ok bool) {
	h := strings.TrimSpace(raw)
	if i := strings.IndexByte(h, '\n'); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	h = strings.TrimSpace(strings.Trim(h, quoteChars))

	if words := strings.Fields(h); len(words) > maxWords {
		h = strings.Join(words[:maxWords], " ") + ellipsis
	}

	if utf8.RuneCountInString(h) < minRunes {
		return "", false
	}
	return h, true
}

// Fallback builds a headline from the first sentence of text: its first
// ten words followed by an ellipsis.
func Fallback(text string) string {
	sentence, _, _ := strings.Cut(text, ".")
	words := strings.Fields(sentence)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ") + ellipsis
}
