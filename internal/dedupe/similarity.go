// Package dedupe decides whether a scraped bulletin item repeats one that is
// already stored. The feed re-renders the same announcements on every poll,
// sometimes with changed whitespace or punctuation, or cut short.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultThreshold = 0.95
	substringRatio   = 0.8
)

const (
	ReasonExact      = "exact content match"
	ReasonNormalized = "normalized content match"
	ReasonSubstring  = "contained in longer item"
)

// Normalize lower-cases s, drops punctuation and symbols, and collapses
// whitespace runs to single spaces.
func Normalize(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(stripped), " ")
}

// Similar reports whether two contents are near-duplicates.
func Similar(a, b string, threshold float64) bool {
	_, ok := compare(Normalize(a), Normalize(b), threshold)
	return ok
}

// compare works on normalized input and returns the matching rule.
//
// Above the threshold only identical strings count, so near-equal strings
// of similar length are not flagged there; the substring rule applies
// only at or below the threshold.
func compare(na, nb string, threshold float64) (string, bool) {
	if na == nb {
		return ReasonNormalized, true
	}
	if na == "" || nb == "" {
		return "", false
	}

	shorter, longer := na, nb
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	ratio := float64(utf8.RuneCountInString(shorter)) / float64(utf8.RuneCountInString(longer))

	if ratio > threshold {
		return ReasonNormalized, shorter == longer
	}
	if ratio > substringRatio && strings.Contains(longer, shorter) {
		return ReasonSubstring, true
	}
	return "", false
}

// Fingerprint identifies exact content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
