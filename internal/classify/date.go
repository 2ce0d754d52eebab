package classify

import "regexp"

const (
	monthPattern   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`
	weekdayPattern = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|tues|wed|thu|thurs|fri|sat|sun)\b`
)

// datePatterns are tried in order; the first one with a match wins.
var datePatterns = []*regexp.Regexp{
	// 12/03/2025, 12-3-25, 12.03.2025
	regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
	// 12 March 2025
	regexp.MustCompile(`(?i)\b\d{1,2}\s+` + monthPattern + `\.?\s+\d{4}\b`),
	// March 12, 2025
	regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+\d{1,2},?\s+\d{4}\b`),
	// 12th March
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+` + monthPattern),
	// Monday, 12 March
	regexp.MustCompile(`(?i)\b` + weekdayPattern + `,?\s+\d{1,2}\s+` + monthPattern),
}

// ExtractDate returns the first date-like token in text. The token is not
// validated, so "30 February 2025" is returned as is.
func ExtractDate(text string) *string {
	for _, p := range datePatterns {
		if m := p.FindString(text); m != "" {
			return &m
		}
	}
	return nil
}
