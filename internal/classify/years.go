package classify

import (
	"regexp"
	"strings"

	"bulletin_scraper/internal/domain"
)

const targetingMarker = "Targeting"

var (
	metaYearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Yr\s*(\d+)`),
		regexp.MustCompile(`Year\s*(\d+)`),
	}
	contentYearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bYear\s*(\d+)\b`),
		regexp.MustCompile(`\bYr\s*(\d+)\b`),
		regexp.MustCompile(`\bY(\d+)\b`),
	}
)

// specificYearPattern matches years 7 to 13 in any of the spellings
// used on the bulletin. It runs on lower-cased text.
var specificYearPattern = regexp.MustCompile(
	`\b(?:year|yr|grade)\s*(?:7|8|9|10|11|12|13)\b` +
		`|\by(?:7|8|9|10|11|12|13)\b` +
		`|\byear\s+(?:seven|eight|nine|ten|eleven|twelve|thirteen)\b` +
		`|\b(?:seventh|eighth|ninth|tenth|eleventh|twelfth|thirteenth)\s+(?:grade|year|graders?)\b`,
)

// YearGroups returns the distinct year numbers mentioned in the item,
// comma-joined in the order first seen, or nil when there are none.
// Metadata only counts when it carries a targeting annotation.
func YearGroups(item domain.RawItem) *string {
	var found []string
	seen := make(map[string]struct{})
	collect := func(text string, patterns []*regexp.Regexp) {
		for _, p := range patterns {
			for _, m := range p.FindAllStringSubmatch(text, -1) {
				if _, ok := seen[m[1]]; ok {
					continue
				}
				seen[m[1]] = struct{}{}
				found = append(found, m[1])
			}
		}
	}

	if item.HasMeta && strings.Contains(item.Meta, targetingMarker) {
		collect(item.Meta, metaYearPatterns)
	}
	collect(item.Content, contentYearPatterns)

	if len(found) == 0 {
		return nil
	}
	joined := strings.Join(found, ",")
	return &joined
}

func namesSpecificYear(item domain.RawItem) bool {
	text := strings.ToLower(item.Content + "\n" + item.Meta)
	return specificYearPattern.MatchString(text)
}
