// Package classify derives the advisory fields of a bulletin item from its
// text, metadata and links. Every rule is a case-insensitive substring or
// pattern test, and none of them can fail.
package classify

import (
	"regexp"
	"strings"

	"bulletin_scraper/internal/domain"
)

var studentIDPattern = regexp.MustCompile(`\[\d+[A-Z]\d+\]`)

const teacherSupervisorMarker = "Teacher Supervisor"

// Result holds the classification of one item.
type Result struct {
	IsDonation           bool
	IsFeedback           bool
	IsFromStudent        bool
	YearGroups           *string
	HasSpecificTargeting bool
	Date                 *string
}

// Classify runs every rule in priority order. Donation is decided first
// and suppresses feedback.
func Classify(item domain.RawItem) Result {
	var r Result

	r.IsDonation = IsDonationRequest(item)
	r.IsFeedback = !r.IsDonation && looksLikeFeedback(item)
	r.IsFromStudent = IsFromStudent(item)
	r.YearGroups = YearGroups(item)
	r.HasSpecificTargeting = r.YearGroups != nil && namesSpecificYear(item)
	r.Date = ExtractDate(item.Content)

	return r
}

// IsDonationRequest reports whether the item asks for contributions.
func IsDonationRequest(item domain.RawItem) bool {
	text := strings.ToLower(item.Content)

	if !mentionsDonation(text, item.Links) {
		return false
	}

	// Event and volunteer posts often mention a charity in passing.
	if containsAny(text, volunteerPhrases) && !containsAny(text, explicitDonationPhrases) {
		return false
	}

	return true
}

func mentionsDonation(text string, links []domain.Link) bool {
	if containsAny(text, donationPhrases) {
		return true
	}
	for _, link := range links {
		if containsAny(strings.ToLower(link.Text), donationPhrases) {
			return true
		}
		if containsAny(strings.ToLower(link.Href), donationHrefMarkers) {
			return true
		}
	}
	return false
}

// IsFeedbackRequest reports whether the item mainly solicits form or
// survey responses. It is always false for donation requests.
func IsFeedbackRequest(item domain.RawItem) bool {
	return !IsDonationRequest(item) && looksLikeFeedback(item)
}

func looksLikeFeedback(item domain.RawItem) bool {
	text := strings.ToLower(item.Content)

	if containsAny(text, strongFeedbackPhrases) {
		return true
	}
	if containsAny(text, explicitDonationPhrases) {
		return false
	}

	for _, link := range item.Links {
		href := link.Href
		switch {
		case strings.Contains(href, "forms.gle"),
			strings.Contains(href, "docs.google.com/forms"),
			strings.Contains(href, "sites.google.com") && strings.Contains(text, "form"):
			return true
		}
	}
	return false
}

// IsFromStudent reports whether the posting info carries a student ID
// or a supervising teacher annotation.
func IsFromStudent(item domain.RawItem) bool {
	if !item.HasMeta {
		return false
	}
	return studentIDPattern.MatchString(item.Meta) ||
		strings.Contains(item.Meta, teacherSupervisorMarker)
}
