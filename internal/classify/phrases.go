package classify

import "strings"

var donationPhrases = []string{
	"donate books", "books you could donate", "donation drive",
	"food drive", "donate food", "clothing donation", "support our year 9",
	"non-perishable", "storable foods", "donations", "donate",
	"collection box", "drop off", "fundraising", "charity",
	"books for donation", "donate items", "collecting", "contribute",
	"charitable", "food bank", "please bring", "collection drive",
	"community", "community project",
}

// explicitDonationPhrases survive the volunteer guard and veto feedback.
var explicitDonationPhrases = []string{
	"donate books", "books you could donate", "donation drive",
	"food drive", "donate food", "clothing donation", "support our year 9",
	"non-perishable", "storable foods",
}

var volunteerPhrases = []string{
	"volunteer", "join us", "audition", "competition",
	"try out", "tryout", "sign up", "performance", "workshop",
}

var strongFeedbackPhrases = []string{
	"fill out this form", "fill in the form", "fill out the form",
	"survey", "questionnaire", "we need your feedback",
	"we would appreciate if you could", "take a minute",
	"fill this form", "please fill out", "forms.gle",
	"google form", "giving us feedback", "feedback and info",
	"feedback via", "share your thoughts", "provide feedback",
	"your response", "let us know what you think",
}

var donationHrefMarkers = []string{"donate", "donation"}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
