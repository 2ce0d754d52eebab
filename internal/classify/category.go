package classify

import (
	"strings"

	"bulletin_scraper/internal/domain"
)

var (
	formKeywords = []string{
		"forms.gle", "google form", "fill out", "fill in", "survey",
		"questionnaire", "sign up", "sign-up", "signup", "registration form",
	}
	sportsKeywords = []string{
		"sport", "football", "soccer", "basketball", "netball", "rugby",
		"swimming", "athletics", "cricket", "tennis", "volleyball",
		"badminton", "hockey", "trials", "tournament", "match", "fixture",
		"pe kit", "game",
	}
	sportsFalsePositives = []string{"free game", "video game", "board game"}
	academicKeywords     = []string{
		"exam", "test", "homework", "research", "assessment", "revision",
		"coursework", "lesson", "study", "studies", "tutor", "igcse",
		"ib diploma", "university", "academic", "olympiad", "mock",
	}
	eventKeywords = []string{
		"event", "volunteer", "join us", "assembly", "concert",
		"performance", "festival", "fair", "trip", "celebration",
		"workshop", "talk", "audition", "competition", "show",
	}
	clubKeywords = []string{"club", "society", "cca", "committee"}
	foodKeywords = []string{
		"canteen", "menu", "lunch", "breakfast", "snack", "food",
		"cafe", "bake sale",
	}
	adminKeywords = []string{
		"notice", "reminder", "deadline", "uniform", "timetable",
		"attendance", "policy", "office", "announcement", "parents",
		"lost property",
	}
)

// Categorize files an item into exactly one category. Buckets are checked
// in a fixed order and the first hit wins.
func Categorize(content, title string) domain.Category {
	text := strings.ToLower(content + " " + title)

	switch {
	case containsAny(text, formKeywords):
		return formCategory(text)
	case containsAny(text, sportsKeywords):
		if containsAny(text, sportsFalsePositives) {
			return domain.CategoryGeneral
		}
		return domain.CategorySports
	case containsAny(text, academicKeywords):
		return domain.CategoryAcademic
	case containsAny(text, eventKeywords):
		return domain.CategoryEvents
	case containsAny(text, clubKeywords):
		return domain.CategoryClubs
	case containsAny(text, foodKeywords):
		return domain.CategoryFood
	case containsAny(text, adminKeywords):
		return domain.CategoryAdmin
	default:
		return domain.CategoryGeneral
	}
}

// formCategory routes sign-up and survey posts by what they are about.
func formCategory(text string) domain.Category {
	switch {
	case containsAny(text, sportsKeywords) && !containsAny(text, sportsFalsePositives):
		return domain.CategorySports
	case containsAny(text, academicKeywords):
		return domain.CategoryAcademic
	default:
		return domain.CategoryGeneral
	}
}
