package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulletin_scraper/internal/domain"
)

func textItem(content string, links ...domain.Link) domain.RawItem {
	return domain.RawItem{Content: content, Links: links}
}

func metaItem(content, meta string) domain.RawItem {
	return domain.RawItem{Content: content, Meta: meta, HasMeta: true}
}

func TestClassify_FeedbackForm(t *testing.T) {
	item := textItem("Please fill out this form: forms.gle/xyz",
		domain.Link{Text: "forms.gle/xyz", Href: "https://forms.gle/xyz"})

	r := Classify(item)

	assert.True(t, r.IsFeedback)
	assert.False(t, r.IsDonation)
	assert.Equal(t, domain.CategoryGeneral, Categorize(item.Content, ""))
}

func TestClassify_DonationRequest(t *testing.T) {
	item := textItem("Please donate non-perishable food items to the collection box")

	r := Classify(item)

	assert.True(t, r.IsDonation)
	assert.False(t, r.IsFeedback)
}

func TestIsDonationRequest(t *testing.T) {
	tests := []struct {
		name string
		item domain.RawItem
		want bool
	}{
		{
			name: "plain phrase",
			item: textItem("Our fundraising bake sale is on Friday"),
			want: true,
		},
		{
			name: "volunteer post mentioning a charity",
			item: textItem("The charity committee needs volunteers for the spring concert. Join us!"),
			want: false,
		},
		{
			name: "explicit phrase beats volunteer guard",
			item: textItem("Volunteers needed to help sort the food drive boxes"),
			want: true,
		},
		{
			name: "link text",
			item: textItem("Details below", domain.Link{Text: "Donate items here", Href: "https://example.com/info"}),
			want: true,
		},
		{
			name: "link href",
			item: textItem("Details below", domain.Link{Text: "here", Href: "https://example.com/Donation-Page"}),
			want: true,
		},
		{
			name: "substring match inside a longer word",
			item: textItem("That was an uncharitable remark"),
			want: true,
		},
		{
			name: "bare community mention",
			item: textItem("Our community garden opens after school on Thursday"),
			want: true,
		},
		{
			name: "nothing to do with donations",
			item: textItem("Maths homework is due tomorrow"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDonationRequest(tt.item))
		})
	}
}

func TestIsFeedbackRequest(t *testing.T) {
	tests := []struct {
		name string
		item domain.RawItem
		want bool
	}{
		{
			name: "strong phrase",
			item: textItem("We need your feedback on the new timetable"),
			want: true,
		},
		{
			name: "google forms link",
			item: textItem("Details in the link", domain.Link{Text: "link", Href: "https://docs.google.com/forms/d/abc"}),
			want: true,
		},
		{
			name: "google sites link with form wording",
			item: textItem("Register using the form on our page", domain.Link{Text: "page", Href: "https://sites.google.com/view/x"}),
			want: true,
		},
		{
			name: "google sites link without form wording",
			item: textItem("Read about our trip", domain.Link{Text: "page", Href: "https://sites.google.com/view/x"}),
			want: false,
		},
		{
			name: "donation wins over form wording",
			item: textItem("Please fill out this form to donate books to the library"),
			want: false,
		},
		{
			name: "explicit donation vetoes a form link",
			item: textItem("Food drive sign-ups", domain.Link{Text: "sign up", Href: "https://forms.gle/abc"}),
			want: false,
		},
		{
			name: "mere mention of feedback",
			item: textItem("Thanks for all the feedback last term"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFeedbackRequest(tt.item))
		})
	}
}

func TestDonationImpliesNotFeedback(t *testing.T) {
	contents := []string{
		"Please fill out this form to donate books",
		"Survey: which charity should we support?",
		"Take a minute to drop off your donations",
		"Share your thoughts and contribute to the food bank",
		"Please donate non-perishable food items to the collection box",
	}
	for _, c := range contents {
		item := textItem(c, domain.Link{Text: "form", Href: "https://forms.gle/q"})
		r := Classify(item)
		if r.IsDonation {
			assert.False(t, r.IsFeedback, c)
		}
		assert.Equal(t, r.IsDonation, IsDonationRequest(item), c)
		assert.Equal(t, r.IsFeedback, IsFeedbackRequest(item), c)
	}
}

func TestIsFromStudent(t *testing.T) {
	assert.True(t, IsFromStudent(metaItem("x", "Posted by Jane Doe [09A123]")))
	assert.True(t, IsFromStudent(metaItem("x", "Teacher Supervisor: Mr Smith")))
	assert.False(t, IsFromStudent(metaItem("x", "Posted by Mr Smith")))
	assert.False(t, IsFromStudent(metaItem("x", "Posted by [09a123]")))
	assert.False(t, IsFromStudent(textItem("Teacher Supervisor in the body does not count")))
}

func TestYearGroups(t *testing.T) {
	tests := []struct {
		name string
		item domain.RawItem
		want []string
	}{
		{"two years in content", textItem("Year 9 and Year 10 students"), []string{"9", "10"}},
		{"mixed notations", textItem("Y7 and Yr 8 students"), []string{"7", "8"}},
		{"repeated mention", textItem("Year 9: all Year 9 students"), []string{"9"}},
		{"no space", textItem("Year9 parents evening"), []string{"9"}},
		{"targeting metadata", metaItem("Chemistry lab safety", "Targeting: Yr 11, Year 12"), []string{"11", "12"}},
		{"metadata without targeting", metaItem("Chemistry lab safety", "Posted by Yr 11 rep"), nil},
		{"nothing", textItem("Whole school assembly"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearGroups(tt.item)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.ElementsMatch(t, tt.want, strings.Split(*got, ","))
		})
	}
}

func TestClassify_SpecificTargeting(t *testing.T) {
	r := Classify(textItem("Year 9 and Year 10 students should attend"))
	require.NotNil(t, r.YearGroups)
	assert.ElementsMatch(t, []string{"9", "10"}, strings.Split(*r.YearGroups, ","))
	assert.True(t, r.HasSpecificTargeting)

	r = Classify(textItem("All ninth grade students and Year 9 tutors"))
	assert.True(t, r.HasSpecificTargeting)

	r = Classify(metaItem("Lab safety briefing", "Targeting: Yr 12"))
	assert.True(t, r.HasSpecificTargeting)

	// A spelled-out year alone is not enough without a numbered mention.
	r = Classify(textItem("All ninth grade students"))
	assert.Nil(t, r.YearGroups)
	assert.False(t, r.HasSpecificTargeting)

	// Numbered mention outside the secondary range.
	r = Classify(textItem("Year 5 buddies visit on Friday"))
	require.NotNil(t, r.YearGroups)
	assert.Equal(t, "5", *r.YearGroups)
	assert.False(t, r.HasSpecificTargeting)
}
