package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"numeric", "Canteen menu for 12/03/2025: pasta", "12/03/2025"},
		{"numeric dashes", "Due 1-9-25 at noon", "1-9-25"},
		{"day month year", "Sports day is on 14 June 2025.", "14 June 2025"},
		{"month day year", "Deadline: March 3, 2025", "March 3, 2025"},
		{"ordinal day month", "Trip on the 21st Nov for Year 8", "21st Nov"},
		{"weekday day month", "Trials on Monday, 3 March in the hall", "Monday, 3 March"},
		{"unvalidated", "Party on 30 February 2025", "30 February 2025"},
		{"first pattern wins over earlier text", "On 5th May, see form dated 01/05/2025", "01/05/2025"},
		{"abbreviated month", "Open evening 7 Sept. 2025", "7 Sept. 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDate(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractDate_None(t *testing.T) {
	assert.Nil(t, ExtractDate("No dates here, just Year 9 news"))
	assert.Nil(t, ExtractDate("Marching band practice"))
}
