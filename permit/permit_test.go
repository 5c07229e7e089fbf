package permit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		authorized []string
		complies   []string
	}{
		{
			name:       "single slash without spaces",
			text:       "DAFF/DEA",
			authorized: []string{"DAFF", "DEA"},
		},
		{name: "na", text: "na"},
		{name: "NA upper", text: "NA"},
		{name: "unknown", text: "Unknown"},
		{name: "none_required", text: "NONE_REQUIRED"},
		{name: "n/a is no data, not a slash split", text: "n/a"},
		{name: "empty", text: "   "},
		{
			name:       "many slashes split on and",
			text:       "BKSDA/Aceh/2016 and RISTEK/LIPI/2016",
			authorized: []string{"BKSDA/Aceh/2016", "RISTEK/LIPI/2016"},
		},
		{
			name:       "many slashes split on comma",
			text:       "KKP/2016/01, RISTEK/2016/02",
			authorized: []string{"KKP/2016/01", "RISTEK/2016/02"},
		},
		{
			name:       "many slashes with several commas stay whole",
			text:       "Permit 12/2016/A, issued by the ministry, renewed 03/2017, Jakarta",
			authorized: []string{"Permit 12/2016/A, issued by the ministry, renewed 03/2017, Jakarta"},
		},
		{
			name:       "single slash with spaces is not split",
			text:       "Ministry of Fisheries / Samoa",
			authorized: []string{"Ministry of Fisheries / Samoa"},
		},
		{
			name:       "semicolons",
			text:       "CITES 123; Moorea permit 44",
			authorized: []string{"CITES 123", "Moorea permit 44"},
		},
		{
			name:       "semicolons with several commas stay whole",
			text:       "Collected under A, B, and C; see notes",
			authorized: []string{"Collected under A, B, and C; see notes"},
		},
		{
			name:       "plain text",
			text:       "French Polynesia Ministry of Environment",
			authorized: []string{"French Polynesia Ministry of Environment"},
		},
		{
			name:       "structured complies first",
			text:       "complies_with: Nagoya Protocol authorized_by: DAFF",
			authorized: []string{"DAFF"},
			complies:   []string{"Nagoya Protocol"},
		},
		{
			name:       "structured authorized first with separators",
			text:       "Authorized by = DAFF, DEA | complies with = ABS-2019",
			authorized: []string{"DAFF", "DEA"},
			complies:   []string{"ABS-2019"},
		},
		{
			name:     "structured drops no-data values",
			text:     "complies_with:CITES authorized_by:none",
			complies: []string{"CITES"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, tt.authorized, got.AuthorizedBy)
			assert.Equal(t, tt.complies, got.CompliesWith)
		})
	}
}

func TestRuleOrder(t *testing.T) {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{"structured", "no data", "single slash", "many slashes", "semicolons", "whole text"}, names)
}

func TestShorthands(t *testing.T) {
	assert.Equal(t, []string{"DAFF", "DEA"}, AuthorizedBy("DAFF/DEA"))
	assert.Nil(t, CompliesWith("DAFF/DEA"))
	assert.Equal(t, []string{"X"}, CompliesWith("complies with: X authorized by: Y"))
}
