package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n \t \n  ", ""},
		{"line endings", "one\r\ntwo\rthree\nfour", "one\ntwo\nthree\nfour"},
		{"inner spaces collapse", "Line    with \t multiple   spaces", "Line with multiple spaces"},
		{"trailing spaces", "Senior Engineer   \t", "Senior Engineer"},
		{"headings lose indent", "   ## Experience", "## Experience"},
		{"bullets keep spacing", "  - Built   the  API", "  - Built   the  API"},
		{"indent kept", "    Acme Corp   2019", "    Acme Corp 2019"},
		{"blank runs", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"leading and trailing blanks", "\n\n  \nBody\n\n", "Body"},
		{"unicode", "Café   🚀 team", "Café 🚀 team"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	input := "# Ada Lovelace\n\n\n  - Wrote   notes\nAnalytical    Engine\r\n\r\n\r\nLondon"
	once := CleanText(input)
	assert.Equal(t, once, CleanText(once))
}
