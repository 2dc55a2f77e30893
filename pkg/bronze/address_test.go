package bronze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Address
	}{
		{
			name:     "empty",
			input:    "",
			expected: Address{},
		},
		{
			name:     "postal code on its own line",
			input:    "Kosmonautengasse 1\n13353\nGlitzerstadt\nDeutschland\nBayern",
			expected: Address{Street: "Kosmonautengasse 1", PostalCode: "13353", City: "Glitzerstadt", Country: "Deutschland", State: "Bayern"},
		},
		{
			name:     "blank lines and padding are ignored",
			input:    "  Kosmonautengasse 1 \r\n\r\n 1335 \n Glitzerstadt ",
			expected: Address{Street: "Kosmonautengasse 1", PostalCode: "1335", City: "Glitzerstadt"},
		},
		{
			name:     "postal code and city on one line",
			input:    "Ringweg 2\n80331 München\nDeutschland\nBayern",
			expected: Address{Street: "Ringweg 2", PostalCode: "80331", City: "München", Country: "Deutschland", State: "Bayern"},
		},
		{
			name:     "six digits are not a postal code",
			input:    "Ringweg 2\n123456\nNirgendwo",
			expected: Address{Street: "Ringweg 2"},
		},
		{
			name:     "street only",
			input:    "Ringweg 2",
			expected: Address{Street: "Ringweg 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ParseAddress(tt.input))
		})
	}
}

func TestDisplayAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ringweg 2 – 80331 – München", DisplayAddress("Ringweg 2", "80331", "München"))
	assert.Equal(t, " – 80331 – ", DisplayAddress("", "80331", ""))
	assert.NotContains(t, DisplayAddress("", "", ""), "null")
}
