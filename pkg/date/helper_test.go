package date

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func Test_parseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			input:    "2023-03-16 10:30:00",
			expected: time.Date(2023, 0o3, 16, 10, 30, 0, 0, time.UTC),
		},
		{
			input:    "2023-03-16",
			expected: time.Date(2023, 0o3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    "2025-08-10T00:00:00",
			expected: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    "10.08.2025",
			expected: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    "20250810",
			expected: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    "2023/03/16",
			expected: time.Time{},
			wantErr:  true,
		},
		{
			input:    "not a date",
			expected: time.Time{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			actual, err := ParseTime(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestRange(t *testing.T) {
	t.Parallel()

	start := civil.Date{Year: 2025, Month: 8, Day: 30}
	end := civil.Date{Year: 2025, Month: 9, Day: 2}

	days := Range(start, end)
	assert.Len(t, days, 4)
	assert.Equal(t, start, days[0])
	assert.Equal(t, civil.Date{Year: 2025, Month: 8, Day: 31}, days[1])
	assert.Equal(t, end, days[3])

	assert.Len(t, Range(start, start), 1)
	assert.Empty(t, Range(end, start))
}
