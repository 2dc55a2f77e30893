package date

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

var allowedFormats = []string{
	"2006-01-02 15:04:05.000000Z07:00",
	"2006-01-02T15:04:05.000000Z07:00",
	"2006-01-02 15:04:05.000000",
	"2006-01-02T15:04:05.000000",
	"2006-01-02 15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"20060102",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02 Jan 2006",
}

// ParseTime parses the timestamp and date layouts found in ERP exports.
func ParseTime(input string) (time.Time, error) {
	t, _, err := ParseTimeWithFormat(input)
	return t, err
}

func ParseTimeWithFormat(input string) (time.Time, string, error) {
	for _, format := range allowedFormats {
		t, err := time.Parse(format, input)
		if err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", errors.New("invalid datetime format")
}

// Range returns every calendar day from start to end, both inclusive. It is empty when end is
// before start.
func Range(start, end civil.Date) []civil.Date {
	if end.Before(start) {
		return nil
	}

	days := make([]civil.Date, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
