package bronze

import (
	"regexp"
	"strings"
)

var (
	postalLine     = regexp.MustCompile(`^\d{4,5}$`)
	postalCityLine = regexp.MustCompile(`^(\d{4,5})\s+(.+)$`)
)

// Address is the parsed form of a multi-line free-text store address. Empty fields are unknown.
type Address struct {
	Street     string
	PostalCode string
	City       string
	Country    string
	State      string
}

// ParseAddress splits a multi-line address. The first line is the street. A line made of 4-5
// digits is the postal code and the next line the city; country and state follow at fixed
// offsets after the postal code. When no such line exists, a "<postal> <city>" line is accepted
// instead.
func ParseAddress(raw string) Address {
	lines := make([]string, 0)
	for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	var a Address
	if len(lines) == 0 {
		return a
	}
	a.Street = lines[0]

	at := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	for i, l := range lines {
		if postalLine.MatchString(l) {
			a.PostalCode = l
			a.City = at(i + 1)
			a.Country = at(i + 2)
			a.State = at(i + 3)
			return a
		}
	}

	for i, l := range lines {
		if m := postalCityLine.FindStringSubmatch(l); m != nil {
			a.PostalCode = m[1]
			a.City = strings.TrimSpace(m[2])
			a.Country = at(i + 1)
			a.State = at(i + 2)
			return a
		}
	}

	return a
}

// DisplayAddress joins street, postal code and city with " – ". Missing parts are empty strings.
func DisplayAddress(street, postalCode, city string) string {
	return strings.Join([]string{street, postalCode, city}, " – ")
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
