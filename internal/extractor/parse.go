package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// Address is the structured form of a free-text address line.
type Address struct {
	Street     string
	Number     string
	PostalCode string
	City       string
}

// ParseAddress splits raw on ", ". A leading all-digit token of the first
// part is the street number; the second-to-last part is the postal code when
// all digits, otherwise postalHint. City is always area. Addresses with a
// single part leave every field empty.
func ParseAddress(raw, postalHint, area string) Address {
	parts := strings.Split(raw, ", ")
	if len(parts) < 2 {
		return Address{}
	}

	addr := Address{Street: parts[0], PostalCode: postalHint, City: area}
	if tokens := strings.Split(parts[0], " "); isDigits(tokens[0]) {
		addr.Number = tokens[0]
		addr.Street = strings.Join(tokens[1:], " ")
	}
	if candidate := parts[len(parts)-2]; isDigits(candidate) {
		addr.PostalCode = candidate
	}
	return addr
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var coordinatePattern = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)

// ParseCoordinates reads "@<lat>,<lng>" from a page URL.
func ParseCoordinates(pageURL string) (lat, lng string, ok bool) {
	m := coordinatePattern.FindStringSubmatch(pageURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// DayLabel returns the first word of an hours-table day cell.
func DayLabel(cell string) string {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ",:")
}
