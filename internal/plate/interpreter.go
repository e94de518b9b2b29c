package plate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultCountryToken is the country name printed on plates. Lines carrying it
// are skipped by the substring pass so "NIGERIA" does not read as "Niger".
const DefaultCountryToken = "NIGERIA"

var alphanumericOnly = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Interpreter turns an ordered sequence of OCR lines into a candidate license
// number and jurisdiction. It holds no state between calls.
type Interpreter struct {
	jurisdictions Jurisdictions
	countryToken  string
}

func NewInterpreter(jurisdictions Jurisdictions, countryToken string) *Interpreter {
	return &Interpreter{
		jurisdictions: jurisdictions,
		countryToken:  strings.ToUpper(strings.TrimSpace(countryToken)),
	}
}

func (i *Interpreter) Jurisdictions() Jurisdictions {
	return i.jurisdictions
}

// LicenseNumber returns the last line that contains a separator and whose
// trimmed length is 8 or 9, with whitespace removed. Empty when none qualifies.
func (i *Interpreter) LicenseNumber(lines []string) string {
	var number string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if alphanumericOnly.MatchString(trimmed) {
			continue
		}
		if n := utf8.RuneCountInString(trimmed); n <= 7 || n >= 10 {
			continue
		}
		number = stripWhitespace(trimmed)
	}
	return number
}

// Jurisdiction returns the first line that exactly names a known jurisdiction.
// Failing that, it returns the first jurisdiction whose upper-cased name occurs
// inside a line that does not carry the country token.
func (i *Interpreter) Jurisdiction(lines []string) string {
	found := i.exactJurisdiction(lines)
	if found == "" {
		found = i.embeddedJurisdiction(lines)
	}
	if idx := strings.IndexByte(found, ','); idx >= 0 {
		found = found[:idx]
	}
	return found
}

func (i *Interpreter) exactJurisdiction(lines []string) string {
	for _, line := range lines {
		if c := Canonical(line); i.jurisdictions.Contains(c) {
			return c
		}
	}
	return ""
}

func (i *Interpreter) embeddedJurisdiction(lines []string) string {
	for _, line := range lines {
		if i.countryToken != "" && strings.Contains(line, i.countryToken) {
			continue
		}
		for _, name := range i.jurisdictions.names {
			if strings.Contains(line, strings.ToUpper(name)) {
				return name
			}
		}
	}
	return ""
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
