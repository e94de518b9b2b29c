// Package plate reads license numbers and issuing jurisdictions out of
// OCR text lines and decides whether a read is confident enough to count.
package plate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NigerianStates is the default reference set of issuing jurisdictions.
var NigerianStates = []string{
	"Abia", "Abuja", "Adamawa", "Akwa ibom", "Anambra", "Bauchi", "Bayelsa", "Benue",
	"Borno", "Cross river", "Delta", "Ebonyi", "Edo", "Ekiti", "Enugu", "Gombe",
	"Imo", "Jigawa", "Kaduna", "Kano", "Katsina", "Kebbi", "Kogi", "Kwara",
	"Lagos", "Nasarawa", "Niger", "Ogun", "Ondo", "Osun", "Oyo", "Plateau",
	"Rivers", "Sokoto", "Taraba", "Yobe", "Zamfara",
}

// Jurisdictions is an immutable lookup table of jurisdiction names in
// canonical form. Iteration order is the order the names were supplied in.
type Jurisdictions struct {
	names []string
	set   map[string]struct{}
}

func NewJurisdictions(names ...string) Jurisdictions {
	j := Jurisdictions{
		names: make([]string, 0, len(names)),
		set:   make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		c := Canonical(n)
		if c == "" {
			continue
		}
		if _, dup := j.set[c]; dup {
			continue
		}
		j.set[c] = struct{}{}
		j.names = append(j.names, c)
	}
	return j
}

func (j Jurisdictions) Contains(name string) bool {
	if name == "" {
		return false
	}
	_, ok := j.set[name]
	return ok
}

func (j Jurisdictions) Len() int {
	return len(j.names)
}

// Names returns a copy of the table in iteration order.
func (j Jurisdictions) Names() []string {
	return append([]string(nil), j.names...)
}

// Canonical converts s to the reference case convention: first letter
// upper case, the remainder lower case.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
