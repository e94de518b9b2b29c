package utils

import "strings"

// NormalizePlate upper-cases a user typed license number and drops all
// whitespace. Separators such as '-' are kept.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
