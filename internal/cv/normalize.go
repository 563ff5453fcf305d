package cv

import "strings"

// Normalize replaces NUL characters with spaces, collapses every whitespace run
// to a single space and trims both ends.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "\x00", " ")
	return strings.Join(strings.Fields(raw), " ")
}
