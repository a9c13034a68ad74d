package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString collapses runs of whitespace and cuts the result to at most
// maxRunes characters. A non-positive maxRunes disables the cut.
func SanitizeString(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	return strings.TrimSpace(string([]rune(cleaned)[:maxRunes]))
}
