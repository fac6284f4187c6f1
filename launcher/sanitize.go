package launcher

import (
	"strings"
	"unicode"
)

// SanitizeForLog strips control characters so caller-supplied values cannot
// forge log lines. The result is for logging only, never for lookups.
func SanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
