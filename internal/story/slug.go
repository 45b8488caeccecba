package story

import (
	"strings"
	"unicode"
)

// Slugify normalizes text into a URL-safe token: lower-cased, runs of
// non-alphanumeric characters collapsed to a single hyphen, leading and
// trailing hyphens trimmed.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
