package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n")

// CleanText prepares extracted PDF text for scanning. NFKC folds ligatures,
// non-breaking spaces, and full-width digits into their plain forms; page
// breaks and carriage returns become newlines.
func CleanText(text string) string {
	return lineEndings.Replace(norm.NFKC.String(text))
}

// Excerpt returns at most limit runes of text with surrounding whitespace
// trimmed.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit])
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
