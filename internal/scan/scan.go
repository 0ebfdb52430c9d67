// Package scan holds the label-driven text primitives used when no pattern
// anchors a field: value-after-label, standalone digit runs, and the number
// printed just before a unit token.
package scan

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultStops ends a label value at the next newline or tab.
const DefaultStops = "\n\t"

// labelSkip is consumed between a label and its value.
const labelSkip = ": \t"

var dollarAmountRe = regexp.MustCompile(`\$\s*(\d[\d,]*\.\d{2})`)

// ValueAfterLabel finds the first label (in the order given) that occurs in
// text, skips colons and blanks after it, and returns everything up to the
// next stop character. Label matching is case-insensitive. A label whose
// value is empty does not end the search.
func ValueAfterLabel(text string, labels []string, stops string) (string, bool) {
	if stops == "" {
		stops = DefaultStops
	}
	lower := asciiLower(text)
	for _, label := range labels {
		idx := strings.Index(lower, asciiLower(label))
		if idx < 0 {
			continue
		}
		start := idx + len(label)
		for start < len(text) && strings.IndexByte(labelSkip, text[start]) >= 0 {
			start++
		}
		end := start
		for end < len(text) && strings.IndexByte(stops, text[end]) < 0 {
			end++
		}
		if v := strings.TrimSpace(text[start:end]); v != "" {
			return v, true
		}
	}
	return "", false
}

// DigitRun returns the first run of exactly n consecutive digits that is not
// part of a longer run.
func DigitRun(text string, n int) (string, bool) {
	if n <= 0 {
		return "", false
	}
	start := -1
	for i := 0; i <= len(text); i++ {
		if i < len(text) && isDigit(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start == n {
			return text[start:i], true
		}
		start = -1
	}
	return "", false
}

// NumberBefore finds token (case-insensitive) and returns the number printed
// immediately before it, e.g. "1,204 kWh" yields "1,204".
func NumberBefore(text, token string) (string, bool) {
	idx := strings.Index(asciiLower(text), asciiLower(token))
	if idx <= 0 {
		return "", false
	}
	end := idx
	for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	start := end
	for start > 0 && (isDigit(text[start-1]) || text[start-1] == ',' || text[start-1] == '.') {
		start--
	}
	num := strings.Trim(text[start:end], ",.")
	if num == "" {
		return "", false
	}
	return num, true
}

// FirstAmount returns the first dollar amount written with cents.
func FirstAmount(text string) (string, bool) {
	m := dollarAmountRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Lines splits text into trimmed lines, treating tabs as line breaks, and
// returns at most limit of them (all when limit <= 0).
func Lines(text string, limit int) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\t' })
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Digits drops every non-digit rune.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// asciiLower folds only ASCII letters so byte offsets into the result are
// valid offsets into s.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
