package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/billscan/internal/model"
)

// Rollover says how a year-less date relates to its anchor.
type Rollover string

const (
	// RolloverNone leaves the resolved year alone.
	RolloverNone Rollover = ""
	// RolloverForward moves a date that lands before its anchor into the
	// following year (due dates after a December bill date).
	RolloverForward Rollover = "forward"
	// RolloverBackward moves a date that lands after its anchor into the
	// previous year (a period start after its period end).
	RolloverBackward Rollover = "backward"
)

// DateToken is a parsed date plus whether the source string carried a year.
type DateToken struct {
	Date     model.Date
	Yearless bool
}

var (
	yearLayouts = []string{
		"Jan 2 2006",
		"January 2 2006",
		"1/2/2006",
		"2006-01-02",
		"1/2/06",
		"Jan 2 06",
		"January 2 06",
		"2 Jan 2006",
	}
	yearlessLayouts = []string{
		"Jan 2",
		"January 2",
		"1/2",
	}

	dateSpaceRe = regexp.MustCompile(`\s+`)

	// Leading date tokens for strings like "01/09/26 Rate: Time of Day".
	// A bare "3/4" reads as a fraction when prose follows it.
	leadingDates = []struct {
		re       *regexp.Regexp
		fraction bool
	}{
		{re: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)},
		{re: regexp.MustCompile(`^\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b`)},
		{re: regexp.MustCompile(`^[A-Za-z]{3,9}\.?\s+\d{1,2}(?:,?\s*\d{4}\b)?`)},
		{re: regexp.MustCompile(`^\d{1,2}/\d{1,2}\b`), fraction: true},
	}
)

// minLeadingYear bounds years read from a date prefix; "Jan 15 1234 kWh"
// is a reading, not a date.
const minLeadingYear = 1900

// ParseDate parses a date string. Strings without a year take refYear.
// The second result is false when no supported format matches.
func ParseDate(raw string, refYear int) (model.Date, bool) {
	tok, ok := ParseDateToken(raw, refYear)
	return tok.Date, ok
}

// ParseDateToken is ParseDate that also reports whether the year was implied.
func ParseDateToken(raw string, refYear int) (DateToken, bool) {
	s := cleanDate(raw)
	if s == "" {
		return DateToken{}, false
	}
	if tok, ok := parseExact(s, refYear); ok {
		return tok, true
	}
	for _, ld := range leadingDates {
		m := ld.re.FindString(s)
		if m == "" || m == s || !leadingRestOK(s[len(m):], ld.fraction) {
			continue
		}
		if tok, ok := parseExact(cleanDate(m), refYear); ok && tok.Date.Year() >= minLeadingYear {
			return tok, true
		}
	}
	return DateToken{}, false
}

// leadingRestOK reports whether rest, the text after a date prefix, ends the
// date cleanly. More digits mean the prefix was cut out of a longer number.
func leadingRestOK(rest string, fraction bool) bool {
	if rest == "" || isLetter(rest[0]) || isDigit(rest[0]) {
		return false
	}
	next := strings.TrimLeft(rest, " ")
	if next == "" {
		return true
	}
	if isDigit(next[0]) {
		return false
	}
	return !fraction || next[0] < 'a' || next[0] > 'z'
}

// ResolveDate parses raw against refYear and applies the rollover rule
// against anchor. Rollover only touches dates written without a year.
func ResolveDate(raw string, refYear int, anchor *model.Date, dir Rollover) (model.Date, bool) {
	tok, ok := ParseDateToken(raw, refYear)
	if !ok {
		return model.Date{}, false
	}
	if !tok.Yearless || anchor == nil {
		return tok.Date, true
	}

	switch dir {
	case RolloverForward:
		if tok.Date.Before(*anchor) {
			if next, ok := ParseDateToken(raw, refYear+1); ok {
				return next.Date, true
			}
		}
	case RolloverBackward:
		if tok.Date.After(*anchor) {
			if prev, ok := ParseDateToken(raw, refYear-1); ok {
				return prev.Date, true
			}
		}
	}
	return tok.Date, true
}

func cleanDate(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", " ")
	if s != "" && isLetter(s[0]) {
		s = strings.ReplaceAll(s, ".", " ")
		s = strings.Replace(s, "Sept ", "Sep ", 1)
	}
	s = dateSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func parseExact(s string, refYear int) (DateToken, bool) {
	for _, layout := range yearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateToken{Date: model.DateOf(t)}, true
		}
	}
	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := model.NewDate(refYear, t.Month(), t.Day())
		if d.Month() != t.Month() {
			// Feb 29 in a non-leap reference year.
			return DateToken{}, false
		}
		return DateToken{Date: d, Yearless: true}, true
	}
	return DateToken{}, false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
