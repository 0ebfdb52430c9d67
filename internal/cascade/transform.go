package cascade

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sells-group/billscan/internal/normalize"
	"github.com/sells-group/billscan/internal/scan"
)

// transform rewrites a raw identifier or address. Returning "" rejects the
// candidate.
type transform func(string) string

var (
	trailingHouseNumberRe = regexp.MustCompile(`^(\D.*?)\s+(\d+)$`)
	streetSuffixCutRe     = regexp.MustCompile(`(?i)^(.*?\b(?:STREET|AVENUE|DRIVE|COURT|ROAD|LANE|CIRCLE|PLACE|TERRACE|PARKWAY|BOULEVARD|ST|AVE|DR|CT|RD|LN|WAY|BLVD|CIR|PL|TER|PKWY)\b)`)
)

var transforms = map[string]transform{
	"strip_spaces": func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	},
	"digits_only":     scan.Digits,
	"upper":           strings.ToUpper,
	"collapse_spaces": normalize.CollapseSpaces,

	// "UNDERBRUSH DR 1553" becomes "1553 UNDERBRUSH DR".
	"flip_house_number": func(s string) string {
		if m := trailingHouseNumberRe.FindStringSubmatch(s); m != nil {
			return m[2] + " " + m[1]
		}
		return s
	},

	// "3448 BERETANIA WAY SACRAMENTO CA" becomes "3448 BERETANIA WAY".
	"cut_after_street_suffix": func(s string) string {
		if m := streetSuffixCutRe.FindStringSubmatch(s); m != nil {
			return m[1]
		}
		return s
	},

	"require_leading_digit": func(s string) string {
		if s == "" || s[0] < '0' || s[0] > '9' {
			return ""
		}
		return s
	},

	// Cable account numbers print as 4-2-3-7 digit groups.
	"group_4_2_3_7": func(s string) string {
		d := scan.Digits(s)
		if len(d) != 16 {
			return s
		}
		return d[0:4] + " " + d[4:6] + " " + d[6:9] + " " + d[9:16]
	},

	"strip_trailing_punct": func(s string) string {
		return strings.TrimRight(s, ",.;:")
	},

	"first_token": func(s string) string {
		if fields := strings.Fields(s); len(fields) > 0 {
			return fields[0]
		}
		return ""
	},
}
