package normalize

import (
	"regexp"
	"strings"
)

var (
	unitDesignatorRe = regexp.MustCompile(`(?i)\s+(?:(?:UNIT|APT|STE|SUITE)\b\.?\s*#?|#)\s*\w*`)
	trailingUnitRe   = regexp.MustCompile(`(?i)^(\d+)\s+(.+?)\s+([A-Z])$`)
	nonAlnumRunRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// AddressToSlug turns a postal address into a filesystem-safe directory key:
//
//  1. keep the street portion before the first comma
//  2. drop UNIT/APT/STE/SUITE/# designators
//  3. move a trailing unit letter onto the house number
//     ("310 HOWARD ST B" becomes "310B HOWARD ST")
//  4. lowercase and collapse every non-alphanumeric run into one hyphen
//
// The result is stable when fed back in.
func AddressToSlug(address string) string {
	street, _, _ := strings.Cut(address, ",")
	street = strings.TrimSpace(street)
	street = strings.TrimSpace(unitDesignatorRe.ReplaceAllString(street, ""))

	if m := trailingUnitRe.FindStringSubmatch(street); m != nil {
		street = m[1] + strings.ToUpper(m[3]) + " " + m[2]
	}

	return hyphenate(street)
}

// ProviderToSlug lowercases a provider name and hyphenates it:
// "Duke Energy" becomes "duke-energy".
func ProviderToSlug(provider string) string {
	return hyphenate(provider)
}

func hyphenate(s string) string {
	s = nonAlnumRunRe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
