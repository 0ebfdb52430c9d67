package normalize

import "unicode"

// IsGarbled reports whether a candidate line looks like an OCR or rendering
// artifact: three identical letters in a row ("COOMMMMON"), or a leading
// run of digits that repeats with period two ("18181818") or is printed
// twice over ("44117711" for "4171").
func IsGarbled(line string) bool {
	return hasLetterRun(line, 3) || hasPeriodTwoDigits(line) || hasDoubledDigits(line)
}

func hasLetterRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			prev, run = 0, 0
			continue
		}
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// hasPeriodTwoDigits inspects the first eight characters. Every digit at an
// even offset must equal the character two places later, and at least one
// such comparison must happen.
func hasPeriodTwoDigits(s string) bool {
	head := []rune(s)
	if len(head) < 8 {
		return false
	}
	head = head[:8]

	compared := false
	for i := 0; i < 6; i += 2 {
		if !unicode.IsDigit(head[i]) {
			continue
		}
		if head[i] != head[i+2] {
			return false
		}
		compared = true
	}
	return compared
}

func hasDoubledDigits(s string) bool {
	head := []rune(s)
	if len(head) < 8 {
		return false
	}
	for i := 0; i < 8; i += 2 {
		if !unicode.IsDigit(head[i]) || head[i] != head[i+1] {
			return false
		}
	}
	return true
}
