package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountStrip = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\u00a0", "")

// ParseAmount converts a currency string into a float. Credits written as a
// trailing CR, in parentheses, or with a leading minus come back negative.
// Anything that is not a number after stripping yields 0.
func ParseAmount(raw string) float64 {
	d, ok := ParseDecimal(raw)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// ParseDecimal is ParseAmount without the float conversion. ok is false when
// raw holds no number.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	s := amountStrip.Replace(strings.TrimSpace(raw))
	neg := false

	if n := len(s); n >= 2 && strings.EqualFold(s[n-2:], "CR") {
		neg = true
		s = s[:n-2]
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")
	if !plainNumber(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Abs().Neg()
	}
	return d, true
}

// SumAmounts adds amounts with exact decimal arithmetic.
func SumAmounts(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}

// Magnitude returns the absolute value of an amount. Payments and credits are
// stored this way regardless of how the document signed them.
func Magnitude(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// plainNumber reports whether s is digits with at most one decimal point.
// decimal.NewFromString also takes exponents like "1e3".
func plainNumber(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
