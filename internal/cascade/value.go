package cascade

import (
	"strconv"
	"strings"

	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/normalize"
	"github.com/sells-group/billscan/internal/scan"
)

const (
	minPlausibleYear = 1990
	maxBillingDays   = 366
)

// dateScope is what a date field needs from already-resolved fields.
type dateScope struct {
	refYear int
	anchor  *model.Date
	maxYear int
}

// normalizeValue converts raw into f's value kind and applies the kind's
// plausibility check.
func (f *Field) normalizeValue(raw string, ds dateScope) (Value, bool) {
	switch f.Kind {
	case ValueText, ValueIdentifier, ValueAddress:
		s := strings.TrimSpace(raw)
		for _, tr := range f.transforms {
			s = strings.TrimSpace(tr(s))
			if s == "" {
				return Value{}, false
			}
		}
		if !f.plausibleText(s) {
			return Value{}, false
		}
		return Value{Text: s}, true

	case ValueDate:
		d, ok := normalize.ResolveDate(raw, ds.refYear, ds.anchor, f.Rollover)
		if !ok || d.Year() < minPlausibleYear || d.Year() > ds.maxYear {
			return Value{}, false
		}
		return Value{Date: &d}, true

	case ValueAmount, ValueMagnitude:
		d, ok := normalize.ParseDecimal(raw)
		if !ok || d.IsZero() {
			return Value{}, false
		}
		v, _ := d.Float64()
		if f.Kind == ValueMagnitude {
			return Value{Number: normalize.Magnitude(v)}, true
		}
		if v < 0 {
			return Value{}, false
		}
		return Value{Number: v}, true

	case ValueNumber:
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
		if err != nil || v <= 0 {
			return Value{}, false
		}
		return Value{Number: v}, true

	case ValueCount:
		n, err := strconv.Atoi(scan.Digits(raw))
		if err != nil || n < 1 || n > maxBillingDays {
			return Value{}, false
		}
		return Value{Number: float64(n)}, true
	}
	return Value{}, false
}

func (f *Field) plausibleText(s string) bool {
	switch f.Kind {
	case ValueIdentifier:
		n := len(scan.Digits(s))
		if f.MinDigits > 0 && n < f.MinDigits {
			return false
		}
		if f.MaxDigits > 0 && n > f.MaxDigits {
			return false
		}
	case ValueAddress:
		if len(s) < 5 || normalize.IsGarbled(s) || !strings.ContainsFunc(s, isASCIILetter) {
			return false
		}
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
