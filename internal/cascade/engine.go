package cascade

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/normalize"
	"github.com/sells-group/billscan/internal/scan"
)

// Context carries what strategies may depend on beyond the text itself.
type Context struct {
	// ReferenceYear overrides the year used for dates printed without one.
	// Zero means: the bill date's year if resolved, else the current year.
	ReferenceYear int

	// Account is optional portal-discovered identity.
	Account *model.AccountInfo

	// Resolved holds fields already extracted from this document.
	Resolved map[string]Result
}

// Engine evaluates field cascades. It holds no per-document state and is safe
// for concurrent use.
type Engine struct {
	now time.Time // injectable for testing
}

// NewEngine creates a cascade engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now()}
}

// WithNow sets a fixed time for testing.
func (e *Engine) WithNow(t time.Time) *Engine {
	e.now = t
	return e
}

// Extract runs f's strategies in order and returns the first plausible
// result. Sum fields add every plausible strategy result instead. A field
// nothing resolves comes back with Resolved == false; Extract never fails.
func (e *Engine) Extract(f *Field, text string, ectx *Context) Result {
	if ectx == nil {
		ectx = &Context{}
	}
	res := Result{Field: f.Name, Index: -1}
	ds := e.dateScope(f, ectx)

	var sum float64
	for i, s := range f.strategies {
		raw, ok := s.impl.find(text)
		attempt := Attempt{Index: i, Kind: s.kind, Raw: raw, Matched: ok}
		if !ok {
			res.Attempts = append(res.Attempts, attempt)
			continue
		}
		val, plausible := f.normalizeValue(raw, ds)
		attempt.Plausible = plausible
		res.Attempts = append(res.Attempts, attempt)
		if !plausible {
			continue
		}

		if f.Sum {
			sum = normalize.SumAmounts(sum, val.Number)
			if !res.Resolved {
				res.Resolved, res.Raw, res.Strategy, res.Index, res.LowConfidence = true, raw, s.kind, i, s.low
			}
			continue
		}

		res.Resolved = true
		res.Value = val
		res.Raw = raw
		res.Strategy = s.kind
		res.Index = i
		res.LowConfidence = s.low
		return res
	}
	if f.Sum && res.Resolved {
		res.Value = Value{Number: sum}
	}
	return res
}

// ExtractAll resolves fields in order. Each resolved field is visible to the
// fields after it, for anchors and default_from.
func (e *Engine) ExtractAll(fields []*Field, text string, ectx *Context) Resolution {
	if ectx == nil {
		ectx = &Context{}
	}
	resolved := make(map[string]Result, len(fields)+len(ectx.Resolved))
	for k, v := range ectx.Resolved {
		resolved[k] = v
	}
	local := &Context{ReferenceYear: ectx.ReferenceYear, Account: ectx.Account, Resolved: resolved}

	out := Resolution{Results: make(map[string]Result, len(fields))}
	for _, f := range fields {
		res, ok := knownAccount(f, text, local.Account)
		if !ok {
			res = e.Extract(f, text, local)
		}
		if !res.Resolved {
			res = fillUnresolved(f, res, local)
		}
		if res.Resolved {
			zap.L().Debug("cascade: field resolved",
				zap.String("field", f.Name),
				zap.String("strategy", string(res.Strategy)),
				zap.Int("index", res.Index),
				zap.Bool("low_confidence", res.LowConfidence),
			)
			out.FieldsResolved++
		}
		resolved[f.Name] = res
		out.Results[f.Name] = res
		out.Order = append(out.Order, f.Name)
		out.FieldsTotal++
	}
	return out
}

// fillUnresolved applies default_from and the known service address.
func fillUnresolved(f *Field, res Result, ectx *Context) Result {
	if f.DefaultFrom != "" {
		if src, ok := ectx.Resolved[f.DefaultFrom]; ok && src.Resolved {
			res.Resolved = true
			res.Value = src.Value
			res.Raw = src.Raw
			res.Strategy = KindDerived
			res.LowConfidence = src.LowConfidence
			return res
		}
	}
	if f.Name == model.FieldServiceLocation && ectx.Account != nil && ectx.Account.ServiceAddress != "" {
		res.Resolved = true
		res.Value = Value{Text: ectx.Account.ServiceAddress}
		res.Raw = ectx.Account.ServiceAddress
		res.Strategy = KindKnownAccount
	}
	return res
}

// knownAccount short-circuits the account cascade when the portal already
// told us the account number and the document prints it as one run, digits
// separated by at most a space or hyphen. The printed text goes through the
// field's transforms so the stored value matches what the cascade would give.
func knownAccount(f *Field, text string, acct *model.AccountInfo) (Result, bool) {
	if f.Name != model.FieldAccountNumber || acct == nil {
		return Result{}, false
	}
	re := accountRunRe(scan.Digits(acct.AccountNumber))
	if re == nil {
		return Result{}, false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	val, ok := f.normalizeValue(m[1], dateScope{})
	if !ok {
		return Result{}, false
	}
	return Result{
		Field:    f.Name,
		Resolved: true,
		Value:    val,
		Raw:      m[1],
		Strategy: KindKnownAccount,
		Index:    -1,
	}, true
}

// accountRunRe matches digits as a standalone run: not preceded or followed
// by another digit, even across a separator.
func accountRunRe(digits string) *regexp.Regexp {
	if len(digits) < 4 {
		return nil
	}
	parts := make([]string, len(digits))
	for i := range digits {
		parts[i] = digits[i : i+1]
	}
	return regexp.MustCompile(`(?:^|[^\d \t-])[ \t-]*(` + strings.Join(parts, `[ \t-]?`) + `)[ \t-]*(?:[^\d \t-]|$)`)
}

func (e *Engine) dateScope(f *Field, ectx *Context) dateScope {
	ds := dateScope{refYear: ectx.ReferenceYear, maxYear: e.now.Year() + 5}
	if ds.refYear == 0 {
		ds.refYear = e.now.Year()
		if bd, ok := ectx.Resolved[model.FieldBillDate]; ok && bd.Resolved && bd.Value.Date != nil {
			ds.refYear = bd.Value.Date.Year()
		}
	}
	if f.Anchor != "" {
		if a, ok := ectx.Resolved[f.Anchor]; ok && a.Resolved && a.Value.Date != nil {
			ds.anchor = a.Value.Date
		}
	}
	return ds
}
