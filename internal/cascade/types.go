package cascade

import "github.com/sells-group/billscan/internal/model"

// StrategyKind names how a strategy locates its raw value.
type StrategyKind string

// Strategy kinds in precedence order. Fallback kinds are always evaluated
// last and flag their result as low-confidence.
const (
	KindAnchored    StrategyKind = "anchored"
	KindLabel       StrategyKind = "label"
	KindPositional  StrategyKind = "positional"
	KindLineScan    StrategyKind = "line_scan"
	KindDigitRun    StrategyKind = "digit_run"
	KindFirstAmount StrategyKind = "first_amount"

	// KindKnownAccount marks a value taken from portal account info.
	KindKnownAccount StrategyKind = "known_account"
	// KindDerived marks a value copied from another field via default_from.
	KindDerived StrategyKind = "derived"
)

// IsFallback reports whether k is a last-resort strategy.
func (k StrategyKind) IsFallback() bool {
	return k == KindDigitRun || k == KindFirstAmount
}

// ValueKind decides how a raw string is normalized and judged plausible.
type ValueKind string

// Value kinds.
const (
	ValueText       ValueKind = "text"
	ValueIdentifier ValueKind = "identifier"
	ValueAddress    ValueKind = "address"
	ValueDate       ValueKind = "date"
	ValueAmount     ValueKind = "amount"
	ValueMagnitude  ValueKind = "magnitude"
	ValueNumber     ValueKind = "number"
	ValueCount      ValueKind = "count"
)

// Value is a normalized field value. Only the member matching the field's
// ValueKind is set.
type Value struct {
	Text   string      `json:"text,omitempty"`
	Date   *model.Date `json:"date,omitempty"`
	Number float64     `json:"number,omitempty"`
}

// Attempt records one strategy evaluation.
type Attempt struct {
	Index     int          `json:"index"`
	Kind      StrategyKind `json:"kind"`
	Raw       string       `json:"raw,omitempty"`
	Matched   bool         `json:"matched"`
	Plausible bool         `json:"plausible"`
}

// Result is the outcome of running one field's cascade.
type Result struct {
	Field         string       `json:"field"`
	Resolved      bool         `json:"resolved"`
	Value         Value        `json:"value"`
	Raw           string       `json:"raw,omitempty"`
	Strategy      StrategyKind `json:"strategy,omitempty"`
	Index         int          `json:"index"`
	LowConfidence bool         `json:"low_confidence"`
	Attempts      []Attempt    `json:"attempts"`
}

// Resolution collects the results of a full field set.
type Resolution struct {
	Results        map[string]Result `json:"results"`
	Order          []string          `json:"order"`
	FieldsResolved int               `json:"fields_resolved"`
	FieldsTotal    int               `json:"fields_total"`
}

// Get returns the result for field, which is unresolved when absent.
func (r Resolution) Get(field string) Result {
	if res, ok := r.Results[field]; ok {
		return res
	}
	return Result{Field: field}
}

// LowConfidence lists resolved fields whose winner was a fallback strategy,
// in field order.
func (r Resolution) LowConfidence() []string {
	var out []string
	for _, name := range r.Order {
		if res := r.Results[name]; res.Resolved && res.LowConfidence {
			out = append(out, name)
		}
	}
	return out
}

// Unresolved lists fields nothing resolved, in field order.
func (r Resolution) Unresolved() []string {
	var out []string
	for _, name := range r.Order {
		if !r.Results[name].Resolved {
			out = append(out, name)
		}
	}
	return out
}
