// Package assemble turns raw document text into a BillRecord: classify, run
// the provider's field set through the cascade, and map the results onto the
// record with sentinels and attention reasons.
package assemble

import (
	"strings"
	"time"

	"github.com/sells-group/billscan/internal/cascade"
	"github.com/sells-group/billscan/internal/classify"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/normalize"
	"github.com/sells-group/billscan/internal/provider"
)

// ExcerptLimit bounds RawTextExcerpt, in characters.
const ExcerptLimit = 500

// Options are per-document inputs beyond the text.
type Options struct {
	// Account is portal-discovered identity, if any.
	Account *model.AccountInfo
	// ReferenceYear overrides the year for dates printed without one.
	ReferenceYear int
}

// Result is an assembled record plus the evidence behind it.
type Result struct {
	Record     model.BillRecord   `json:"record"`
	Scores     classify.Scores    `json:"scores"`
	Resolution cascade.Resolution `json:"resolution"`
}

// Assembler builds records for one provider. It is safe for concurrent use.
type Assembler struct {
	provider *provider.Provider
	engine   *cascade.Engine
	now      func() time.Time
}

// New creates an Assembler for p.
func New(p *provider.Provider) *Assembler {
	return &Assembler{
		provider: p,
		engine:   cascade.NewEngine(),
		now:      time.Now,
	}
}

// WithNow fixes the clock used for ExtractedAt and date plausibility.
func (a *Assembler) WithNow(t time.Time) *Assembler {
	a.now = func() time.Time { return t }
	a.engine = cascade.NewEngine().WithNow(t)
	return a
}

// Provider returns the provider the assembler was built for.
func (a *Assembler) Provider() *provider.Provider {
	return a.provider
}

// Assemble builds the record for text. It never fails: anything it cannot
// recover is left at its sentinel and explained by the attention reason.
func (a *Assembler) Assemble(text, sourcePath string, opts Options) model.BillRecord {
	return a.Run(text, sourcePath, opts).Record
}

// Run is Assemble with the classification scores and per-field resolution
// attached.
func (a *Assembler) Run(text, sourcePath string, opts Options) Result {
	clean := normalize.CleanText(text)
	rec := model.BillRecord{
		Provider:        a.provider.Name,
		DocumentType:    model.DocumentUnknown,
		AccountNumber:   model.Sentinel,
		ServiceLocation: model.Sentinel,
		Charges:         map[string]float64{},
		SourcePath:      sourcePath,
		ExtractedAt:     a.now().UTC(),
		RawTextExcerpt:  normalize.Excerpt(clean, ExcerptLimit),
	}

	if strings.TrimSpace(clean) == "" {
		flag(&rec, model.ReasonNoText)
		return Result{Record: rec}
	}

	scores := a.provider.Classifier().Score(clean)
	rec.DocumentType = a.provider.Classifier().Decide(scores)

	res := a.engine.ExtractAll(a.provider.Fields(rec.DocumentType), clean, &cascade.Context{
		ReferenceYear: opts.ReferenceYear,
		Account:       opts.Account,
	})
	apply(&rec, res)
	rec.LowConfidenceFields = res.LowConfidence()
	rec.UnresolvedFields = res.Unresolved()

	switch rec.DocumentType {
	case model.DocumentAttentionNotice:
		flag(&rec, model.ReasonDisconnectNotice)
	case model.DocumentUnknown:
		flag(&rec, model.ReasonUnknownDocument)
	default:
		if missing := missingRequired(a.provider.Required, res); len(missing) > 0 {
			flag(&rec, model.ReasonMissingPrefix+strings.Join(missing, ", "))
		}
	}

	return Result{Record: rec, Scores: scores, Resolution: res}
}

// apply copies resolved field values onto rec.
func apply(rec *model.BillRecord, res cascade.Resolution) {
	for _, name := range res.Order {
		r := res.Results[name]
		if !r.Resolved {
			continue
		}
		v := r.Value
		switch name {
		case model.FieldAccountNumber:
			rec.AccountNumber = v.Text
		case model.FieldServiceLocation:
			rec.ServiceLocation = v.Text
		case model.FieldBillDate:
			rec.BillDate = v.Date
		case model.FieldDueDate:
			rec.DueDate = v.Date
		case model.FieldPeriodStart:
			rec.BillingPeriodStart = v.Date
		case model.FieldPeriodEnd:
			rec.BillingPeriodEnd = v.Date
		case model.FieldDisconnectDate:
			rec.DisconnectDate = v.Date
		case model.FieldLastDayToPay:
			rec.LastDayToPay = v.Date
		case model.FieldBillingDays:
			rec.BillingDays = int(v.Number)
		case model.FieldAmountDue:
			rec.AmountDue = v.Number
		case model.FieldPreviousBalance:
			rec.PreviousBalance = v.Number
		case model.FieldPaymentsReceived:
			rec.PaymentsReceived = normalize.Magnitude(v.Number)
		case model.FieldMeterNumber:
			rec.MeterNumber = v.Text
		case model.FieldKWh:
			rec.Usage.KWh = v.Number
		case model.FieldTherms:
			rec.Usage.Therms = v.Number
		case model.FieldConsumption:
			rec.Usage.Consumption = v.Number
		case model.FieldPreviousReading:
			rec.Usage.PreviousReading = int(v.Number)
		case model.FieldCurrentReading:
			rec.Usage.CurrentReading = int(v.Number)
		default:
			if model.IsChargeField(name) && v.Number > 0 {
				rec.Charges[name] = v.Number
			}
		}
	}

	if rec.BillingDays == 0 && rec.BillingPeriodStart != nil && rec.BillingPeriodEnd != nil {
		rec.BillingDays = daysBetween(*rec.BillingPeriodStart, *rec.BillingPeriodEnd)
	}
}

// daysBetween returns the whole days from start to end, or 0 when the span is
// not a plausible billing period.
func daysBetween(start, end model.Date) int {
	days := int(end.Sub(start.Time).Hours() / 24)
	if days < 1 || days > 366 {
		return 0
	}
	return days
}

func missingRequired(required []string, res cascade.Resolution) []string {
	var missing []string
	for _, name := range required {
		if !res.Get(name).Resolved {
			missing = append(missing, name)
		}
	}
	return missing
}

func flag(rec *model.BillRecord, reason string) {
	rec.RequiresAttention = true
	rec.AttentionReason = &reason
}
