package model

import (
	"maps"
	"time"
)

// BillRecord is the normalized result of parsing one utility document.
//
// Identity fields fall back to Sentinel, numeric fields to zero, and dates to
// nil. Every degraded record carries RequiresAttention and a reason.
type BillRecord struct {
	Provider        string       `json:"provider"`
	DocumentType    DocumentType `json:"document_type"`
	AccountNumber   string       `json:"account_number"`
	ServiceLocation string       `json:"service_location"`

	BillDate           *Date `json:"bill_date"`
	DueDate            *Date `json:"due_date"`
	BillingPeriodStart *Date `json:"billing_period_start"`
	BillingPeriodEnd   *Date `json:"billing_period_end"`
	BillingDays        int   `json:"billing_days"`
	DisconnectDate     *Date `json:"disconnect_date"`
	LastDayToPay       *Date `json:"last_day_to_pay"`

	AmountDue        float64            `json:"amount_due"`
	PreviousBalance  float64            `json:"previous_balance"`
	PaymentsReceived float64            `json:"payments_received"`
	Charges          map[string]float64 `json:"charges"`

	MeterNumber string `json:"meter_number"`
	Usage       Usage  `json:"usage"`

	RequiresAttention bool    `json:"requires_attention"`
	AttentionReason   *string `json:"attention_reason"`

	LowConfidenceFields []string `json:"low_confidence_fields,omitempty"`
	UnresolvedFields    []string `json:"unresolved_fields,omitempty"`

	SourcePath     string    `json:"source_path,omitempty"`
	StoragePath    string    `json:"storage_path,omitempty"`
	ExtractedAt    time.Time `json:"extracted_at"`
	RawTextExcerpt string    `json:"raw_text_excerpt"`
}

// Usage holds metered consumption. Zero means the document had no usage line.
type Usage struct {
	KWh             float64 `json:"kwh"`
	Therms          float64 `json:"therms"`
	Consumption     float64 `json:"consumption"`
	PreviousReading int     `json:"previous_reading"`
	CurrentReading  int     `json:"current_reading"`
}

// Reason returns the attention reason or an empty string.
func (r BillRecord) Reason() string {
	if r.AttentionReason == nil {
		return ""
	}
	return *r.AttentionReason
}

// WithStoragePath returns a copy of r that records where its source PDF was
// filed.
func (r BillRecord) WithStoragePath(path string) BillRecord {
	out := r
	out.Charges = maps.Clone(r.Charges)
	out.StoragePath = path
	return out
}

// FilingDate picks the date a bill is filed under: the bill date, then the
// end of the billing period, then the due date.
func (r BillRecord) FilingDate() (Date, bool) {
	for _, d := range []*Date{r.BillDate, r.BillingPeriodEnd, r.DueDate} {
		if d != nil {
			return *d, true
		}
	}
	return Date{}, false
}

// TotalCharges sums the charge categories.
func (r BillRecord) TotalCharges() float64 {
	var total float64
	for _, v := range r.Charges {
		total += v
	}
	return total
}

// AccountInfo is account identity discovered on a provider portal before any
// document is parsed.
type AccountInfo struct {
	AccountNumber  string  `json:"account_number"`
	ServiceAddress string  `json:"service_address"`
	CurrentBalance float64 `json:"current_balance"`
	LastBillDate   *Date   `json:"last_bill_date"`
	Status         string  `json:"status"`
}
