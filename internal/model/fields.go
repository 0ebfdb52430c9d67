package model

// Field names shared by provider configs, the cascade, and the record.
// Any field name not listed here is treated as a charge category.
const (
	FieldAccountNumber    = "account_number"
	FieldServiceLocation  = "service_location"
	FieldBillDate         = "bill_date"
	FieldDueDate          = "due_date"
	FieldPeriodStart      = "billing_period_start"
	FieldPeriodEnd        = "billing_period_end"
	FieldBillingDays      = "billing_days"
	FieldDisconnectDate   = "disconnect_date"
	FieldLastDayToPay     = "last_day_to_pay"
	FieldAmountDue        = "amount_due"
	FieldPreviousBalance  = "previous_balance"
	FieldPaymentsReceived = "payments_received"
	FieldMeterNumber      = "meter_number"
	FieldKWh              = "kwh"
	FieldTherms           = "therms"
	FieldConsumption      = "consumption"
	FieldPreviousReading  = "previous_reading"
	FieldCurrentReading   = "current_reading"
)

var recordFields = map[string]bool{
	FieldAccountNumber:    true,
	FieldServiceLocation:  true,
	FieldBillDate:         true,
	FieldDueDate:          true,
	FieldPeriodStart:      true,
	FieldPeriodEnd:        true,
	FieldBillingDays:      true,
	FieldDisconnectDate:   true,
	FieldLastDayToPay:     true,
	FieldAmountDue:        true,
	FieldPreviousBalance:  true,
	FieldPaymentsReceived: true,
	FieldMeterNumber:      true,
	FieldKWh:              true,
	FieldTherms:           true,
	FieldConsumption:      true,
	FieldPreviousReading:  true,
	FieldCurrentReading:   true,
}

// IsChargeField reports whether name is a provider-specific charge category
// rather than one of the fixed record fields.
func IsChargeField(name string) bool {
	return !recordFields[name]
}
