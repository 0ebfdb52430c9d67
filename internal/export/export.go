// Package export writes bill records as spreadsheets.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/billscan/internal/model"
)

// SheetName is the worksheet WriteXLSX creates.
const SheetName = "bills"

var leadingColumns = []string{
	"provider", "document_type", "account_number", "service_location",
	"bill_date", "due_date", "billing_period_start", "billing_period_end", "billing_days",
	"disconnect_date", "last_day_to_pay",
	"amount_due", "previous_balance", "payments_received",
}

var trailingColumns = []string{
	"meter_number", "kwh", "therms", "consumption", "previous_reading", "current_reading",
	"requires_attention", "attention_reason", "low_confidence_fields", "unresolved_fields",
	"source_path", "storage_path", "extracted_at",
}

// Table is the header plus one row per record. Cells hold string, float64,
// int or bool values; nil renders empty.
type Table struct {
	Header []string
	Rows   [][]any
}

// Build lays records out as a table. Charge categories become columns between
// the money fields and the meter fields, sorted by name and prefixed with
// "charge_".
func Build(records []model.BillRecord) Table {
	charges := chargeNames(records)

	header := make([]string, 0, len(leadingColumns)+len(charges)+len(trailingColumns))
	header = append(header, leadingColumns...)
	for _, c := range charges {
		header = append(header, "charge_"+c)
	}
	header = append(header, trailingColumns...)

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		row := []any{
			r.Provider, string(r.DocumentType), r.AccountNumber, r.ServiceLocation,
			date(r.BillDate), date(r.DueDate), date(r.BillingPeriodStart), date(r.BillingPeriodEnd), r.BillingDays,
			date(r.DisconnectDate), date(r.LastDayToPay),
			r.AmountDue, r.PreviousBalance, r.PaymentsReceived,
		}
		for _, c := range charges {
			if v, ok := r.Charges[c]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		row = append(row,
			r.MeterNumber, r.Usage.KWh, r.Usage.Therms, r.Usage.Consumption, r.Usage.PreviousReading, r.Usage.CurrentReading,
			r.RequiresAttention, r.Reason(), strings.Join(r.LowConfidenceFields, ","), strings.Join(r.UnresolvedFields, ","),
			r.SourcePath, r.StoragePath, r.ExtractedAt.UTC().Format(time.RFC3339),
		)
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// WriteXLSX writes records to w as a single-sheet workbook.
func WriteXLSX(w io.Writer, records []model.BillRecord) error {
	t := Build(records)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range t.Header {
		header.AddCell().SetString(h)
	}
	for _, values := range t.Rows {
		row := sheet.AddRow()
		for _, v := range values {
			setCell(row.AddCell(), v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// WriteCSV writes the same table as comma-separated text.
func WriteCSV(w io.Writer, records []model.BillRecord) error {
	t := Build(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, values := range t.Rows {
		line := make([]string, len(values))
		for i, v := range values {
			line[i] = format(v)
		}
		if err := cw.Write(line); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func setCell(cell *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
	case float64:
		cell.SetFloat(x)
	case int:
		cell.SetInt(x)
	case bool:
		cell.SetBool(x)
	case string:
		cell.SetString(x)
	}
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return ""
}

func date(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func chargeNames(records []model.BillRecord) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range records {
		for name := range r.Charges {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
