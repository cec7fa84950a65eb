package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Reminds"

type Column struct {
	Key    string
	Header string
	Value  func(r Row) any
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func int64Ptr(p *int64) any {
	if p == nil {
		return ""
	}
	return *p
}

var columns = []Column{
	{Key: "debtor_id", Header: "Debtor ID", Value: func(r Row) any { return r.DebtorID }},
	{Key: "name", Header: "Name", Value: func(r Row) any { return r.Name }},
	{Key: "name_kana", Header: "Name (kana)", Value: func(r Row) any { return strPtr(r.NameKana) }},
	{Key: "postal_code", Header: "Postal code", Value: func(r Row) any { return strPtr(r.PostalCode) }},
	{Key: "address", Header: "Address", Value: func(r Row) any { return r.Address }},
	{Key: "kyc_done", Header: "KYC done", Value: func(r Row) any { return r.KycDone }},
	{Key: "phone_number", Header: "Phone", Value: func(r Row) any { return strPtr(r.PhoneNumber) }},
	{Key: "mobile_number", Header: "Mobile", Value: func(r Row) any { return strPtr(r.MobileNumber) }},
	{Key: "email", Header: "Email", Value: func(r Row) any { return r.Email }},
	{Key: "birth_date", Header: "Birth date", Value: func(r Row) any { return strPtr(r.BirthDate) }},
	{Key: "gender", Header: "Gender", Value: func(r Row) any { return r.Gender }},
	{Key: "total_debt_amount", Header: "Total debt amount", Value: func(r Row) any { return r.TotalDebtAmount }},
	{Key: "total_debt_fee", Header: "Total debt fee", Value: func(r Row) any { return int64Ptr(r.TotalDebtFee) }},
	{Key: "total_amount", Header: "Total amount", Value: func(r Row) any { return r.TotalAmount }},
	{Key: "debt_amount", Header: "Debt amount", Value: func(r Row) any { return r.DebtAmount }},
	{Key: "debt_id", Header: "Debt ID", Value: func(r Row) any { return r.DebtID }},
	{Key: "dealt_at", Header: "Dealt at", Value: func(r Row) any { return r.DealtAt }},
	{Key: "repayment_due_at", Header: "Repayment due at", Value: func(r Row) any { return r.RepaymentDueAt }},
	{Key: "appendix", Header: "Appendix", Value: func(r Row) any { return r.Appendix }},
	{Key: "remind_segments", Header: "Remind segments", Value: func(r Row) any { return r.RemindSegments }},
}

// DefaultColumns returns every report column in row order.
func DefaultColumns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// SelectColumns picks columns by key, keeping the caller's order. Unknown
// keys are skipped; an empty selection means all columns.
func SelectColumns(keys []string) []Column {
	if len(keys) == 0 {
		return DefaultColumns()
	}

	byKey := make(map[string]Column, len(columns))
	for _, c := range columns {
		byKey[c.Key] = c
	}

	var out []Column
	for _, k := range keys {
		if c, ok := byKey[k]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ProgressFunc is called every chunk of written rows.
type ProgressFunc func(done, total int)

const progressChunk = 500

// WriteXLSX renders rows into a single-sheet workbook.
func WriteXLSX(rows []Row, cols []Column, progress ProgressFunc) (*bytes.Buffer, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no report columns selected")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	total := len(rows)
	for i, r := range rows {
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = excelize.Cell{StyleID: wrap, Value: c.Value(r)}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}

		if progress != nil && ((i+1)%progressChunk == 0 || i == total-1) {
			progress(i+1, total)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
