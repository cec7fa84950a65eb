package report

import (
	"encoding/json"
	"strconv"
	"strings"

	"lecto-bridge/internal/lecto"
)

const (
	lineSeparator     = "\n"
	appendixSeparator = "\n---------\n"
	segmentSeparator  = ","

	totalAmountField = "total_amount"
)

// Row is one debtor's line in the remind report.
type Row struct {
	DebtorID     string  `json:"debtor_id"`
	Name         string  `json:"name"`
	NameKana     *string `json:"name_kana"`
	PostalCode   *string `json:"postal_code"`
	Address      string  `json:"address"`
	KycDone      bool    `json:"kyc_done"`
	PhoneNumber  *string `json:"phone_number"`
	MobileNumber *string `json:"mobile_number"`
	Email        string  `json:"email"`
	BirthDate    *string `json:"birth_date"`
	Gender       string  `json:"gender"`

	TotalDebtAmount int64 `json:"total_debt_amount"`
	// TotalDebtFee is always set, 0 when no debt carries a fee.
	TotalDebtFee *int64 `json:"total_debt_fee"`
	TotalAmount  int64  `json:"total_amount"`

	DebtAmount     string `json:"debt_amount"`
	DebtID         string `json:"debt_id"`
	DealtAt        string `json:"dealt_at"`
	RepaymentDueAt string `json:"repayment_due_at"`
	Appendix       string `json:"appendix"`
	RemindSegments string `json:"remind_segments"`
}

type partition struct {
	debtor lecto.Debtor
	debts  []lecto.Debt
}

// Group folds reminds into one row per distinct debtor. Debtors are compared
// on every field, not just debtor_id. Rows come out in order of each debtor's
// first appearance and debts keep their input order.
func Group(reminds []lecto.Remind) []Row {
	index := make(map[string]int)
	var parts []*partition

	for _, r := range reminds {
		key := debtorKey(r.Debtor)
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, &partition{debtor: r.Debtor})
		}
		parts[i].debts = append(parts[i].debts, r.Debts...)
	}

	rows := make([]Row, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, buildRow(p.debtor, p.debts))
	}
	return rows
}

// debtorKey is a canonical serialization of the whole debtor. encoding/json
// writes struct fields in declaration order, so equal values give equal keys.
func debtorKey(d lecto.Debtor) string {
	b, err := json.Marshal(d)
	if err != nil {
		// Debtor has no types json can reject
		panic(err)
	}
	return string(b)
}

func buildRow(d lecto.Debtor, debts []lecto.Debt) Row {
	var (
		totalDebtAmount int64
		totalDebtFee    int64
		totalAmount     int64
	)

	amounts := make([]string, len(debts))
	ids := make([]string, len(debts))
	dealtAt := make([]string, len(debts))
	dueAt := make([]string, len(debts))
	appendix := make([]string, len(debts))
	segments := make([]string, len(debts))

	for i, debt := range debts {
		totalDebtAmount += debt.DebtAmount
		if debt.DebtFee != nil {
			totalDebtFee += *debt.DebtFee
		}
		totalAmount += customAmount(debt, totalAmountField)

		amounts[i] = strconv.FormatInt(debt.DebtAmount, 10)
		ids[i] = debt.DebtID
		dealtAt[i] = debt.DealtAt
		dueAt[i] = debt.RepaymentDueAt
		appendix[i] = debt.Appendix

		names := make([]string, len(debt.RemindSegments))
		for j, s := range debt.RemindSegments {
			names[j] = s.Name
		}
		segments[i] = strings.Join(names, segmentSeparator)
	}

	info := d.BasicInformation
	var birthDate *string
	if info.BirthDate != nil {
		s := info.BirthDate.String()
		birthDate = &s
	}

	return Row{
		DebtorID:     d.DebtorID,
		Name:         info.Name,
		NameKana:     copyStr(info.NameKana),
		PostalCode:   copyStr(d.Address.PostalCode),
		Address:      d.Address.Address,
		KycDone:      d.Address.KycDone,
		PhoneNumber:  copyStr(d.PhoneNumber.PhoneNumber),
		MobileNumber: copyStr(d.PhoneNumber.MobileNumber),
		Email:        d.Email.Email,
		BirthDate:    birthDate,
		Gender:       string(info.Gender),

		TotalDebtAmount: totalDebtAmount,
		TotalDebtFee:    &totalDebtFee,
		TotalAmount:     totalAmount,

		DebtAmount:     strings.Join(amounts, lineSeparator),
		DebtID:         strings.Join(ids, lineSeparator),
		DealtAt:        strings.Join(dealtAt, lineSeparator),
		RepaymentDueAt: strings.Join(dueAt, lineSeparator),
		Appendix:       strings.Join(appendix, appendixSeparator),
		RemindSegments: strings.Join(segments, lineSeparator),
	}
}

// customAmount reads an integer custom field; missing or unparsable values
// count as 0.
func customAmount(d lecto.Debt, field string) int64 {
	raw, ok := d.AppendixParsed[field]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
