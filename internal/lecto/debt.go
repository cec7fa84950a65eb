package lecto

type Debt struct {
	ID             uint64            `json:"id"`
	DebtID         string            `json:"debt_id"`
	DebtorID       string            `json:"debtor_id"`
	DealtAt        string            `json:"dealt_at"`
	DebtAmount     int64             `json:"debt_amount"`
	DebtFee        *int64            `json:"debt_fee"`
	RepaymentDueAt string            `json:"repayment_due_at"`
	Appendix       string            `json:"appendix"`
	AppendixParsed map[string]string `json:"appendix_parsed"`
	RemindSegments []Segment         `json:"remind_segments"`
}

type Segment struct {
	Name string `json:"name"`
}

type DebtRequest struct {
	DebtID         string   `json:"debt_id"`
	DebtorID       string   `json:"debtor_id"`
	DealtAt        string   `json:"dealt_at"`
	DebtAmount     uint64   `json:"debt_amount"`
	DebtFee        *uint64  `json:"debt_fee"`
	RepaymentDueAt string   `json:"repayment_due_at"`
	Appendix       *string  `json:"appendix"`
	RemindSegments []string `json:"remind_segments"`
	Partner        *Partner `json:"partner"`
}

type Partner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
