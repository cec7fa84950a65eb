package lecto

// Remind pairs one debtor with the debts due for a reminder.
type Remind struct {
	Label  string `json:"label"`
	Debtor Debtor `json:"debtor"`
	Debts  []Debt `json:"debts"`
}
