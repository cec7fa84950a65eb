package domain

import "time"

// Debt is a local debt row joined with its debtor, status and counterparty,
// in the shape the sync pushes to Lecto.
type Debt struct {
	ID     string
	Number string

	StartDate *time.Time
	EndDate   *time.Time

	AmountActualDebt float64
	AmountFine       float64
	AmountAccrual    float64

	ProductName    *string
	AdditionalData *string

	StatusName *string

	Debtor Debtor

	CounterpartyID   *string
	CounterpartyName *string
}

type Debtor struct {
	ID         string
	IIN        *string
	LastName   *string
	FirstName  *string
	MiddleName *string
	BirthDate  *time.Time
	Gender     *string
	Email      *string
	Phone      *string
	Mobile     *string
	Address    *string
	PostalCode *string
}
