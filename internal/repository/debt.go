package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lecto-bridge/internal/domain"
)

type DebtsFilter struct {
	RegistryID     *string
	CounterpartyID *string
	StatusID       *int64
	// Limit caps the number of rows, 0 means no cap.
	Limit int
}

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

const syncBaseQuery = `
	SELECT
		d.id,
		d.number,
		d.start_date,
		d.end_date,
		d.amount_actual_debt,
		d.amount_fine,
		d.amount_accrual,
		d.product_name,
		d.additional_data::text,

		ds.name AS status_name,

		dbt.id,
		dbt.iin,
		dbt.last_name,
		dbt.first_name,
		dbt.middle_name,
		dbt.birth_date,
		dbt.gender,
		dbt.email,
		dbt.phone,
		dbt.mobile_phone,
		dbt.address,
		dbt.postal_code,

		cp.id   AS counterparty_id,
		cp.name AS counterparty_name
	FROM debts d
	JOIN debtors             dbt ON dbt.id = d.debtor_id
	LEFT JOIN debt_statuses  ds  ON ds.id  = d.status_id
	LEFT JOIN counterparties cp  ON cp.id  = d.counterparty_id
`

func buildSyncQuery(f DebtsFilter) (string, []any) {
	where := []string{"d.deleted_at IS NULL"}
	args := []any{}
	i := 1

	if f.RegistryID != nil {
		where = append(where, fmt.Sprintf("d.registry_id = $%d", i))
		args = append(args, *f.RegistryID)
		i++
	}

	if f.CounterpartyID != nil {
		where = append(where, fmt.Sprintf("d.counterparty_id = $%d", i))
		args = append(args, *f.CounterpartyID)
		i++
	}

	if f.StatusID != nil {
		where = append(where, fmt.Sprintf("d.status_id = $%d", i))
		args = append(args, *f.StatusID)
		i++
	}

	// debtor first so each debtor's debts arrive together
	query := syncBaseQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY dbt.id, d.number"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", i)
		args = append(args, f.Limit)
	}

	return query, args
}

// ListForSync returns the debts to push to Lecto, each joined with its debtor.
func (r *DebtRepository) ListForSync(ctx context.Context, f DebtsFilter) ([]domain.Debt, error) {
	query, args := buildSyncQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query debts for sync: %w", err)
	}
	defer rows.Close()

	var result []domain.Debt

	for rows.Next() {
		var d domain.Debt

		if err := rows.Scan(
			&d.ID,
			&d.Number,
			&d.StartDate,
			&d.EndDate,
			&d.AmountActualDebt,
			&d.AmountFine,
			&d.AmountAccrual,
			&d.ProductName,
			&d.AdditionalData,

			&d.StatusName,

			&d.Debtor.ID,
			&d.Debtor.IIN,
			&d.Debtor.LastName,
			&d.Debtor.FirstName,
			&d.Debtor.MiddleName,
			&d.Debtor.BirthDate,
			&d.Debtor.Gender,
			&d.Debtor.Email,
			&d.Debtor.Phone,
			&d.Debtor.Mobile,
			&d.Debtor.Address,
			&d.Debtor.PostalCode,

			&d.CounterpartyID,
			&d.CounterpartyName,
		); err != nil {
			return nil, fmt.Errorf("scan debt row: %w", err)
		}

		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate debt rows: %w", err)
	}

	return result, nil
}
