package loan

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"phpayroll/internal/platform/querier"
)

const uniqueViolation = "23505"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, orgID string, in NewLoan) (Loan, error) {
	loan := Loan{
		OrgID:              orgID,
		EmployeeID:         in.EmployeeID,
		Description:        in.Description,
		OriginalAmount:     in.Amount,
		CurrentBalance:     in.Amount,
		MonthlyInstallment: in.MonthlyInstallment,
		IsActive:           true,
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO loans (organization_id, employee_id, description, amount, balance, monthly_installment, is_active)
    VALUES ($1,$2,$3,$4,$4,$5,true)
    RETURNING id, created_at
  `, orgID, in.EmployeeID, in.Description, in.Amount, in.MonthlyInstallment).Scan(&loan.ID, &loan.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Loan{}, ErrActiveLoanExists
		}
		return Loan{}, err
	}
	return loan, nil
}

func (s *Store) List(ctx context.Context, orgID string, activeOnly bool) ([]Loan, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT l.id, l.employee_id, e.last_name || ', ' || e.first_name, COALESCE(l.description, ''),
           l.amount, l.balance, l.monthly_installment, l.is_active, l.created_at
    FROM loans l
    JOIN employees e ON e.id = l.employee_id
    WHERE l.organization_id = $1 AND ($2 = false OR l.is_active)
    ORDER BY e.last_name, e.first_name, l.created_at DESC
  `, orgID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		loan := Loan{OrgID: orgID}
		if err := rows.Scan(&loan.ID, &loan.EmployeeID, &loan.EmployeeName, &loan.Description,
			&loan.OriginalAmount, &loan.CurrentBalance, &loan.MonthlyInstallment, &loan.IsActive, &loan.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func (s *Store) ListActive(ctx context.Context, orgID string) ([]Loan, error) {
	return s.List(ctx, orgID, true)
}

// History lists an employee's loan payments, newest period first.
func (s *Store) History(ctx context.Context, orgID, employeeID string) ([]Payment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, loan_id, employee_id, period_start, period_end, transaction_date, amount_paid, balance_after
    FROM loan_payments
    WHERE organization_id = $1 AND employee_id = $2
    ORDER BY period_end DESC, transaction_date DESC
  `, orgID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.EmployeeID, &p.PeriodStart, &p.PeriodEnd, &p.TransactionDate, &p.AmountPaid, &p.BalanceAfter); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ApplyDeduction decrements the employee's active loan in a single statement
// and appends the payment row. The row lock taken by the update serializes
// concurrent finalizations for the same employee, and the applied amount is
// capped at the balance seen under that lock. ok is false when the employee
// has no active loan.
func (s *Store) ApplyDeduction(ctx context.Context, q querier.Querier, orgID string, d Deduction) (Payment, bool, error) {
	if q == nil {
		q = s.DB
	}
	payment := Payment{
		EmployeeID:      d.EmployeeID,
		PeriodStart:     d.PeriodStart,
		PeriodEnd:       d.PeriodEnd,
		TransactionDate: d.PaidAt,
	}
	err := q.QueryRow(ctx, `
    WITH target AS (
      SELECT id, balance
      FROM loans
      WHERE organization_id = $1 AND employee_id = $2 AND is_active
      ORDER BY created_at
      LIMIT 1
      FOR UPDATE
    )
    UPDATE loans AS l
    SET balance = GREATEST(target.balance - LEAST($3::numeric, target.balance), 0),
        is_active = target.balance - LEAST($3::numeric, target.balance) > 0,
        updated_at = now()
    FROM target
    WHERE l.id = target.id
    RETURNING l.id, LEAST($3::numeric, target.balance), l.balance
  `, orgID, d.EmployeeID, d.Amount).Scan(&payment.LoanID, &payment.AmountPaid, &payment.BalanceAfter)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, false, nil
	}
	if err != nil {
		return Payment{}, false, err
	}
	if payment.AmountPaid.LessThanOrEqual(decimal.Zero) {
		return payment, true, nil
	}

	if err := q.QueryRow(ctx, `
    INSERT INTO loan_payments (organization_id, loan_id, employee_id, period_start, period_end, transaction_date, amount_paid, balance_after)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, orgID, payment.LoanID, payment.EmployeeID, payment.PeriodStart, payment.PeriodEnd, payment.TransactionDate,
		payment.AmountPaid, payment.BalanceAfter).Scan(&payment.ID); err != nil {
		return Payment{}, false, err
	}
	return payment, true, nil
}
