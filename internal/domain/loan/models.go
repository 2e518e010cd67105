package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type Loan struct {
	ID                 string          `json:"id"`
	OrgID              string          `json:"organizationId"`
	EmployeeID         string          `json:"employeeId"`
	EmployeeName       string          `json:"employeeName,omitempty"`
	Description        string          `json:"description,omitempty"`
	OriginalAmount     decimal.Decimal `json:"originalAmount"`
	CurrentBalance     decimal.Decimal `json:"currentBalance"`
	MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
	IsActive           bool            `json:"isActive"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Payment is an append-only ledger entry written by a finalized run.
type Payment struct {
	ID              string          `json:"id"`
	LoanID          string          `json:"loanId"`
	EmployeeID      string          `json:"employeeId"`
	PeriodStart     time.Time       `json:"periodStart"`
	PeriodEnd       time.Time       `json:"periodEnd"`
	TransactionDate time.Time       `json:"transactionDate"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
}

type NewLoan struct {
	EmployeeID         string
	Description        string
	Amount             decimal.Decimal
	MonthlyInstallment decimal.Decimal
}

// Deduction describes one installment to take against an employee's active loan.
type Deduction struct {
	EmployeeID  string
	Amount      decimal.Decimal
	PeriodStart time.Time
	PeriodEnd   time.Time
	PaidAt      time.Time
}
