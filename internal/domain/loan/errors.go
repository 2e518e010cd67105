package loan

import "errors"

var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrActiveLoanExists  = errors.New("employee already has an active loan")
	ErrInvalidAmount     = errors.New("loan amount must be greater than zero")
	ErrInvalidInstalment = errors.New("monthly installment must be greater than zero and not exceed the amount")
)
