package loan

import "github.com/shopspring/decimal"

// CapDeduction prorates the installment and caps it at the outstanding balance.
func CapDeduction(installment, balance, multiplier decimal.Decimal) decimal.Decimal {
	requested := installment.Mul(multiplier)
	if requested.IsNegative() || !balance.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(requested, balance)
}

// ApplyPayment returns the balance left after a deduction and whether the loan stays active.
func ApplyPayment(balance, deduction decimal.Decimal) (decimal.Decimal, bool) {
	next := balance.Sub(deduction)
	if !next.IsPositive() {
		return decimal.Zero, false
	}
	return next, true
}
