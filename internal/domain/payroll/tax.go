package payroll

import "github.com/shopspring/decimal"

// TaxableIncome is gross pay less the statutory employee shares, floored at zero.
func TaxableIncome(grossPay decimal.Decimal, contributions Contributions) decimal.Decimal {
	taxable := grossPay.Sub(contributions.Total())
	if taxable.IsNegative() {
		return decimal.Zero
	}
	return taxable
}

// FindTaxBracket returns the bracket containing taxable. ok is false when no
// bracket matches, in which case the zero bracket applies.
func FindTaxBracket(taxable decimal.Decimal, table []TaxBracket) (TaxBracket, bool) {
	for _, bracket := range table {
		if taxable.GreaterThanOrEqual(bracket.Min) && taxable.LessThanOrEqual(bracket.Max) {
			return bracket, true
		}
	}
	return TaxBracket{}, false
}

// ComputeWithholding applies base_tax + (taxable - min) * excess_rate.
func ComputeWithholding(taxable decimal.Decimal, table []TaxBracket) decimal.Decimal {
	bracket, ok := FindTaxBracket(taxable, table)
	if !ok {
		return decimal.Zero
	}
	return bracket.BaseTax.Add(taxable.Sub(bracket.Min).Mul(bracket.ExcessRate))
}
