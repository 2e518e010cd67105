package payroll

import "github.com/shopspring/decimal"

type TimeDeduction struct {
	Late      decimal.Decimal `json:"late"`
	Undertime decimal.Decimal `json:"undertime"`
}

func (t TimeDeduction) Total() decimal.Decimal {
	return t.Late.Add(t.Undertime)
}

// ComputeTimeDeduction charges late minutes at the organization's penalty
// multiplier and undertime minutes at the plain minute rate.
func ComputeTimeDeduction(rates Rates, lateMultiplier decimal.Decimal, lateMinutes, undertimeMinutes int) TimeDeduction {
	return TimeDeduction{
		Late:      rates.Minute.Mul(lateMultiplier).Mul(decimal.NewFromInt(int64(lateMinutes))),
		Undertime: rates.Minute.Mul(decimal.NewFromInt(int64(undertimeMinutes))),
	}
}
