package payroll

import "github.com/shopspring/decimal"

type Contributions struct {
	SSS        decimal.Decimal `json:"sss"`
	PhilHealth decimal.Decimal `json:"philhealth"`
	PagIBIG    decimal.Decimal `json:"pagibig"`
}

func (c Contributions) Total() decimal.Decimal {
	return c.SSS.Add(c.PhilHealth).Add(c.PagIBIG)
}

// BaseSSS returns the full monthly SSS employee share before proration.
// A positive organization override wins over the bracket table. Salaries above
// every bracket use the last bracket; an empty table yields zero.
func BaseSSS(monthlySalary decimal.Decimal, table []SSSBracket, fixedAmount decimal.Decimal) decimal.Decimal {
	if fixedAmount.IsPositive() {
		return fixedAmount
	}
	if len(table) == 0 {
		return decimal.Zero
	}
	bracket := table[len(table)-1]
	for _, candidate := range table {
		if monthlySalary.GreaterThanOrEqual(candidate.Min) && monthlySalary.LessThanOrEqual(candidate.Max) {
			bracket = candidate
			break
		}
	}
	return bracket.EESS.Add(bracket.EEMPF)
}

// ResolveContributions computes the employee shares of SSS, PhilHealth and
// Pag-IBIG, each prorated by its own mode.
func ResolveContributions(monthlySalary decimal.Decimal, cfg PayrollConfig, org OrgSettings, sssMode, phMode, piMode Mode) Contributions {
	return Contributions{
		SSS:        BaseSSS(monthlySalary, cfg.SSSTable, org.FixedSSSAmount).Mul(sssMode.Multiplier()),
		PhilHealth: cfg.PhilHealth.EEFixed.Mul(phMode.Multiplier()),
		PagIBIG:    cfg.PagIBIG.EEFixed.Mul(piMode.Multiplier()),
	}
}
