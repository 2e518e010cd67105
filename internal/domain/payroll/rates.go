package payroll

import "github.com/shopspring/decimal"

var (
	hoursPerDay    = decimal.NewFromInt(HoursPerDay)
	minutesPerHour = decimal.NewFromInt(MinutesPerHour)
	monthsPerYear  = decimal.NewFromInt(MonthsPerYear)
)

type Rates struct {
	Daily  decimal.Decimal `json:"daily"`
	Hourly decimal.Decimal `json:"hourly"`
	Minute decimal.Decimal `json:"minute"`
}

// ResolveRates derives the daily, hourly and per-minute rates from a monthly salary
// and the organization's annual working-days factor.
func ResolveRates(monthlySalary, workingDaysPerYear decimal.Decimal) (Rates, error) {
	if !workingDaysPerYear.IsPositive() {
		return Rates{}, ErrInvalidWorkingDays
	}
	if monthlySalary.IsNegative() {
		return Rates{}, ErrNegativeSalary
	}
	daily := monthlySalary.Mul(monthsPerYear).Div(workingDaysPerYear)
	hourly := daily.Div(hoursPerDay)
	return Rates{
		Daily:  daily,
		Hourly: hourly,
		Minute: hourly.Div(minutesPerHour),
	}, nil
}
