package payroll

import "github.com/shopspring/decimal"

var (
	otPremium          = decimal.RequireFromString("1.25")
	ndPremium          = decimal.RequireFromString("0.10")
	regHolidayPremium  = decimal.RequireFromString("1.00")
	specHolidayPremium = decimal.RequireFromString("0.30")
	restDayPremium     = decimal.RequireFromString("0.30")
	regHolidayOTRate   = decimal.RequireFromString("2.6")
	specHolidayOTRate  = decimal.RequireFromString("1.69")
	regHolidayNDBase   = decimal.RequireFromString("2.0")
	specHolidayNDBase  = decimal.RequireFromString("1.3")
)

// HolidayPremiums holds the premium portions paid on top of basic pay.
// Holiday days worked are already part of DaysWorked, so none of these
// re-pay the base day.
type HolidayPremiums struct {
	RegularDay decimal.Decimal `json:"regularDay"`
	SpecialDay decimal.Decimal `json:"specialDay"`
	RestDay    decimal.Decimal `json:"restDay"`
	Overtime   decimal.Decimal `json:"overtime"`
	NightDiff  decimal.Decimal `json:"nightDiff"`
}

func (h HolidayPremiums) Total() decimal.Decimal {
	return h.RegularDay.Add(h.SpecialDay).Add(h.RestDay).Add(h.Overtime).Add(h.NightDiff)
}

type Earnings struct {
	Basic     decimal.Decimal `json:"basic"`
	Overtime  decimal.Decimal `json:"overtime"`
	NightDiff decimal.Decimal `json:"nightDiff"`
	Holiday   HolidayPremiums `json:"holiday"`
	Additions decimal.Decimal `json:"additions"`
}

func (e Earnings) Gross() decimal.Decimal {
	return e.Basic.Add(e.Overtime).Add(e.NightDiff).Add(e.Holiday.Total()).Add(e.Additions)
}

// ComputeHolidayPremiums applies the regular holiday, special holiday and rest-day rules.
func ComputeHolidayPremiums(rates Rates, in PayPeriodInputs) HolidayPremiums {
	regularOT := in.RegHolidayOTHours.Mul(rates.Hourly).Mul(regHolidayOTRate)
	specialOT := in.SpecHolidayOTHours.Mul(rates.Hourly).Mul(specHolidayOTRate)
	regularND := in.RegHolidayNDHours.Mul(rates.Hourly).Mul(regHolidayNDBase).Mul(ndPremium)
	specialND := in.SpecHolidayNDHours.Mul(rates.Hourly).Mul(specHolidayNDBase).Mul(ndPremium)

	return HolidayPremiums{
		RegularDay: in.RegHolidayDays.Mul(rates.Daily).Mul(regHolidayPremium),
		SpecialDay: in.SpecHolidayDays.Mul(rates.Daily).Mul(specHolidayPremium),
		RestDay:    in.RestDayHours.Mul(rates.Hourly).Mul(restDayPremium),
		Overtime:   regularOT.Add(specialOT),
		NightDiff:  regularND.Add(specialND),
	}
}

// ComputeEarnings returns every earnings component. additions must already
// exclude disabled slots.
func ComputeEarnings(rates Rates, in PayPeriodInputs, additions []decimal.Decimal) Earnings {
	return Earnings{
		Basic:     rates.Daily.Mul(in.DaysWorked),
		Overtime:  rates.Hourly.Mul(otPremium).Mul(in.OTHours),
		NightDiff: rates.Hourly.Mul(ndPremium).Mul(in.NDHours),
		Holiday:   ComputeHolidayPremiums(rates, in),
		Additions: sum(additions),
	}
}
