package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeHolidayPremiums(t *testing.T) {
	rates, err := ResolveRates(d("20000"), d("313"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    PayPeriodInputs
		pick  func(HolidayPremiums) decimal.Decimal
		wants string
	}{
		{name: "regular day", in: PayPeriodInputs{RegHolidayDays: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.RegularDay }, wants: "766.77"},
		{name: "special day", in: PayPeriodInputs{SpecHolidayDays: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.SpecialDay }, wants: "230.03"},
		{name: "rest day", in: PayPeriodInputs{RestDayHours: d("8")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.RestDay }, wants: "230.03"},
		{name: "regular overtime", in: PayPeriodInputs{RegHolidayOTHours: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.Overtime }, wants: "249.20"},
		{name: "special overtime", in: PayPeriodInputs{SpecHolidayOTHours: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.Overtime }, wants: "161.98"},
		{name: "regular night diff", in: PayPeriodInputs{RegHolidayNDHours: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.NightDiff }, wants: "19.17"},
		{name: "special night diff", in: PayPeriodInputs{SpecHolidayNDHours: d("1")}, pick: func(h HolidayPremiums) decimal.Decimal { return h.NightDiff }, wants: "12.46"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			premiums := ComputeHolidayPremiums(rates, tc.in)
			assertDecimal(t, tc.wants, Round2(tc.pick(premiums)))
			assertDecimal(t, tc.wants, Round2(premiums.Total()), "only one premium is set")
		})
	}
}

func TestComputeEarningsOvertimeAndNightDiff(t *testing.T) {
	rates, err := ResolveRates(d("20000"), d("313"))
	require.NoError(t, err)

	earnings := ComputeEarnings(rates, PayPeriodInputs{DaysWorked: d("15"), OTHours: d("2"), NDHours: d("3")}, []decimal.Decimal{d("500"), d("250")})

	assertDecimal(t, "11501.60", Round2(earnings.Basic))
	assertDecimal(t, "239.62", Round2(earnings.Overtime))
	assertDecimal(t, "28.75", Round2(earnings.NightDiff))
	assertDecimal(t, "750", earnings.Additions)
	assertDecimal(t, "12519.97", Round2(earnings.Gross()))
}
