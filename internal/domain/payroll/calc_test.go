package payroll

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"expected %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func testEmployee() Employee {
	return Employee{
		ID:         "emp-1",
		IDNumber:   "1001",
		FirstName:  "Maria",
		LastName:   "Santos",
		Department: "Kitchen",
		SalaryRate: d("20000"),
	}
}

func testConfig() PayrollConfig {
	return PayrollConfig{
		SSSTable: []SSSBracket{
			{Min: d("0"), Max: d("14999.99"), EESS: d("650"), EEMPF: d("0")},
			{Min: d("15000"), Max: d("24999.99"), EESS: d("750"), EEMPF: d("250")},
			{Min: d("25000"), Max: d("34999.99"), EESS: d("1000"), EEMPF: d("500")},
		},
		PhilHealth: FlatContribution{EEFixed: d("500")},
		PagIBIG:    FlatContribution{EEFixed: d("200")},
		TaxTable: []TaxBracket{
			{Min: d("0"), Max: d("10416.99"), BaseTax: d("0"), ExcessRate: d("0")},
			{Min: d("10417"), Max: d("16666.99"), BaseTax: d("0"), ExcessRate: d("0.15")},
			{Min: d("16667"), Max: d("33332.99"), BaseTax: d("937.50"), ExcessRate: d("0.20")},
		},
	}
}

func testSettings() OrgSettings {
	settings := DefaultOrgSettings("org-1")
	settings.DeductionSlots[0] = Slot{Label: "Short", Enabled: true}
	settings.DeductionSlots[1] = Slot{Label: "Cash Bond", Enabled: true}
	settings.AdditionSlots[0] = Slot{Label: "Allowance", Enabled: true}
	return settings
}

func TestComputeBasicPayScenario(t *testing.T) {
	record, err := Compute(testEmployee(), PayrollConfig{}, DefaultOrgSettings("org-1"), PayPeriodInputs{DaysWorked: d("15")})
	require.NoError(t, err)

	assertDecimal(t, "11501.60", record.BasicPay)
	assertDecimal(t, "0", record.HolidayPay)
	assertDecimal(t, "11501.60", record.GrossPay)
	assertDecimal(t, "11501.60", record.NetPay)
}

func TestComputeRegularHolidayIsPremiumOnly(t *testing.T) {
	record, err := Compute(testEmployee(), PayrollConfig{}, DefaultOrgSettings("org-1"), PayPeriodInputs{
		DaysWorked:     d("15"),
		RegHolidayDays: d("1"),
	})
	require.NoError(t, err)

	assertDecimal(t, "766.77", record.HolidayPay)
	assertDecimal(t, "12268.37", record.GrossPay)
}

func TestComputeNetPayFoots(t *testing.T) {
	in := PayPeriodInputs{
		DaysWorked:         d("13"),
		OTHours:            d("6.5"),
		NDHours:            d("4"),
		LateMinutes:        37,
		UndertimeMinutes:   12,
		RegHolidayDays:     d("1"),
		RegHolidayOTHours:  d("2"),
		RegHolidayNDHours:  d("1.5"),
		SpecHolidayDays:    d("1"),
		SpecHolidayOTHours: d("3"),
		SpecHolidayNDHours: d("2"),
		RestDayHours:       d("8"),
		LoanPayment:        d("1500"),
		LoanBalance:        d("900"),
		LoanMode:           ModeFull,
		SSSMode:            ModeFull,
		PHMode:             ModeHalf,
		PIMode:             ModeFull,
		CustomDeductions:   []decimal.Decimal{d("120.505"), d("300"), d("999")},
		CustomAdditions:    []decimal.Decimal{d("1000"), d("777")},
	}

	record, err := Compute(testEmployee(), testConfig(), testSettings(), in)
	require.NoError(t, err)

	want := record.GrossPay.
		Sub(record.SSSDeduction).
		Sub(record.PhilHealthDeduction).
		Sub(record.PagIBIGDeduction).
		Sub(record.TaxDeduction).
		Sub(record.TimeDeduction).
		Sub(record.LoanDeduction).
		Sub(record.CustomDeductions[0]).
		Sub(record.CustomDeductions[1]).
		Sub(record.CustomDeductions[2]).
		Sub(record.CustomDeductions[3]).
		Sub(record.CustomDeductions[4])
	assert.True(t, want.Equal(record.NetPay), "net %s does not foot to %s", record.NetPay, want)
	assertDecimal(t, "900", record.LoanDeduction, "loan deduction must be capped at the balance")
	assertDecimal(t, "120.51", record.CustomDeductions[0])
	assertDecimal(t, "0", record.CustomDeductions[2], "disabled slot must be ignored")
	assertDecimal(t, "0", record.CustomAdditions[1], "disabled slot must be ignored")
	assert.Equal(t, record.NetPay.Round(2).String(), record.NetPay.String())
}

func TestComputeIsIdempotent(t *testing.T) {
	in := PayPeriodInputs{
		DaysWorked:       d("11"),
		OTHours:          d("3"),
		LateMinutes:      15,
		SpecHolidayDays:  d("1"),
		CustomDeductions: []decimal.Decimal{d("50")},
	}
	first, err := Compute(testEmployee(), testConfig(), testSettings(), in)
	require.NoError(t, err)
	second, err := Compute(testEmployee(), testConfig(), testSettings(), in)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestComputeRejectsZeroWorkingDays(t *testing.T) {
	settings := DefaultOrgSettings("org-1")
	settings.WorkingDaysPerYear = decimal.Zero

	_, err := Compute(testEmployee(), testConfig(), settings, PayPeriodInputs{DaysWorked: d("1")})
	require.ErrorIs(t, err, ErrInvalidWorkingDays)
}

func TestComputeMissingTablesDegradeToZero(t *testing.T) {
	record, err := Compute(testEmployee(), PayrollConfig{}, DefaultOrgSettings("org-1"), PayPeriodInputs{DaysWorked: d("26")})
	require.NoError(t, err)

	assertDecimal(t, "0", record.SSSDeduction)
	assertDecimal(t, "0", record.PhilHealthDeduction)
	assertDecimal(t, "0", record.PagIBIGDeduction)
	assertDecimal(t, "0", record.TaxDeduction)
}

func TestComputeEmptyModesDefaultToFull(t *testing.T) {
	record, err := Compute(testEmployee(), testConfig(), DefaultOrgSettings("org-1"), PayPeriodInputs{DaysWorked: d("1")})
	require.NoError(t, err)

	assertDecimal(t, "1000", record.SSSDeduction)
	assertDecimal(t, "500", record.PhilHealthDeduction)
	assertDecimal(t, "200", record.PagIBIGDeduction)
	assert.Equal(t, ModeFull, record.Inputs.SSSMode)
}

func TestRecomputeKeepsLoanDeduction(t *testing.T) {
	stored, err := Compute(testEmployee(), testConfig(), testSettings(), PayPeriodInputs{
		DaysWorked:  d("10"),
		LoanPayment: d("1000"),
		LoanBalance: d("5000"),
	})
	require.NoError(t, err)
	stored.ID = "rec-1"
	assertDecimal(t, "1000", stored.LoanDeduction)

	edited, err := Recompute(stored, testEmployee(), testConfig(), testSettings(), PayPeriodInputs{
		DaysWorked:  d("12"),
		LoanPayment: d("0"),
		LoanBalance: d("0"),
	})
	require.NoError(t, err)

	assert.Equal(t, "rec-1", edited.ID)
	assertDecimal(t, "1000", edited.LoanDeduction)
	assert.True(t, edited.BasicPay.GreaterThan(stored.BasicPay))
	assert.True(t, edited.NetPay.Equal(edited.GrossPay.Sub(edited.TotalDeductions())))
}
